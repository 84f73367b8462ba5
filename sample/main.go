package main

import "github.com/super-flat/actorsys/sample/cmd"

func main() {
	cmd.Execute()
}
