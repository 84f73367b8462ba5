// Package config reads the settings of the benchmark tool from an optional
// .env file and the process environment.
package config

import (
	"math"
	"os"
	"reflect"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/super-flat/actorsys/actors"
	"github.com/super-flat/actorsys/log"
)

// Config holds the benchmark settings
type Config struct {
	// Workers is the number of worker actors
	Workers int `env:"ACTORSYS_WORKERS" envDefault:"10"`
	// WorkItems is the number of work messages sent
	WorkItems int `env:"ACTORSYS_WORK_ITEMS" envDefault:"10000"`
	// MaxWorkAmount bounds the random amount of a single work item
	MaxWorkAmount uint64 `env:"ACTORSYS_MAX_WORK_AMOUNT" envDefault:"1000"`
	// MailboxSize is the capacity of every actor mailbox
	MailboxSize int `env:"ACTORSYS_MAILBOX_SIZE" envDefault:"100"`
	// LogLevel is the logger level
	LogLevel log.Level `env:"ACTORSYS_LOG_LEVEL" envDefault:"info"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		Workers:       10,
		WorkItems:     10000,
		MaxWorkAmount: 1000,
		MailboxSize:   actors.DefaultMailboxSize,
		LogLevel:      log.InfoLevel,
	}
}

// Load reads the given .env files, falling back to ./.env, then decodes the
// process environment. Missing files are ignored.
func Load(filenames ...string) (*Config, error) {
	if err := godotenv.Load(filenames...); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "failed to load .env file")
	}
	return FromEnv()
}

// FromEnv decodes the process environment on top of the defaults
func FromEnv() (*Config, error) {
	config, err := env.ParseAsWithOptions[Config](env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(log.InfoLevel): parseLevel,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode the environment")
	}
	return &config, config.Validate()
}

// Validate checks the settings are usable
func (c *Config) Validate() error {
	switch {
	case c.Workers <= 0:
		return errors.New("workers must be positive")
	case c.WorkItems < 0:
		return errors.New("work items must not be negative")
	case c.MaxWorkAmount == 0:
		return errors.New("max work amount must be positive")
	case c.MaxWorkAmount > math.MaxInt64:
		return errors.Errorf("max work amount must not exceed %d", int64(math.MaxInt64))
	case c.MailboxSize <= 0:
		return errors.New("mailbox size must be positive")
	}
	return nil
}

func parseLevel(value string) (any, error) {
	level := log.ParseLevel(value)
	if level == log.InvalidLevel {
		return nil, errors.Errorf("unknown log level %q", value)
	}
	return level, nil
}
