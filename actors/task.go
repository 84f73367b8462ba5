package actors

import (
	"context"
)

// Task is the handle of a processing loop admitted onto the executor. It can
// be awaited but nothing requires it.
type Task struct {
	id      string
	actorID string
	done    chan struct{}
	err     error
	loop    loop
}

func newTask(id string, l loop) *Task {
	return &Task{
		id:      id,
		actorID: l.id(),
		done:    make(chan struct{}),
		loop:    l,
	}
}

// ID returns the task unique id
func (t *Task) ID() string {
	return t.id
}

// ActorID returns the id of the actor run by the task
func (t *Task) ActorID() string {
	return t.actorID
}

// State returns the current state of the processing loop
func (t *Task) State() LoopState {
	return t.loop.state()
}

// Done is closed once the processing loop returned
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns why the loop terminated. It is nil while running and after a
// normal drain.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the loop terminated or ctx is done
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}
