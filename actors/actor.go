// Package actors is a minimal in-process actor runtime.
//
// Actors own private state and are only reachable through an ActorRef, which
// enqueues messages into a bounded FIFO mailbox. Every actor has one
// processing loop that handles its messages sequentially; the loops of all
// actors created by one ActorSystem run concurrently on its Executor.
package actors

import "context"

// Message is the constraint every mailbox payload satisfies. Any value can be
// sent; ownership moves from the sender to the actor, so a sender must not
// mutate a value after handing it to Send.
type Message interface{}

// Actor knows how to receive and process messages of one concrete type
type Actor[M Message] interface {
	// ID returns a stable identity used for diagnostics only
	ID() string
	// Handle processes a single message. Calls never overlap for one actor.
	// A non-nil error or a panic terminates this actor's processing loop;
	// other actors keep running.
	Handle(ctx context.Context, msg M) error
}

// Initializer is implemented by actors that need a setup step before the
// first message is handled. Init is retried with an exponential backoff and
// the actor is terminated when every attempt fails.
type Initializer interface {
	Init(ctx context.Context) error
}
