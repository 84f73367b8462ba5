package actors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMailboxClosed is returned when the actor behind a mailbox has terminated
	// or its mailbox no longer admits messages
	ErrMailboxClosed = errors.New("mailbox closed")
	// ErrMailboxFull is returned by TrySend when the mailbox is at capacity
	ErrMailboxFull = errors.New("mailbox full")
	// ErrRefReleased is returned when sending through a released ActorRef
	ErrRefReleased = errors.New("actor reference released")
	// ErrUnexpectedMessage is returned by Tell when the message type does not
	// match the actor's message type
	ErrUnexpectedMessage = errors.New("unexpected message type")
	// ErrActorPanic wraps a panic recovered from an actor handler
	ErrActorPanic = errors.New("actor panicked")
	// ErrExecutorStopped is returned when spawning after shutdown started
	ErrExecutorStopped = errors.New("executor stopped")
	// ErrShutdownIneffective is returned when other owners of the actor system remain
	ErrShutdownIneffective = errors.New("shutdown ineffective, actor system still in use")
	// ErrShutdownTimeout is returned when the loops did not drain before the deadline
	ErrShutdownTimeout = errors.New("shutdown deadline exceeded, in-flight actors abandoned")
	// ErrSystemReleased is returned when using an ActorSystem handle after Shutdown
	ErrSystemReleased = errors.New("actor system handle released")
)

// SendError reports an undelivered message. The message is handed back to the
// caller so nothing is silently lost.
type SendError[M Message] struct {
	Message M
	cause   error
}

func newSendError[M Message](msg M, cause error) *SendError[M] {
	return &SendError[M]{Message: msg, cause: cause}
}

// Error implements error
func (e *SendError[M]) Error() string {
	return fmt.Sprintf("failed to send message %T: %v", e.Message, e.cause)
}

// Unwrap returns the reason of the failure
func (e *SendError[M]) Unwrap() error {
	return e.cause
}

// Cause returns the reason of the failure
func (e *SendError[M]) Cause() error {
	return e.cause
}
