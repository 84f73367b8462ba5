package actors

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// Ref is the type-erased view of an ActorRef, for collections holding
// actors of different message types
type Ref interface {
	// ID returns the actor id
	ID() string
	// Tell sends msg when it has the actor's message type
	Tell(ctx context.Context, msg any) error
	// Release gives up this handle
	Release()
}

// ActorRef is the producer handle of an actor's mailbox. Handles are
// reference counted: Clone adds one, Release drops one, and the mailbox stops
// admitting messages once the last handle is released, letting the actor
// drain its queue and terminate.
type ActorRef[M Message] struct {
	id       string
	mailbox  *mailbox[M]
	task     *Task
	config   *systemConfig
	released *atomic.Bool
}

// enforce compilation error
var _ Ref = (*ActorRef[any])(nil)

func newActorRef[M Message](id string, mailbox *mailbox[M], task *Task, config *systemConfig) *ActorRef[M] {
	return &ActorRef[M]{
		id:       id,
		mailbox:  mailbox,
		task:     task,
		config:   config,
		released: atomic.NewBool(false),
	}
}

// ID returns the actor id
func (ref *ActorRef[M]) ID() string {
	return ref.id
}

// Send enqueues msg into the actor's mailbox, blocking while it is full. The
// returned error is a *SendError holding msg when the actor has terminated,
// the handle was released or ctx ended before the message was admitted.
func (ref *ActorRef[M]) Send(ctx context.Context, msg M) error {
	// get the observability span
	spanCtx, span := getSpanContext(ctx, ref.config.tracer, "ActorRef.Send")
	defer span.End()

	if ref.released.Load() {
		return newSendError(msg, ErrRefReleased)
	}

	env := envelope[M]{spanCtx: trace.SpanContextFromContext(spanCtx), msg: msg}
	if err := ref.mailbox.enqueue(spanCtx, env); err != nil {
		span.RecordError(err)
		return newSendError(msg, err)
	}
	return nil
}

// TrySend enqueues msg without blocking. ErrMailboxFull is reported instead
// of waiting for room.
func (ref *ActorRef[M]) TrySend(msg M) error {
	if ref.released.Load() {
		return newSendError(msg, ErrRefReleased)
	}
	if err := ref.mailbox.tryEnqueue(envelope[M]{msg: msg}); err != nil {
		return newSendError(msg, err)
	}
	return nil
}

// Tell implements Ref
func (ref *ActorRef[M]) Tell(ctx context.Context, msg any) error {
	typed, ok := msg.(M)
	if !ok {
		return errors.Wrapf(ErrUnexpectedMessage, "actor %s cannot accept %T", ref.id, msg)
	}
	return ref.Send(ctx, typed)
}

// Clone returns another handle to the same mailbox. Cloning a released
// handle returns a released handle.
func (ref *ActorRef[M]) Clone() *ActorRef[M] {
	if ref.released.Load() {
		return &ActorRef[M]{id: ref.id, mailbox: ref.mailbox, task: ref.task, config: ref.config, released: atomic.NewBool(true)}
	}
	ref.mailbox.refs.Inc()
	return newActorRef(ref.id, ref.mailbox, ref.task, ref.config)
}

// Release gives up this handle. Releasing twice is a no-op.
func (ref *ActorRef[M]) Release() {
	if !ref.released.CompareAndSwap(false, true) {
		return
	}
	if ref.mailbox.refs.Dec() == 0 {
		ref.config.logger.Debugf("[actor_ref] (%s) last reference released, draining", ref.id)
		ref.mailbox.close()
	}
}

// Len returns a snapshot of the number of queued messages
func (ref *ActorRef[M]) Len() int {
	return ref.mailbox.len()
}

// Cap returns the mailbox capacity
func (ref *ActorRef[M]) Cap() int {
	return ref.mailbox.capacity()
}

// Task returns the handle of the actor's processing loop
func (ref *ActorRef[M]) Task() *Task {
	return ref.task
}

// Done is closed when the actor terminated
func (ref *ActorRef[M]) Done() <-chan struct{} {
	return ref.task.Done()
}
