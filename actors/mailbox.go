package actors

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// LoopState is the lifecycle state of an actor's processing loop
type LoopState int32

const (
	// LoopRunning means the loop waits for and handles messages
	LoopRunning LoopState = iota
	// LoopDraining means the mailbox stopped admitting messages and the loop
	// handles what is left before exiting
	LoopDraining
	// LoopTerminated means the loop returned
	LoopTerminated
)

// String returns the state name
func (s LoopState) String() string {
	switch s {
	case LoopRunning:
		return "running"
	case LoopDraining:
		return "draining"
	case LoopTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// envelope carries a message together with the sender's span
type envelope[M Message] struct {
	spanCtx trace.SpanContext
	msg     M
}

// mailbox is a bounded FIFO queue with many producers and one consumer.
//
// Producers first take a slot, which is where a full mailbox blocks them,
// then push under mu. The consumer frees the slot once it took the message
// off the queue. close stops admissions and wakes every waiting producer
// without waiting for them, so it never blocks.
type mailbox[M Message] struct {
	queue chan envelope[M]
	slots *semaphore.Weighted

	// mu orders admissions against close
	mu     sync.Mutex
	closed bool

	// closing is cancelled by close to wake producers waiting for a slot
	closing context.Context
	cancel  context.CancelFunc

	refs  *atomic.Int64
	state *atomic.Int32
}

func newMailbox[M Message](capacity int) *mailbox[M] {
	if capacity <= 0 {
		capacity = DefaultMailboxSize
	}
	closing, cancel := context.WithCancel(context.Background())
	return &mailbox[M]{
		queue:   make(chan envelope[M], capacity),
		slots:   semaphore.NewWeighted(int64(capacity)),
		closing: closing,
		cancel:  cancel,
		refs:    atomic.NewInt64(1),
		state:   atomic.NewInt32(int32(LoopRunning)),
	}
}

// enqueue blocks while the mailbox is full
func (m *mailbox[M]) enqueue(ctx context.Context, env envelope[M]) error {
	if m.closing.Err() != nil {
		return ErrMailboxClosed
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.closing, cancel)
	defer stop()

	if err := m.slots.Acquire(waitCtx, 1); err != nil {
		if m.closing.Err() != nil {
			return ErrMailboxClosed
		}
		return ctx.Err()
	}
	return m.push(env)
}

func (m *mailbox[M]) tryEnqueue(env envelope[M]) error {
	if m.closing.Err() != nil {
		return ErrMailboxClosed
	}
	if !m.slots.TryAcquire(1) {
		return ErrMailboxFull
	}
	return m.push(env)
}

// push admits env once a slot is held. The queue has room for every slot,
// so the channel send never blocks.
func (m *mailbox[M]) push(env envelope[M]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.slots.Release(1)
		return ErrMailboxClosed
	}
	m.queue <- env
	return nil
}

// free gives back the slot of a message the consumer took off the queue
func (m *mailbox[M]) free() {
	m.slots.Release(1)
}

// close stops admitting messages. Queued messages stay readable.
func (m *mailbox[M]) close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
		m.state.CompareAndSwap(int32(LoopRunning), int32(LoopDraining))
	}
	m.mu.Unlock()
	m.cancel()
}

// terminate is called by the consumer when its loop returns. It returns the
// number of admitted messages that will never be handled.
func (m *mailbox[M]) terminate() int {
	m.close()

	dropped := 0
	for range m.queue {
		dropped++
	}
	m.state.Store(int32(LoopTerminated))
	return dropped
}

func (m *mailbox[M]) loopState() LoopState {
	return LoopState(m.state.Load())
}

func (m *mailbox[M]) len() int {
	return len(m.queue)
}

func (m *mailbox[M]) capacity() int {
	return cap(m.queue)
}
