package actor

import (
	"context"
	"math/rand"
	"time"

	"github.com/super-flat/actorsys/actors"
	"github.com/super-flat/actorsys/log"
	"go.uber.org/atomic"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Worker computes the sum of squares below the received amount
type Worker struct {
	id       string
	logger   log.Logger
	minSleep time.Duration
	maxSleep time.Duration
	workDone *atomic.Uint64
}

var _ actors.Actor[*wrapperspb.UInt64Value] = (*Worker)(nil)

// NewWorker creates a Worker that pauses between 10ms and 100ms per work item
func NewWorker(id string, logger log.Logger) *Worker {
	return &Worker{
		id:       id,
		logger:   logger,
		minSleep: 10 * time.Millisecond,
		maxSleep: 100 * time.Millisecond,
		workDone: atomic.NewUint64(0),
	}
}

// WithPause overrides the random pause bounds
func (x *Worker) WithPause(minPause, maxPause time.Duration) *Worker {
	x.minSleep = minPause
	x.maxSleep = maxPause
	return x
}

func (x *Worker) ID() string {
	return x.id
}

func (x *Worker) Handle(ctx context.Context, msg *wrapperspb.UInt64Value) error {
	amount := msg.GetValue()
	result := SumOfSquares(amount)
	total := x.workDone.Add(amount)

	if pause := x.pause(); pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	x.logger.Debugf("(%s) completed work: %d (total: %d)", x.id, result, total)
	return nil
}

// WorkDone returns the sum of the amounts handled so far
func (x *Worker) WorkDone() uint64 {
	return x.workDone.Load()
}

func (x *Worker) pause() time.Duration {
	if x.maxSleep <= x.minSleep {
		return x.minSleep
	}
	return x.minSleep + time.Duration(rand.Int63n(int64(x.maxSleep-x.minSleep)))
}

// Manager accumulates the amounts reported by the senders
type Manager struct {
	id        string
	logger    log.Logger
	totalWork *atomic.Uint64
}

var _ actors.Actor[*wrapperspb.UInt64Value] = (*Manager)(nil)

func NewManager(id string, logger log.Logger) *Manager {
	return &Manager{
		id:        id,
		logger:    logger,
		totalWork: atomic.NewUint64(0),
	}
}

func (x *Manager) ID() string {
	return x.id
}

func (x *Manager) Handle(_ context.Context, msg *wrapperspb.UInt64Value) error {
	total := x.totalWork.Add(msg.GetValue())
	x.logger.Debugf("(%s) total work done: %d", x.id, total)
	return nil
}

// TotalWork returns the sum of every amount received
func (x *Manager) TotalWork() uint64 {
	return x.totalWork.Load()
}

// SumOfSquares returns 0² + 1² + ... + (n-1)², wrapping on overflow
func SumOfSquares(n uint64) uint64 {
	var result uint64
	for i := uint64(0); i < n; i++ {
		result += i * i
	}
	return result
}
