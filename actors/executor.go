package actors

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/super-flat/actorsys/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// loop is the type-erased view of a container the executor runs
type loop interface {
	run(ctx context.Context) error
	id() string
	closeMailbox()
	state() LoopState
}

// Executor runs the processing loops of an actor system. Goroutines are
// multiplexed by the Go scheduler onto GOMAXPROCS threads, which is the
// worker pool shared by every actor of the system.
type Executor struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mtx     sync.Mutex
	stopped bool
	tasks   map[string]*Task

	config *systemConfig
	logger log.Logger
}

func newExecutor(config *systemConfig) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*Task),
		config: config,
		logger: config.logger,
	}
}

// spawn admits the loop onto the pool and returns immediately
func (x *Executor) spawn(l loop) (*Task, error) {
	x.mtx.Lock()
	defer x.mtx.Unlock()

	if x.stopped {
		return nil, ErrExecutorStopped
	}

	task := newTask(uuid.NewString(), l)
	x.tasks[task.id] = task

	x.config.metrics.spawned.Add(x.ctx, 1, x.config.attrs)
	x.config.metrics.active.Add(x.ctx, 1, x.config.attrs)

	x.group.Go(func() error {
		err := l.run(x.ctx)

		x.mtx.Lock()
		delete(x.tasks, task.id)
		x.mtx.Unlock()

		x.config.metrics.active.Add(context.Background(), -1, x.config.attrs)
		switch {
		case err == nil:
			x.logger.Debugf("[executor] (%s) actor terminated", task.actorID)
		case errors.Is(err, context.Canceled):
			x.logger.Warnf("[executor] (%s) actor abandoned", task.actorID)
		default:
			x.logger.Errorf("[executor] (%s) actor terminated on failure, err=%v", task.actorID, err)
		}
		task.finish(err)
		return nil
	})

	return task, nil
}

// Len returns the number of running loops
func (x *Executor) Len() int {
	x.mtx.Lock()
	defer x.mtx.Unlock()
	return len(x.tasks)
}

// Wait blocks until every admitted loop terminated or ctx is done
func (x *Executor) Wait(ctx context.Context) error {
	for {
		tasks := x.snapshot()
		if len(tasks) == 0 {
			return nil
		}
		for _, task := range tasks {
			select {
			case <-task.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Shutdown stops admitting loops, closes every mailbox and waits for the
// loops to drain. When ctx ends first, the remaining loops are abandoned:
// their context is cancelled and undelivered messages are lost.
func (x *Executor) Shutdown(ctx context.Context) error {
	x.mtx.Lock()
	if x.stopped {
		x.mtx.Unlock()
		return nil
	}
	x.stopped = true
	x.mtx.Unlock()

	tasks := x.snapshot()
	x.logger.Infof("[executor] shutting down, draining %d actor(s)", len(tasks))

	drained := make(chan struct{})
	go func() {
		for _, task := range tasks {
			task.loop.closeMailbox()
		}
		_ = x.group.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		x.cancel()
		x.logger.Info("[executor] all actors drained")
		return nil
	case <-ctx.Done():
		x.cancel()
		x.logger.Warnf("[executor] shutdown deadline reached, abandoning %d actor(s)", x.Len())
		return multierr.Combine(ErrShutdownTimeout, ctx.Err())
	}
}

func (x *Executor) snapshot() []*Task {
	x.mtx.Lock()
	defer x.mtx.Unlock()
	out := make([]*Task, 0, len(x.tasks))
	for _, task := range x.tasks {
		out = append(out, task)
	}
	return out
}
