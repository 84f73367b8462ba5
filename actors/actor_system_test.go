package actors

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestActorSystem(t *testing.T) {
	t.Run("With a single owner", func(t *testing.T) {
		system := newTestSystem(t)
		assert.Equal(t, "test", system.Name())
		assert.EqualValues(t, 1, system.Owners())
		assert.Zero(t, system.ActorsCount())
		shutdown(t, system)
	})
	t.Run("With actor message handling", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		counter := atomic.NewUint32(0)

		ref, err := CreateActor[uint32](ctx, system, &counterActor{id: "test_actor", counter: counter})
		require.NoError(t, err)
		assert.Equal(t, "test_actor", ref.ID())
		assert.Equal(t, DefaultMailboxSize, ref.Cap())

		require.NoError(t, ref.Send(ctx, 1))
		require.NoError(t, ref.Send(ctx, 2))

		ref.Release()
		require.NoError(t, waitDone(t, ref.Task()))
		assert.EqualValues(t, 3, counter.Load())
		assert.Equal(t, LoopTerminated, ref.Task().State())

		shutdown(t, system)
	})
	t.Run("With multiple actors isolated", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		counter1 := atomic.NewUint32(0)
		counter2 := atomic.NewUint32(0)

		ref1, err := CreateActor[uint32](ctx, system, &counterActor{id: "actor1", counter: counter1})
		require.NoError(t, err)
		ref2, err := CreateActor[uint32](ctx, system, &counterActor{id: "actor2", counter: counter2})
		require.NoError(t, err)
		assert.Equal(t, 2, system.ActorsCount())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, ref1.Send(ctx, 1))
			assert.NoError(t, ref1.Send(ctx, 2))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, ref2.Send(ctx, 2))
		}()
		wg.Wait()

		// graceful shutdown drains every mailbox
		shutdown(t, system)

		assert.EqualValues(t, 3, counter1.Load())
		assert.EqualValues(t, 2, counter2.Load())
		assert.Zero(t, system.ActorsCount())
	})
	t.Run("With actor creation from concurrent owners", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		counter := atomic.NewUint32(0)

		const owners = 8
		var wg sync.WaitGroup
		for i := 0; i < owners; i++ {
			clone := system.Clone()
			wg.Add(1)
			go func(clone *ActorSystem) {
				defer wg.Done()
				ref, err := CreateActor[uint32](ctx, clone, &counterActor{id: "actor", counter: counter})
				if assert.NoError(t, err) {
					assert.NoError(t, ref.Send(ctx, 1))
					ref.Release()
				}
				err = clone.Shutdown(ctx)
				assert.ErrorIs(t, err, ErrShutdownIneffective)
			}(clone)
		}
		wg.Wait()

		require.NoError(t, system.AwaitTermination(ctx))
		assert.EqualValues(t, owners, counter.Load())
		assert.EqualValues(t, 1, system.Owners())
		shutdown(t, system)
	})
	t.Run("With shutdown gated by the last owner", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		clone := system.Clone()
		assert.EqualValues(t, 2, system.Owners())

		err := system.Shutdown(ctx)
		require.ErrorIs(t, err, ErrShutdownIneffective)

		// the released handle is unusable, the clone keeps working
		_, err = CreateActor[int](ctx, system, newRecorder("late"))
		require.ErrorIs(t, err, ErrSystemReleased)
		require.ErrorIs(t, system.Shutdown(ctx), ErrSystemReleased)
		assert.EqualValues(t, 1, system.Clone().Owners())

		recorder := newRecorder("recorder")
		ref, err := CreateActor[int](ctx, clone, recorder)
		require.NoError(t, err)
		require.NoError(t, ref.Send(ctx, 7))

		shutdown(t, clone)
		assert.Equal(t, []int{7}, recorder.Received())

		err = ref.Send(ctx, 8)
		require.ErrorIs(t, err, ErrMailboxClosed)
	})
	t.Run("With graceful shutdown draining queued messages", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		recorder := newRecorder("slow")
		recorder.delay = 5 * time.Millisecond

		ref, err := CreateActor[int](ctx, system, recorder)
		require.NoError(t, err)
		for i := 1; i <= 10; i++ {
			require.NoError(t, ref.Send(ctx, i))
		}

		shutdown(t, system)
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, recorder.Received())
		assert.Equal(t, LoopTerminated, ref.Task().State())

		_, err = CreateActor[int](ctx, system.Clone(), newRecorder("late"))
		require.ErrorIs(t, err, ErrSystemReleased)
	})
	t.Run("With forceful shutdown after the deadline", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		recorder := newRecorder("stuck")
		recorder.gate = make(chan struct{})

		ref, err := CreateActor[int](ctx, system, recorder)
		require.NoError(t, err)
		require.NoError(t, ref.Send(ctx, 1))
		require.NoError(t, ref.Send(ctx, 2))
		<-recorder.started

		shutdownCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		err = system.Shutdown(shutdownCtx)
		require.ErrorIs(t, err, ErrShutdownTimeout)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		err = waitDone(t, ref.Task())
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, recorder.Received())

		err = ref.Send(ctx, 3)
		var sendErr *SendError[int]
		require.ErrorAs(t, err, &sendErr)
		assert.Equal(t, 3, sendErr.Message)
		require.NoError(t, system.AwaitTermination(ctx))
	})
	t.Run("With workers and a manager", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		total := atomic.NewUint32(0)
		manager, err := CreateActor[uint32](ctx, system, &counterActor{id: "manager", counter: total})
		require.NoError(t, err)

		const workerCount = 5
		workerTotals := make([]*atomic.Uint32, workerCount)
		workers := make([]*ActorRef[uint32], workerCount)
		for i := range workers {
			workerTotals[i] = atomic.NewUint32(0)
			workers[i], err = CreateActor[uint32](ctx, system, &counterActor{id: "worker", counter: workerTotals[i]})
			require.NoError(t, err)
		}

		var expected uint32
		var wg sync.WaitGroup
		for i := 0; i < 200; i++ {
			amount := uint32(rand.Intn(1000) + 1)
			worker := workers[rand.Intn(workerCount)].Clone()
			expected += amount
			wg.Add(1)
			go func(worker *ActorRef[uint32]) {
				defer wg.Done()
				defer worker.Release()
				assert.NoError(t, worker.Send(ctx, amount))
				time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
				assert.NoError(t, manager.Send(ctx, amount))
			}(worker)
		}
		wg.Wait()

		shutdown(t, system)

		var workDone uint32
		for _, workerTotal := range workerTotals {
			workDone += workerTotal.Load()
		}
		assert.Equal(t, expected, total.Load())
		assert.Equal(t, expected, workDone)
	})
	t.Run("With handler failure isolated to one actor", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		handled := atomic.NewInt32(0)
		counter := atomic.NewUint32(0)

		failing, err := CreateActor[int](ctx, system, &failingActor{id: "failing", handled: handled})
		require.NoError(t, err)
		healthy, err := CreateActor[uint32](ctx, system, &counterActor{id: "healthy", counter: counter})
		require.NoError(t, err)

		require.NoError(t, failing.Send(ctx, 1))
		require.NoError(t, failing.Send(ctx, -1))

		err = waitDone(t, failing.Task())
		require.ErrorIs(t, err, errBoom)
		assert.EqualValues(t, 1, handled.Load())

		err = failing.Send(ctx, 2)
		require.ErrorIs(t, err, ErrMailboxClosed)
		var sendErr *SendError[int]
		require.True(t, errors.As(err, &sendErr))
		assert.Equal(t, 2, sendErr.Message)

		require.NoError(t, healthy.Send(ctx, 5))
		shutdown(t, system)
		assert.EqualValues(t, 5, counter.Load())
	})
	t.Run("With handler panic isolated to one actor", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		handled := atomic.NewInt32(0)

		ref, err := CreateActor[int](ctx, system, &failingActor{id: "panicking", handled: handled})
		require.NoError(t, err)
		require.NoError(t, ref.Send(ctx, 0))

		err = waitDone(t, ref.Task())
		require.ErrorIs(t, err, ErrActorPanic)
		assert.Contains(t, err.Error(), "zero is not allowed")
		assert.Zero(t, handled.Load())

		require.ErrorIs(t, ref.Send(ctx, 1), ErrMailboxClosed)
		shutdown(t, system)
	})
	t.Run("With actor initialization retried", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t, WithInitRetry(5, time.Millisecond))
		actor := &initActor{
			id:       "init",
			failures: atomic.NewInt32(2),
			attempts: atomic.NewInt32(0),
			handled:  atomic.NewInt32(0),
		}

		ref, err := CreateActor[string](ctx, system, actor)
		require.NoError(t, err)
		require.NoError(t, ref.Send(ctx, "hello"))

		ref.Release()
		require.NoError(t, waitDone(t, ref.Task()))
		assert.EqualValues(t, 3, actor.attempts.Load())
		assert.EqualValues(t, 1, actor.handled.Load())
		shutdown(t, system)
	})
	t.Run("With actor initialization exhausted", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t, WithInitRetry(2, time.Millisecond))
		actor := &initActor{
			id:       "init",
			failures: atomic.NewInt32(100),
			attempts: atomic.NewInt32(0),
			handled:  atomic.NewInt32(0),
		}

		ref, err := CreateActor[string](ctx, system, actor)
		require.NoError(t, err)

		err = waitDone(t, ref.Task())
		require.ErrorIs(t, err, errBoom)
		assert.EqualValues(t, 3, actor.attempts.Load())

		require.ErrorIs(t, ref.Send(ctx, "hello"), ErrMailboxClosed)
		assert.Zero(t, actor.handled.Load())
		shutdown(t, system)
	})
	t.Run("With a stable actor id", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t)
		actor := &identityActor{id: "identity"}

		ref, err := CreateActor[int](ctx, system, actor)
		require.NoError(t, err)
		const count = 20
		for i := 0; i < count; i++ {
			require.NoError(t, ref.Send(ctx, i))
		}

		ref.Release()
		require.NoError(t, waitDone(t, ref.Task()))

		seen := actor.Seen()
		require.Len(t, seen, count)
		for _, id := range seen {
			assert.Equal(t, ref.ID(), id)
			assert.Equal(t, ref.Task().ActorID(), id)
		}
		assert.Equal(t, "identity", ref.ID())
		shutdown(t, system)
	})
	t.Run("With mailbox size overrides", func(t *testing.T) {
		ctx := context.TODO()
		system := newTestSystem(t, WithDefaultMailboxSize(7))

		ref1, err := CreateActor[int](ctx, system, newRecorder("default"))
		require.NoError(t, err)
		ref2, err := CreateActor[int](ctx, system, newRecorder("custom"), WithMailboxSize(3))
		require.NoError(t, err)

		assert.Equal(t, 7, ref1.Cap())
		assert.Equal(t, 3, ref2.Cap())
		shutdown(t, system)
	})
}
