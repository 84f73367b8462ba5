package actors

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/super-flat/actorsys/log"
	"go.opentelemetry.io/otel/trace"
)

// container binds one actor to the consumer side of its mailbox
type container[M Message] struct {
	actorID string
	actor   Actor[M]
	mailbox *mailbox[M]
	config  *systemConfig
	logger  log.Logger
}

func newContainer[M Message](actor Actor[M], mailbox *mailbox[M], config *systemConfig) *container[M] {
	return &container[M]{
		actorID: actor.ID(),
		actor:   actor,
		mailbox: mailbox,
		config:  config,
		logger:  config.logger.With("actor", actor.ID()),
	}
}

// run the actor loop
func (c *container[M]) run(ctx context.Context) error {
	defer c.release()
	// run the actor initialization
	if err := c.selfInit(ctx); err != nil {
		return err
	}
	// run the process loop
	return c.process(ctx)
}

// process incoming messages until the mailbox is closed and empty
func (c *container[M]) process(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case received, ok := <-c.mailbox.queue:
			if !ok {
				return nil
			}
			c.mailbox.free()
			if err := c.handle(ctx, received); err != nil {
				c.config.metrics.failures.Add(ctx, 1, c.config.attrs)
				return err
			}
			c.config.metrics.handled.Add(ctx, 1, c.config.attrs)
		}
	}
}

// handle runs the actor handler for one message. A panic is recovered into
// ErrActorPanic so it only takes down this actor.
func (c *container[M]) handle(ctx context.Context, received envelope[M]) (err error) {
	if received.spanCtx.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, received.spanCtx)
	}
	spanCtx, span := getSpanContext(ctx, c.config.tracer, "Actor.Handle")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(ErrActorPanic, fmt.Sprint(r))
		}
		if err != nil {
			span.RecordError(err)
		}
	}()

	if err := c.actor.Handle(spanCtx, received.msg); err != nil {
		return errors.Wrapf(err, "actor %s failed to handle %T", c.actorID, received.msg)
	}
	return nil
}

// selfInit runs the actor initialization when the actor implements Initializer.
// An exponential backoff strategy is applied for a bounded number of attempts;
// when they are exhausted the actor is not started.
func (c *container[M]) selfInit(ctx context.Context) error {
	initializer, ok := c.actor.(Initializer)
	if !ok {
		return nil
	}

	spanCtx, span := getSpanContext(ctx, c.config.tracer, "Actor.Init")
	defer span.End()

	expoBackoff := backoff.NewExponentialBackOff()
	if c.config.initInterval > 0 {
		expoBackoff.InitialInterval = c.config.initInterval
	}

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return initializer.Init(spanCtx)
	}, backoff.WithContext(backoff.WithMaxRetries(expoBackoff, c.config.initMaxRetries), spanCtx))
	if err != nil {
		span.RecordError(err)
		c.logger.Errorf("[actor] failed to initialize actor, total attempts=%d, err=%v", attempts, err)
		return errors.Wrapf(err, "actor %s failed to initialize", c.actorID)
	}

	c.logger.Debugf("[actor] actor initialized after %d attempt(s)", attempts)
	return nil
}

// release tears the mailbox down once the loop returned
func (c *container[M]) release() {
	if dropped := c.mailbox.terminate(); dropped > 0 {
		c.config.metrics.deadLetters.Add(context.Background(), int64(dropped), c.config.attrs)
		c.logger.Warnf("[actor] %d message(s) were never handled", dropped)
	}
}

func (c *container[M]) id() string {
	return c.actorID
}

func (c *container[M]) closeMailbox() {
	c.mailbox.close()
}

func (c *container[M]) state() LoopState {
	return c.mailbox.loopState()
}
