package actors

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/super-flat/actorsys/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// systemConfig holds the settings shared by the system, its executor and refs
type systemConfig struct {
	name           string
	logger         log.Logger
	mailboxSize    int
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	initMaxRetries uint64
	initInterval   time.Duration

	tracer  trace.Tracer
	metrics *metrics
	attrs   metric.MeasurementOption
}

// systemCore is shared by every clone of an ActorSystem
type systemCore struct {
	config   *systemConfig
	executor *Executor
	owners   *atomic.Int64
}

// ActorSystem creates actors on a shared Executor. Clone hands out another
// owner of the same executor; only the last owner to call Shutdown stops it.
type ActorSystem struct {
	core     *systemCore
	released *atomic.Bool
}

// NewActorSystem returns a new ActorSystem with a single owner
func NewActorSystem(opts ...Option) *ActorSystem {
	config := &systemConfig{
		name:           "actorsys",
		logger:         log.DefaultLogger,
		mailboxSize:    DefaultMailboxSize,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		initMaxRetries: actorInitMaxRetries,
	}
	// set the custom options to override the default values
	for _, opt := range opts {
		opt(config)
	}

	config.logger = config.logger.With("system", config.name)
	config.tracer = config.tracerProvider.Tracer(instrumentationName)
	config.attrs = metric.WithAttributes(attribute.String("actor.system", config.name))

	instruments, err := newMetrics(config.meterProvider.Meter(instrumentationName))
	if err != nil {
		config.logger.Warnf("[system] failed to create metric instruments, metrics disabled: %v", err)
		instruments, _ = newMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	}
	config.metrics = instruments

	config.logger.Infof("[system] actor system started")
	return &ActorSystem{
		core: &systemCore{
			config:   config,
			executor: newExecutor(config),
			owners:   atomic.NewInt64(1),
		},
		released: atomic.NewBool(false),
	}
}

// Name returns the actor system name
func (s *ActorSystem) Name() string {
	return s.core.config.name
}

// Clone returns a new owner of the same system. Cloning a released handle
// returns another released handle.
func (s *ActorSystem) Clone() *ActorSystem {
	if s.released.Load() {
		return &ActorSystem{core: s.core, released: atomic.NewBool(true)}
	}
	s.core.owners.Inc()
	return &ActorSystem{core: s.core, released: atomic.NewBool(false)}
}

// Owners returns the number of handles that have not been shut down
func (s *ActorSystem) Owners() int64 {
	return s.core.owners.Load()
}

// ActorsCount returns the number of running actors
func (s *ActorSystem) ActorsCount() int {
	return s.core.executor.Len()
}

// AwaitTermination blocks until every actor terminated or ctx is done
func (s *ActorSystem) AwaitTermination(ctx context.Context) error {
	return s.core.executor.Wait(ctx)
}

// Shutdown releases this handle. The executor is only shut down by the last
// owner: it stops admitting actors, closes every mailbox and waits for the
// loops to drain until ctx is done, after which the remaining loops are
// abandoned. Earlier owners get ErrShutdownIneffective and the system keeps running.
func (s *ActorSystem) Shutdown(ctx context.Context) error {
	if !s.released.CompareAndSwap(false, true) {
		return ErrSystemReleased
	}

	if remaining := s.core.owners.Dec(); remaining > 0 {
		s.core.config.logger.Warnf("[system] shutdown ineffective, %d owner(s) still hold the system", remaining)
		return errors.Wrapf(ErrShutdownIneffective, "%d owner(s) remaining", remaining)
	}

	err := s.core.executor.Shutdown(ctx)
	if err != nil {
		s.core.config.logger.Errorf("[system] shutdown incomplete: %v", err)
	} else {
		s.core.config.logger.Info("[system] actor system stopped")
	}
	return err
}
