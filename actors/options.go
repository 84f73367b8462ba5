package actors

import (
	"time"

	"github.com/super-flat/actorsys/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMailboxSize is the mailbox capacity used when none is configured
	DefaultMailboxSize = 100
	// instrumentationName names the tracer and meter of the runtime
	instrumentationName = "github.com/super-flat/actorsys/actors"
	// actorInitMaxRetries bounds the attempts of Initializer.Init
	actorInitMaxRetries = 10
)

// Option helps defines custom options of an ActorSystem
type Option func(config *systemConfig)

// WithName sets the actor system name used in logs and metrics
func WithName(name string) Option {
	return func(config *systemConfig) {
		config.name = name
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(config *systemConfig) {
		config.logger = logger
	}
}

// WithDefaultMailboxSize sets the mailbox capacity of actors created without WithMailboxSize
func WithDefaultMailboxSize(size int) Option {
	return func(config *systemConfig) {
		if size > 0 {
			config.mailboxSize = size
		}
	}
}

// WithTracerProvider sets the trace provider. The global provider is used otherwise.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(config *systemConfig) {
		config.tracerProvider = provider
	}
}

// WithMeterProvider sets the meter provider. The global provider is used otherwise.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(config *systemConfig) {
		config.meterProvider = provider
	}
}

// WithInitRetry sets how many times Initializer.Init is retried and the first
// backoff interval between attempts
func WithInitRetry(maxRetries uint64, initialInterval time.Duration) Option {
	return func(config *systemConfig) {
		config.initMaxRetries = maxRetries
		config.initInterval = initialInterval
	}
}

// SpawnOption customizes a single actor
type SpawnOption func(config *spawnConfig)

type spawnConfig struct {
	mailboxSize int
}

// WithMailboxSize sets the capacity of the actor's mailbox
func WithMailboxSize(size int) SpawnOption {
	return func(config *spawnConfig) {
		if size > 0 {
			config.mailboxSize = size
		}
	}
}
