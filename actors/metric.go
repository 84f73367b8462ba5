package actors

import (
	"go.opentelemetry.io/otel/metric"
)

// metrics groups the OpenTelemetry instruments of an actor system
//
// Instruments:
//   - actors.spawned.count  (Int64Counter)
//   - actors.active.count   (Int64UpDownCounter)
//   - actors.handled.count  (Int64Counter)
//   - actors.failures.count (Int64Counter)
//   - actors.deadletters.count (Int64Counter)
type metrics struct {
	spawned     metric.Int64Counter
	active      metric.Int64UpDownCounter
	handled     metric.Int64Counter
	failures    metric.Int64Counter
	deadLetters metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	var instruments metrics
	var err error

	if instruments.spawned, err = meter.Int64Counter(
		"actors.spawned.count",
		metric.WithDescription("Total number of actors admitted onto the executor"),
	); err != nil {
		return nil, err
	}

	if instruments.active, err = meter.Int64UpDownCounter(
		"actors.active.count",
		metric.WithDescription("Number of processing loops currently running"),
	); err != nil {
		return nil, err
	}

	if instruments.handled, err = meter.Int64Counter(
		"actors.handled.count",
		metric.WithDescription("Total number of messages handled successfully"),
	); err != nil {
		return nil, err
	}

	if instruments.failures, err = meter.Int64Counter(
		"actors.failures.count",
		metric.WithDescription("Total number of actors terminated by a handler failure"),
	); err != nil {
		return nil, err
	}

	if instruments.deadLetters, err = meter.Int64Counter(
		"actors.deadletters.count",
		metric.WithDescription("Total number of admitted messages that were never handled"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}
