package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "wayfarer"

// Metrics holds all Wayfarer metric instruments.
type Metrics struct {
	TurnsHandled  metric.Int64Counter
	TasksStarted  metric.Int64Counter
	TasksSucceed  metric.Int64Counter
	TasksFailed   metric.Int64Counter
	Confirmations metric.Int64Counter
	TurnDuration  metric.Float64Histogram
	TaskDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TurnsHandled, err = meter.Int64Counter("wayfarer.turns.handled",
		metric.WithDescription("Number of conversation turns handled"))
	if err != nil {
		return nil, err
	}

	m.TasksStarted, err = meter.Int64Counter("wayfarer.tasks.started",
		metric.WithDescription("Number of task dispatches started"))
	if err != nil {
		return nil, err
	}

	m.TasksSucceed, err = meter.Int64Counter("wayfarer.tasks.succeeded",
		metric.WithDescription("Number of task dispatches that succeeded"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("wayfarer.tasks.failed",
		metric.WithDescription("Number of task dispatches that failed"))
	if err != nil {
		return nil, err
	}

	m.Confirmations, err = meter.Int64Counter("wayfarer.sessions.confirmed",
		metric.WithDescription("Number of session confirmations"))
	if err != nil {
		return nil, err
	}

	m.TurnDuration, err = meter.Float64Histogram("wayfarer.turn.duration_seconds",
		metric.WithDescription("Turn duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.TaskDuration, err = meter.Float64Histogram("wayfarer.task.duration_seconds",
		metric.WithDescription("Provider call duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
