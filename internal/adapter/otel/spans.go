package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "wayfarer"

// StartTurnSpan starts a span for one conversation turn.
func StartTurnSpan(ctx context.Context, sessionID, turnID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("turn.id", turnID),
		),
	)
}

// StartTaskSpan starts a span for one provider dispatch within a turn.
func StartTaskSpan(ctx context.Context, sessionID, task string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("task.name", task),
		),
	)
}
