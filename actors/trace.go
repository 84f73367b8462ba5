package actors

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

func getSpanContext(ctx context.Context, tracer trace.Tracer, methodName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, methodName)
}
