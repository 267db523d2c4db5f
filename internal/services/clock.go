package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/fantasy-letters-backend/internal/observability"
)

// nowFunc returns the UTC time from now, or the wall clock when now is nil.
func nowFunc(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}

func startSpan(ctx context.Context, tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return observability.StartSpan(ctx, tracer, name, opts...)
}
