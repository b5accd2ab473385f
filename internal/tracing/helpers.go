// Package tracing provides OpenTelemetry distributed tracing setup and utilities.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartUpstreamSpan creates a new span for a call to the events backend.
// Returns the new context and a function to end the span.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartUpstreamSpan(ctx, "Nearby Data")
//	defer endSpan(err)
//	// ... perform upstream request ...
func StartUpstreamSpan(ctx context.Context, endpoint string) (context.Context, func(error)) {
	tracer := otel.Tracer("mapfeed/upstream")

	ctx, span := tracer.Start(ctx, "upstream "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("peer.service", "events-backend"),
			attribute.String("upstream.endpoint", endpoint),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// CacheOperation represents the type of cache operation being traced.
type CacheOperation string

const (
	// CacheOperationGet represents a cache read.
	CacheOperationGet CacheOperation = "get"
	// CacheOperationSet represents a cache write.
	CacheOperationSet CacheOperation = "set"
)

// StartCacheSpan creates a new span for a Redis cache operation.
// Returns the new context and a function to end the span.
func StartCacheSpan(ctx context.Context, operation CacheOperation) (context.Context, func(error)) {
	tracer := otel.Tracer("mapfeed/cache")

	ctx, span := tracer.Start(ctx, "cache "+string(operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", string(operation)),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// StartSpan creates a new span for a general operation.
// Returns the new context and a function to end the span.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartSpan(ctx, "build_clusters")
//	defer endSpan(err)
//	// ... perform operation ...
func StartSpan(ctx context.Context, name string) (context.Context, func(error)) {
	tracer := otel.Tracer("mapfeed")

	ctx, span := tracer.Start(ctx, name)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrs...)
}
