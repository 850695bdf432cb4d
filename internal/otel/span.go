// Package otel provides OpenTelemetry instrumentation helpers shared by the
// sync engine, the stores and the HTTP API.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on sync spans.
const (
	AttrThreadID      = attribute.Key("thread.id")
	AttrRunID         = attribute.Key("sync.run_id")
	AttrThreadCount   = attribute.Key("sync.thread_count")
	AttrTarget        = attribute.Key("sync.target")
	AttrFetched       = attribute.Key("sync.fetched")
	AttrPageSize      = attribute.Key("pagination.limit")
	AttrPageIteration = attribute.Key("pagination.iteration")
	AttrResultCount   = attribute.Key("result.count")
	AttrStatus        = attribute.Key("sync.status")
	AttrPartition     = attribute.Key("db.collection.name")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// StartDBSpan is StartSpan for a storage call: the span is a client span
// carrying the db.system attribute.
func StartDBSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	system attribute.KeyValue,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	return StartSpan(ctx, tracer, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append([]attribute.KeyValue{system}, attrs...)...),
	)
}

// RecordError records an error on a span and sets the span status to error.
// The status description stays generic so that queries and connection strings
// never end up in the status; the error itself is kept in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
