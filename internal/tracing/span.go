package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// kinded is implemented by errors that carry a category name.
type kinded interface {
	KindName() string
}

// Start opens an internal span named repo.<op>. A nil tracer yields a
// non-recording span.
func Start(ctx context.Context, tracer trace.Tracer, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return tracer.Start(ctx, SpanPrefixRepo+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// End records err on span, sets the status and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var k kinded
		if errors.As(err, &k) {
			span.SetAttributes(attribute.String(AttrErrorKind, k.KindName()))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
