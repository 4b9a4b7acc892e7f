package tracing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type kindErr struct{ kind string }

func (e kindErr) Error() string    { return e.kind + " failure" }
func (e kindErr) KindName() string { return e.kind }

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func TestStartEnd_Success(t *testing.T) {
	rec, tp := newRecorder()

	_, span := Start(context.Background(), tp.Tracer("test"), "stage_hunk",
		attribute.String(AttrGitPath, "main.go"))
	End(span, nil)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "repo.stage_hunk", spans[0].Name())
	require.Equal(t, codes.Ok, spans[0].Status().Code)
	require.Contains(t, spans[0].Attributes(), attribute.String(AttrGitPath, "main.go"))
}

func TestStartEnd_ErrorRecordsKind(t *testing.T) {
	rec, tp := newRecorder()

	_, span := Start(context.Background(), tp.Tracer("test"), "merge")
	End(span, fmt.Errorf("merge feature: %w", kindErr{kind: "precondition"}))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Contains(t, spans[0].Attributes(), attribute.String(AttrErrorKind, "precondition"))
	require.Len(t, spans[0].Events(), 1, "RecordError adds an exception event")
}

func TestStart_NilTracer(t *testing.T) {
	ctx, span := Start(context.Background(), nil, "status")
	require.NotNil(t, ctx)
	require.False(t, span.IsRecording())
	End(span, errors.New("ignored"))
}

func TestEnsureOpID(t *testing.T) {
	ctx, id := EnsureOpID(context.Background())
	require.Len(t, id, 36)
	require.Equal(t, id, OpIDFromContext(ctx))

	_, again := EnsureOpID(ctx)
	require.Equal(t, id, again, "nested calls reuse the outer id")

	require.Empty(t, OpIDFromContext(context.Background()))
	require.Equal(t, context.Background(), ContextWithOpID(context.Background(), ""))
}
