package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestFileExporter_CreatesParentDirectories(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "nested", "dir", "traces.jsonl")

	exporter, err := NewFileExporter(tracePath)
	require.NoError(t, err)

	_, err = os.Stat(tracePath)
	require.NoError(t, err)
	require.NoError(t, exporter.Shutdown(context.Background()))
	require.NoError(t, exporter.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestFileExporter_LiftsOpIDAndRepoPath(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")
	exporter, err := NewFileExporter(tracePath)
	require.NoError(t, err)

	start := time.Now()
	stub := tracetest.SpanStub{
		Name:      "repo.merge",
		StartTime: start,
		EndTime:   start.Add(25 * time.Millisecond),
		Status:    sdktrace.Status{Code: codes.Error, Description: "unresolved conflicts remain"},
		Attributes: []attribute.KeyValue{
			attribute.String(AttrOpID, "op-1"),
			attribute.String(AttrRepoPath, "/work/repo"),
			attribute.String(AttrMergeKind, "conflict"),
		},
	}
	require.NoError(t, exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exporter.Shutdown(context.Background()))

	f, err := os.Open(tracePath)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var record SpanRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))

	require.Equal(t, "repo.merge", record.Name)
	require.Equal(t, "op-1", record.OpID)
	require.Equal(t, "/work/repo", record.RepoPath)
	require.Equal(t, "ERROR", record.Status)
	require.Equal(t, "unresolved conflicts remain", record.StatusMsg)
	require.Equal(t, map[string]any{AttrMergeKind: "conflict"}, record.Attributes)
	require.InDelta(t, 25.0, record.DurationMs, 0.001)
	require.False(t, scanner.Scan(), "exactly one line expected")
}

func TestFileExporter_ExportAfterShutdownFails(t *testing.T) {
	exporter, err := NewFileExporter(filepath.Join(t.TempDir(), "t.jsonl"))
	require.NoError(t, err)
	require.NoError(t, exporter.Shutdown(context.Background()))

	stub := tracetest.SpanStub{Name: "late"}
	err = exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()})
	require.Error(t, err)
}
