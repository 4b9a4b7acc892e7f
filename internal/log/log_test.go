package log

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "", want: LevelDebug},
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: " error ", want: LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLog_FormatsFieldsAndPublishes(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener := NewListener(ctx)
	require.NotNil(t, listener)

	Info(CatMerge, "fast-forward", "branch", "feature", "oid")

	out := buf.String()
	require.Contains(t, out, "[INFO] [merge] fast-forward branch=feature oid=<missing>")
	require.True(t, strings.HasSuffix(out, "\n"))

	event, ok := listener.Next()
	require.True(t, ok)
	require.Equal(t, out, event.Payload)
}

func TestLog_RespectsMinLevelAndEnabled(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)

	SetMinLevel(LevelWarn)
	Debug(CatRepo, "hidden")
	Info(CatRepo, "hidden")
	ErrorErr(CatExec, "apply failed", errors.New("patch does not apply"))
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "error=patch does not apply")

	buf.Reset()
	SetEnabled(false)
	Error(CatRepo, "muted")
	require.Empty(t, buf.String())
}
