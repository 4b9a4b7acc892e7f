package tracing

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const opIDKey contextKey = "op_id"

// OpIDFromContext returns the operation id stored in ctx, or "".
func OpIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(opIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithOpID returns ctx carrying opID. An empty id leaves ctx unchanged.
func ContextWithOpID(ctx context.Context, opID string) context.Context {
	if opID == "" {
		return ctx
	}
	return context.WithValue(ctx, opIDKey, opID)
}

// EnsureOpID reuses the caller's operation id or mints a new one, so nested
// calls made on behalf of one command share an id.
func EnsureOpID(ctx context.Context) (context.Context, string) {
	if id := OpIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return ContextWithOpID(ctx, id), id
}
