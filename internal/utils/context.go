package utils

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type key int

const (
	// CtxRequestID context key for the request id
	CtxRequestID key = iota
)

// WithRequestID attaches a fresh request id to ctx if it carries none.
func WithRequestID(ctx context.Context) (context.Context, string) {
	if id, ok := ctx.Value(CtxRequestID).(string); ok {
		return ctx, id
	}
	id := ulid.Make().String()
	return context.WithValue(ctx, CtxRequestID, id), id
}

// RequestID returns the request id from ctx or an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(CtxRequestID).(string)
	return id
}
