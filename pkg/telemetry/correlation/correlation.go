// Package correlation tags outbound messages with an ID that ties them back
// to the request and trace that produced them.
package correlation

import (
	"context"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderID      = "X-Correlation-Id"
	HeaderTraceID = "X-Trace-Id"
	HeaderSpanID  = "X-Span-Id"
)

type idKey struct{}

func ID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(idKey{}).(string)
	return id
}

func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, idKey{}, id)
}

// Ensure returns ctx carrying an ID, minting a ULID when none is set.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := ID(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return WithID(ctx, id), id
}

// Headers returns the mail headers for ctx. Trace headers are only set when
// ctx carries a valid span.
func Headers(ctx context.Context) map[string]string {
	_, id := Ensure(ctx)
	out := map[string]string{HeaderID: id}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out[HeaderTraceID] = sc.TraceID().String()
		out[HeaderSpanID] = sc.SpanID().String()
	}
	return out
}
