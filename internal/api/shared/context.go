// Package shared holds the request context keys and JSON response helpers
// used by the api package and its middleware.
package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"go.opentelemetry.io/otel/trace"
)

// ContextKey is the type of request context keys set by this package.
type ContextKey string

const (
	// TraceIDKey holds the trace ID echoed in error responses.
	TraceIDKey ContextKey = "traceID"

	// PrincipalKey holds the authenticated *Principal.
	PrincipalKey ContextKey = "principal"

	// TraceIDLength is the number of random bytes in a generated trace ID.
	TraceIDLength = 16
)

// SetTraceID stores a trace ID in ctx. The OpenTelemetry trace ID is reused
// when a span is active so logs and traces correlate.
func SetTraceID(ctx context.Context) context.Context {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return context.WithValue(ctx, TraceIDKey, sc.TraceID().String())
	}
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID returns the trace ID stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Scheme names the authentication scheme a request used.
type Scheme string

// Authentication schemes.
const (
	SchemeBearer Scheme = "Bearer"
	SchemeToken  Scheme = "Token"
	SchemeBasic  Scheme = "Basic"
)

// Principal is the authenticated user of a request.
type Principal struct {
	UserID    int64
	Username  string
	Email     string
	Staff     bool
	Superuser bool
	Scheme    Scheme
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal returns the authenticated user, if any.
func GetPrincipal(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*Principal)
	return p, ok && p != nil
}
