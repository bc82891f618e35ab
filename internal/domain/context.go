// Package domain provides the catalog and cart types shared by every engine,
// the error taxonomy, and context helpers.
//
// Types here mirror the remote service's JSON and carry no behaviour that
// needs I/O.
package domain

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey contextKey = iota

	// originContextKey stores which user action started a request.
	originContextKey
)

// NewContextWithRequestID returns a new context with the request ID attached.
// Outgoing remote calls reuse it instead of minting a fresh one.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// NewContextWithOrigin tags ctx with the action that triggered it
// (e.g. "reset", "append", "cart.add_item"). Used as a log and metric label.
func NewContextWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originContextKey, origin)
}

// OriginFromContext returns the origin tag, or "unknown".
func OriginFromContext(ctx context.Context) string {
	if origin, ok := ctx.Value(originContextKey).(string); ok && origin != "" {
		return origin
	}
	return "unknown"
}
