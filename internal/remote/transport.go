package remote

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/telemetry"
)

// RequestIDHeader is the header name for request ID
const RequestIDHeader = "X-Request-ID"

type routeKey struct{}

// withRoute tags ctx with the templated route (e.g. "/cart/{id}/items/")
// so metrics stay low-cardinality.
func withRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFrom(ctx context.Context, fallback string) string {
	if route, ok := ctx.Value(routeKey{}).(string); ok {
		return route
	}
	return fallback
}

// Transport instruments outgoing requests: it stamps an X-Request-ID, logs
// the round trip and records latency. Sentry spans come from the wrapped
// telemetry.HTTPTransport.
type Transport struct {
	Base    http.RoundTripper
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// NewTransport builds the default instrumented chain on top of base.
func NewTransport(base http.RoundTripper, logger *slog.Logger, metrics *telemetry.Metrics) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		Base:    &telemetry.HTTPTransport{Transport: base},
		Logger:  logger,
		Metrics: metrics,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(ctx)
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = domain.RequestIDFromContext(ctx)
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}
	req.Header.Set(RequestIDHeader, requestID)

	route := routeFrom(ctx, req.URL.Path)
	start := time.Now()

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	elapsed := time.Since(start)

	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		slog.String("method", req.Method),
		slog.String("route", route),
		slog.String("request_id", requestID),
		slog.String("origin", domain.OriginFromContext(ctx)),
		slog.Duration("duration", elapsed),
	}

	if err != nil {
		t.Metrics.ObserveRemote(req.Method, route, 0, elapsed)
		logger.Warn("remote request failed", append(attrs, slog.String("error", err.Error()))...)
		return nil, err
	}

	t.Metrics.ObserveRemote(req.Method, route, resp.StatusCode, elapsed)
	level := slog.LevelDebug
	if resp.StatusCode >= 500 {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "remote request", append(attrs, slog.Int("status", resp.StatusCode))...)

	return resp, nil
}
