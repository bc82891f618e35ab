package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dukerupert/sparks/internal/domain"
)

// SentryConfig configures error capture. Only server and internal failures
// are ever sent; see Reportable.
type SentryConfig struct {
	DSN              string // required when Enabled
	Enabled          bool
	Environment      string // dev or prod
	Release          string
	SampleRate       float64 // fraction of errors sent, 0 means all
	TracesSampleRate float64 // fraction of remote calls traced
	Debug            bool
}

var sentryEnabled atomic.Bool

// InitSentry installs the Sentry client and returns a function that flushes
// pending events.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	sentryEnabled.Store(false)

	if !cfg.Enabled {
		logger.Debug("Sentry disabled")
		return func() {}, nil
	}

	if cfg.DSN == "" {
		logger.Warn("Sentry DSN not configured, disabling error tracking")
		return func() {}, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// User-correctable failures are not bugs.
			if hint != nil && hint.OriginalException != nil && !Reportable(hint.OriginalException) {
				return nil
			}
			return event
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	sentryEnabled.Store(true)

	logger.Info("Sentry initialized",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", sampleRate,
	)

	return func() { sentry.Flush(2 * time.Second) }, nil
}

// IsEnabled returns whether Sentry is currently enabled
func IsEnabled() bool {
	return sentryEnabled.Load()
}

// Reportable reports whether err is worth sending to Sentry: server and
// internal failures are, while stock, auth, validation, network and stale
// outcomes are expected.
func Reportable(err error) bool {
	switch domain.ErrorCode(err) {
	case domain.ESERVER, domain.EINTERNAL:
		return true
	default:
		return false
	}
}

// CaptureError captures a reportable error using the hub on ctx, tagged with
// the operation and request id.
// Safe to call even when Sentry is disabled
func CaptureError(ctx context.Context, err error, extras map[string]interface{}) {
	if !IsEnabled() || err == nil || !Reportable(err) {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", domain.ErrorCode(err))
		if op := domain.ErrorOp(err); op != "" {
			scope.SetTag("op", op)
		}
		if id := domain.RequestIDFromContext(ctx); id != "" {
			scope.SetTag("request_id", id)
		}
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		hub.CaptureException(err)
	})
}

// AddBreadcrumb records a breadcrumb on the current hub. No-op while Sentry
// is disabled.
func AddBreadcrumb(category, message string, data map[string]interface{}) {
	if !IsEnabled() {
		return
	}

	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Data:     data,
		Level:    sentry.LevelInfo,
	})
}

// HTTPTransport records a Sentry span per outgoing request. It is a
// pass-through while Sentry is disabled.
type HTTPTransport struct {
	Transport http.RoundTripper
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	if !IsEnabled() {
		return next.RoundTrip(req)
	}

	span := sentry.StartSpan(req.Context(), "http.client")
	span.Description = fmt.Sprintf("%s %s", req.Method, req.URL.Path)
	if id := domain.RequestIDFromContext(req.Context()); id != "" {
		span.SetTag("request_id", id)
	}
	defer span.Finish()

	resp, err := next.RoundTrip(req)
	switch {
	case err != nil:
		span.Status = sentry.SpanStatusUnavailable
	case resp.StatusCode >= 500:
		span.Status = sentry.SpanStatusInternalError
	case resp.StatusCode >= 400:
		span.Status = sentry.SpanStatusInvalidArgument
	default:
		span.Status = sentry.SpanStatusOK
	}
	if resp != nil {
		span.SetData("http.status_code", resp.StatusCode)
	}
	return resp, err
}
