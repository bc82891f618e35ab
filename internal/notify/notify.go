// Package notify is the single user-visible notification channel. Engines
// report classified failures here; sinks render them (log, NATS, terminal).
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/telemetry"
)

// Notification is one message shown to the user.
type Notification struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Op        string    `json:"op,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Time      time.Time `json:"time"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// CountPublisher receives the cart item count after every successful cart
// mutation.
type CountPublisher interface {
	PublishCount(ctx context.Context, count int) error
}

// FromError builds the notification for err. ok is false for errors the user
// must never see: nil, stale responses and caller cancellation.
func FromError(ctx context.Context, err error) (n Notification, ok bool) {
	if err == nil || errors.Is(err, context.Canceled) || domain.IsCode(err, domain.ESTALE) {
		return Notification{}, false
	}
	return Notification{
		Code:      domain.ErrorCode(err),
		Message:   domain.ErrorMessage(err),
		Op:        domain.ErrorOp(err),
		RequestID: domain.RequestIDFromContext(ctx),
		Time:      time.Now().UTC(),
	}, true
}

// Reporter turns errors into notifications and forwards reportable ones to
// Sentry. A nil *Reporter drops everything.
type Reporter struct {
	Notifier Notifier
	Metrics  *telemetry.Metrics
}

// Report classifies err and delivers it. Delivery failures are returned but
// never replace err at the call site.
func (r *Reporter) Report(ctx context.Context, err error) error {
	if r == nil {
		return nil
	}
	n, ok := FromError(ctx, err)
	if !ok {
		return nil
	}
	r.Metrics.ObserveNotification(n.Code)
	telemetry.CaptureError(ctx, err, map[string]interface{}{"op": n.Op})
	if r.Notifier == nil {
		return nil
	}
	return r.Notifier.Notify(ctx, n)
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
