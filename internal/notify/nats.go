package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectNotification carries Notification payloads.
	SubjectNotification = "notification"
	// SubjectCartCount carries CountMessage payloads.
	SubjectCartCount = "cart.count"
)

// NATSConfig holds NATS publisher configuration.
type NATSConfig struct {
	URL string

	// SubjectPrefix namespaces every subject, e.g. "sparks" publishes to
	// "sparks.notification". Default: "sparks"
	SubjectPrefix string

	// Logger is used for structured logging (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// CountMessage is published after every successful cart mutation.
type CountMessage struct {
	Count int       `json:"count"`
	Time  time.Time `json:"time"`
}

// NATS publishes notifications and cart counts so other processes (a badge,
// a desktop notifier) can follow along.
type NATS struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// ConnectNATS dials the server. The connection retries in the background
// when the server is not yet up.
func ConnectNATS(cfg NATSConfig) (*NATS, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "sparks"
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("sparks"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", "url", cfg.URL, "prefix", prefix)
	return &NATS{nc: nc, prefix: prefix, logger: logger}, nil
}

// Subject returns the full subject for name.
func (p *NATS) Subject(name string) string {
	return p.prefix + "." + name
}

func (p *NATS) Notify(_ context.Context, n Notification) error {
	return p.publish(SubjectNotification, n)
}

// PublishCount publishes the cart item count.
func (p *NATS) PublishCount(_ context.Context, count int) error {
	return p.publish(SubjectCartCount, CountMessage{Count: count, Time: time.Now().UTC()})
}

func (p *NATS) publish(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", name, err)
	}
	if err := p.nc.Publish(p.Subject(name), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return nil
}

// Conn exposes the underlying connection (for subscribers in the same process).
func (p *NATS) Conn() *nats.Conn {
	return p.nc
}

// Close drains pending messages and closes the connection.
func (p *NATS) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
