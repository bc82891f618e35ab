package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Log writes notifications to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, n.Message,
		"code", n.Code,
		"op", n.Op,
		"request_id", n.RequestID,
	)
	return nil
}

// Writer prints one line per notification, the way a toast would show it.
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

func (w *Writer) Notify(_ context.Context, n Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.W, "! %s\n", n.Message)
	return err
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	seen []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
	return nil
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.seen...)
}
