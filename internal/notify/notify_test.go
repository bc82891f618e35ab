package notify_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/notify"
	"github.com/dukerupert/sparks/internal/telemetry"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		ok      bool
		code    string
		message string
	}{
		{name: "nil", err: nil, ok: false},
		{name: "stale", err: domain.ErrStaleResponse, ok: false},
		{name: "canceled", err: fmt.Errorf("get: %w", context.Canceled), ok: false},
		{name: "stock", err: domain.StockExceeded("cart.add_item", 400, domain.MessageStockExceeded), ok: true, code: domain.ESTOCK, message: domain.MessageStockExceeded},
		{name: "auth", err: domain.Unauthorized("cart.resolve", "no token"), ok: true, code: domain.EUNAUTHORIZED, message: domain.MessageUnauthorized},
		{name: "server", err: domain.Server("remote.list_products", 500, "trace"), ok: true, code: domain.ESERVER, message: domain.MessageGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := notify.FromError(domain.NewContextWithRequestID(context.Background(), "r1"), tt.err)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.code, n.Code)
			assert.Equal(t, tt.message, n.Message)
			assert.Equal(t, "r1", n.RequestID)
		})
	}
}

func TestReporter_Report(t *testing.T) {
	rec := &notify.Recorder{}
	metrics := telemetry.NewMetrics("test", prometheus.NewRegistry())
	r := &notify.Reporter{Notifier: rec, Metrics: metrics}
	ctx := context.Background()

	require.NoError(t, r.Report(ctx, domain.Network(errors.New("dial"), "catalog.load_more")))
	require.NoError(t, r.Report(ctx, domain.ErrStaleResponse))
	require.NoError(t, r.Report(ctx, nil))

	all := rec.All()
	require.Len(t, all, 1)
	assert.Equal(t, domain.ENETWORK, all[0].Code)
	assert.Equal(t, "catalog.load_more", all[0].Op)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues(domain.ENETWORK)))
}

func TestReporter_NilIsNoop(t *testing.T) {
	var r *notify.Reporter
	assert.NoError(t, r.Report(context.Background(), errors.New("x")))
}

func TestMulti(t *testing.T) {
	a, b := &notify.Recorder{}, &notify.Recorder{}
	failing := notify.NotifierFunc(func(context.Context, notify.Notification) error {
		return errors.New("sink down")
	})

	err := notify.Multi{a, nil, failing, b}.Notify(context.Background(), notify.Notification{Code: "x"})

	assert.EqualError(t, err, "sink down")
	assert.Len(t, a.All(), 1)
	assert.Len(t, b.All(), 1)
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &notify.Writer{W: &buf}

	require.NoError(t, w.Notify(context.Background(), notify.Notification{Message: domain.MessageOutOfStock}))
	assert.Equal(t, "! "+domain.MessageOutOfStock+"\n", buf.String())
}
