package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dukerupert/sparks/internal/domain"
)

// Page fetch outcomes.
const (
	PageApplied = "applied"
	PageStale   = "stale"
	PageFailed  = "failed"
)

// Metrics holds Prometheus metrics for catalog paging, cart sync and the
// remote client. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Catalog
	PagesFetched   *prometheus.CounterVec
	ProductsMerged prometheus.Counter
	Resets         prometheus.Counter

	// Cart
	CartMutations *prometheus.CounterVec
	CartItemCount prometheus.Gauge

	// Remote service
	RemoteRequests *prometheus.CounterVec
	RemoteLatency  *prometheus.HistogramVec

	// Product detail cache
	CacheLookups *prometheus.CounterVec

	// User-visible notifications
	Notifications *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "sparks"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// =======================================================================
		// Catalog
		// =======================================================================
		PagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "pages_fetched_total",
				Help:      "Total product pages fetched, by trigger and outcome",
			},
			[]string{"origin", "outcome"}, // origin: reset, append; outcome: applied, stale, failed
		),
		ProductsMerged: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "products_merged_total",
				Help:      "Total previously unseen products added to the collection",
			},
		),
		Resets: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "resets_total",
				Help:      "Total query changes that restarted pagination",
			},
		),

		// =======================================================================
		// Cart
		// =======================================================================
		CartMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "operations_total",
				Help:      "Total cart operations, by operation and result code",
			},
			[]string{"operation", "result"}, // result: ok or an error code
		),
		CartItemCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "item_count",
				Help:      "Sum of quantities in the local cart mirror",
			},
		),

		// =======================================================================
		// Remote service
		// =======================================================================
		RemoteRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "requests_total",
				Help:      "Total requests to the catalog/cart service",
			},
			[]string{"method", "route", "status"},
		),
		RemoteLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "remote",
				Name:      "request_duration_seconds",
				Help:      "Latency of requests to the catalog/cart service",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		// =======================================================================
		// Cache
		// =======================================================================
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Product detail cache lookups",
			},
			[]string{"result"}, // hit, miss
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notify",
				Name:      "notifications_total",
				Help:      "User-visible notifications, by error code",
			},
			[]string{"code"},
		),
	}
}

// ObservePage records a page fetch outcome.
func (m *Metrics) ObservePage(origin, outcome string) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(origin, outcome).Inc()
}

// ObserveMerge records how many new products a merge contributed.
func (m *Metrics) ObserveMerge(added int) {
	if m == nil || added <= 0 {
		return
	}
	m.ProductsMerged.Add(float64(added))
}

// ObserveReset records a pagination restart.
func (m *Metrics) ObserveReset() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

// ObserveCart records a cart operation and the resulting item count.
func (m *Metrics) ObserveCart(operation string, err error, itemCount int) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = domain.ErrorCode(err)
	} else {
		m.CartItemCount.Set(float64(itemCount))
	}
	m.CartMutations.WithLabelValues(operation, result).Inc()
}

// ObserveRemote records one remote request. status 0 means no response.
func (m *Metrics) ObserveRemote(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.RemoteRequests.WithLabelValues(method, route, code).Inc()
	m.RemoteLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveNotification records a user-visible notification.
func (m *Metrics) ObserveNotification(code string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(code).Inc()
}
