// Package middleware holds net/http middleware for the local dev server:
// request ids, access logging and Prometheus request metrics.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records what the dev server was asked and how it answered.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	size     *prometheus.HistogramVec
}

// NewMetrics creates the server metrics under <namespace>_devserver_ and
// registers them on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "sparks"
	}
	factory := promauto.With(reg)
	labels := []string{"method", "path", "status"}

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "devserver",
			Name:      "http_requests_total",
			Help:      "Requests served, by method, route and status",
		}, labels),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "devserver",
			Name:      "http_request_duration_seconds",
			Help:      "Time to serve a request",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, labels),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "devserver",
			Name:      "http_requests_in_flight",
			Help:      "Requests being served",
		}),
		size: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "devserver",
			Name:      "http_response_size_bytes",
			Help:      "Response body size",
			Buckets:   prometheus.ExponentialBuckets(128, 4, 6),
		}, labels),
	}
}

// Middleware wraps next with request accounting.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		lv := []string{r.Method, normalizePath(r.URL.Path), strconv.Itoa(rec.statusCode)}
		m.requests.WithLabelValues(lv...).Inc()
		m.latency.WithLabelValues(lv...).Observe(time.Since(start).Seconds())
		m.size.WithLabelValues(lv...).Observe(float64(rec.bytesWritten))
	})
}

// responseRecorder captures the status and body size of a response.
type responseRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *responseRecorder) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

// normalizePath replaces ids in catalog and cart paths with placeholders so
// label cardinality stays bounded.
//
//	/products/12/                     -> /products/:id/
//	/products/related-product/12/     -> /products/related-product/:id/
//	/cart/7/items/                    -> /cart/:id/items/
//	/cart/7/items/1001/               -> /cart/:id/items/:item/
func normalizePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(segments) == 2 && segments[0] == "products":
		return "/products/:id/"
	case len(segments) == 3 && segments[0] == "products" && segments[1] == "related-product":
		return "/products/related-product/:id/"
	case len(segments) == 3 && segments[0] == "cart" && segments[2] == "items":
		return "/cart/:id/items/"
	case len(segments) == 4 && segments[0] == "cart" && segments[2] == "items":
		return "/cart/:id/items/:item/"
	}
	return path
}
