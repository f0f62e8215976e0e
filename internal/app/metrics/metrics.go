package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/R3E-Network/calcstore/internal/app/storage"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "calcstore",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calcstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "calcstore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	sessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calcstore",
			Subsystem: "store",
			Name:      "sessions_total",
			Help:      "Units of work by outcome.",
		},
		[]string{"outcome"},
	)

	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "calcstore",
			Subsystem: "store",
			Name:      "session_duration_seconds",
			Help:      "Duration of units of work from begin to commit or rollback.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"outcome"},
	)

	itemsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calcstore",
			Subsystem: "catalog",
			Name:      "items_created_total",
			Help:      "Total number of items persisted.",
		},
	)

	additions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calcstore",
			Subsystem: "arithmetic",
			Name:      "additions_total",
			Help:      "Total number of additions served, by add mode.",
		},
		[]string{"mode"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		sessions,
		sessionDuration,
		itemsCreated,
		additions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordItemCreated counts a persisted item.
func RecordItemCreated() {
	itemsCreated.Inc()
}

// RecordAddition counts a served addition for the given mode.
func RecordAddition(mode string) {
	if mode == "" {
		mode = "unknown"
	}
	additions.WithLabelValues(mode).Inc()
}

// InstrumentGateway wraps g so every unit of work is counted and timed.
func InstrumentGateway(g storage.Gateway) storage.Gateway {
	return instrumentedGateway{next: g}
}

type instrumentedGateway struct {
	next storage.Gateway
}

func (g instrumentedGateway) WithSession(ctx context.Context, fn func(storage.Session) error) error {
	start := time.Now()
	outcome := "rollback"
	defer func() {
		sessions.WithLabelValues(outcome).Inc()
		sessionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	err := g.next.WithSession(ctx, fn)
	if err == nil {
		outcome = "commit"
	}
	return err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses request paths to a bounded label set.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	switch first := strings.SplitN(trimmed, "/", 2)[0]; first {
	case "add", "items", "operations", "favicon.ico", "static":
		return "/" + first
	default:
		return "/other"
	}
}
