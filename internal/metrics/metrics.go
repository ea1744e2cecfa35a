package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "overlay",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method"})

	// Editor metrics
	Overlays = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "overlay",
		Subsystem: "editor",
		Name:      "overlays",
		Help:      "Live overlays by kind",
	}, []string{"kind"})

	SamplesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Subsystem: "editor",
		Name:      "samples_processed_total",
		Help:      "Pointer-move samples that recomputed geometry",
	}, []string{"state"})

	SamplesThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "overlay",
		Subsystem: "editor",
		Name:      "samples_throttled_total",
		Help:      "Pointer-move samples discarded by the throttle",
	})

	MoveEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Subsystem: "editor",
		Name:      "move_events_total",
		Help:      "Move notifications sent to listeners",
	}, []string{"kind"})

	DoubleClicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overlay",
		Subsystem: "editor",
		Name:      "double_clicks_total",
		Help:      "Double-clicks by target (map or edge)",
	}, []string{"target"})

	ViewportFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "overlay",
		Subsystem: "editor",
		Name:      "viewport_failures_total",
		Help:      "Viewport queries that failed and kept the previous edge tolerance",
	})

	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "overlay",
		Subsystem: "sse",
		Name:      "active_streams",
		Help:      "Current number of open editor event streams",
	})

	EvictedSubscribers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "overlay",
		Subsystem: "bus",
		Name:      "evicted_subscribers_total",
		Help:      "Subscribers closed because their buffer overflowed",
	})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Middleware records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, req)

		httpRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
