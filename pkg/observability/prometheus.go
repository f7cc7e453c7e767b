package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkscope"

// PrometheusHooks implements every hook interface on top of Prometheus
// collectors.
type PrometheusHooks struct {
	expansions      *prometheus.CounterVec
	expandDuration  *prometheus.HistogramVec
	expandTriples   prometheus.Histogram
	layouts         *prometheus.CounterVec
	layoutDuration  *prometheus.HistogramVec
	viewOps         *prometheus.CounterVec
	viewNodes       *prometheus.HistogramVec
	cacheEvents     *prometheus.CounterVec
	cacheBytes      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpErrors      *prometheus.CounterVec
	inflightExpands prometheus.Gauge
}

// NewPrometheusHooks creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		expansions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "expansion",
			Name:      "total",
			Help:      "Neighbor expansions by status",
		}, []string{"status"}),
		expandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "expansion",
			Name:      "duration_seconds",
			Help:      "Neighbor expansion latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"status"}),
		expandTriples: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "expansion",
			Name:      "triples",
			Help:      "Triples returned per expansion",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		}),
		inflightExpands: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "expansion",
			Name:      "inflight",
			Help:      "Expansions currently in flight",
		}),
		layouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "total",
			Help:      "Layout computations by algorithm and status",
		}, []string{"algorithm", "status"}),
		layoutDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "duration_seconds",
			Help:      "Layout computation time in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"algorithm"}),
		viewOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "views",
			Name:      "operations_total",
			Help:      "View save/load operations by status",
		}, []string{"op", "status"}),
		viewNodes: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "views",
			Name:      "nodes",
			Help:      "Nodes per saved or loaded view",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"op"}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Cache hits, misses and writes by key type",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"key_type"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, host and status code class",
		}, []string{"method", "host", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "host"}),
		httpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "HTTP requests that failed without a response",
		}, []string{"method", "host"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (h *PrometheusHooks) OnExpandStart(context.Context, string, int) {
	h.inflightExpands.Inc()
}

func (h *PrometheusHooks) OnExpandComplete(_ context.Context, _ string, triples int, d time.Duration, err error) {
	h.inflightExpands.Dec()
	h.expansions.WithLabelValues(status(err)).Inc()
	h.expandDuration.WithLabelValues(status(err)).Observe(d.Seconds())
	if err == nil {
		h.expandTriples.Observe(float64(triples))
	}
}

func (h *PrometheusHooks) OnLayoutStart(context.Context, string, int) {}

func (h *PrometheusHooks) OnLayoutComplete(_ context.Context, algorithm string, d time.Duration, err error) {
	h.layouts.WithLabelValues(algorithm, status(err)).Inc()
	h.layoutDuration.WithLabelValues(algorithm).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnViewSave(_ context.Context, nodes int, _ time.Duration, err error) {
	h.viewOps.WithLabelValues("save", status(err)).Inc()
	if err == nil {
		h.viewNodes.WithLabelValues("save").Observe(float64(nodes))
	}
}

func (h *PrometheusHooks) OnViewLoad(_ context.Context, nodes int, _ time.Duration, err error) {
	h.viewOps.WithLabelValues("load", status(err)).Inc()
	if err == nil {
		h.viewNodes.WithLabelValues("load").Observe(float64(nodes))
	}
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, host, _ string, code int, d time.Duration) {
	h.httpRequests.WithLabelValues(method, host, statusCode(code)).Inc()
	h.httpDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnError(_ context.Context, method, host, _ string, _ error) {
	h.httpErrors.WithLabelValues(method, host).Inc()
}

func statusCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var (
	_ ExplorerHooks = (*PrometheusHooks)(nil)
	_ CacheHooks    = (*PrometheusHooks)(nil)
	_ HTTPHooks     = (*PrometheusHooks)(nil)
)
