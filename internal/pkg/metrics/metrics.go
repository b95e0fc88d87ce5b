package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Outcome label values shared by the upstream and sequence metrics.
const (
	OutcomeMatch     = "match"
	OutcomeNoMatch   = "no_match"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeCompleted = "completed"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapview",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapview",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Upstream metrics
	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "upstream",
		Name:      "geocode_requests_total",
		Help:      "Total Nominatim lookups by outcome",
	}, []string{"outcome"})

	RouteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "upstream",
		Name:      "route_requests_total",
		Help:      "Total OSRM route requests by outcome",
	}, []string{"outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mapview",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of geocoding and routing calls",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service"})

	// Orchestration metrics
	SequencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "orchestrator",
		Name:      "sequences_total",
		Help:      "Resolution sequences by outcome",
	}, []string{"outcome"})

	SequenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mapview",
		Subsystem: "orchestrator",
		Name:      "sequence_duration_seconds",
		Help:      "Wall time of a resolution sequence",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapview",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Current number of mounted map sessions",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapview",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Session events published by kind",
	}, []string{"kind"})

	EventPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mapview",
		Subsystem: "events",
		Name:      "publish_errors_total",
		Help:      "Session events that failed to publish",
	})
)

// ObserveUpstream records the latency of a call to service since start.
func ObserveUpstream(service string, start time.Time) {
	UpstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		// fiber resolves to the route pattern so :id stays unexpanded
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
