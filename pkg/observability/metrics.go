package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the HTTP and pipeline instruments, all exported from one registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedClients  prometheus.GaugeFunc

	provider   *sdkmetric.MeterProvider
	rejections metric.Int64Counter
	handled    metric.Int64Counter
}

// NewMetrics creates and registers all metrics. clientCount feeds the
// tracked-clients gauge and may be nil.
func NewMetrics(registry *prometheus.Registry, clientCount func() int) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if clientCount == nil {
		clientCount = func() int { return 0 }
	}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RateLimitedClients: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "dashboard_rate_limiter_clients",
				Help: "Clients currently tracked by the API rate limiter",
			},
			func() float64 { return float64(clientCount()) },
		),
	}

	for _, c := range []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RateLimitedClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	m.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := m.provider.Meter(TracerName)

	if m.rejections, err = meter.Int64Counter(
		"dashboard.pipeline.rejections",
		metric.WithDescription("Requests rejected by a pipeline guard"),
	); err != nil {
		return nil, err
	}
	if m.handled, err = meter.Int64Counter(
		"dashboard.pipeline.handled",
		metric.WithDescription("Requests that passed every guard and reached a handler"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordRejection counts a guard rejection.
func (m *Metrics) RecordRejection(ctx context.Context, route, stage, code string) {
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("stage", stage),
		attribute.String("code", code),
	))
}

// RecordHandled counts a request that reached its handler.
func (m *Metrics) RecordHandled(ctx context.Context, route string) {
	m.handled.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}

// Shutdown flushes the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
