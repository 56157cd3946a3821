package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/nav"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "backoffice").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "backoffice",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// unmatchedRoute labels navigations that did not resolve to a route.
const unmatchedRoute = "unmatched"

// Metrics holds the navigation metrics. Create one per registry.
type Metrics struct {
	navigationsTotal   *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	faultsTotal        *prometheus.CounterVec
	staleTotal         prometheus.Counter
	activeRegions      prometheus.Gauge
	wsErrors           *prometheus.CounterVec
}

// NewMetrics registers the navigation metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		navigationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of navigations by route and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "outcome"}),

		navigationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation duration in seconds, including recovery",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		faultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_faults_total",
			Help:        "Total number of failed navigations by error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		staleTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stale_navigations_total",
			Help:        "Total number of navigation results dropped because a newer navigation started",
			ConstLabels: config.ConstLabels,
		}),

		activeRegions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_regions",
			Help:        "Number of connected live navigation regions",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Prometheus registers metrics and returns their navigation middleware.
func Prometheus(opts ...MetricsOption) nav.Middleware {
	return NewMetrics(opts...).Middleware()
}

// Middleware returns the navigation middleware recording into m.
func (m *Metrics) Middleware() nav.Middleware {
	return nav.MiddlewareFunc(func(ctx context.Context, n *nav.Navigation, next func(context.Context) error) error {
		start := time.Now()

		err := next(ctx)

		route := n.RouteID
		if route == "" {
			route = unmatchedRoute
		}

		m.navigationDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.navigationsTotal.WithLabelValues(route, n.Outcome.String()).Inc()

		if n.Outcome == nav.OutcomeStale {
			m.staleTotal.Inc()
		}
		if err != nil {
			m.faultsTotal.WithLabelValues(apperr.KindOf(err).String()).Inc()
		}

		return err
	})
}

// RecordRegionOpen records a live region being opened.
func (m *Metrics) RecordRegionOpen() {
	if m != nil {
		m.activeRegions.Inc()
	}
}

// RecordRegionClose records a live region being closed.
func (m *Metrics) RecordRegionClose() {
	if m != nil {
		m.activeRegions.Dec()
	}
}

// RecordWebSocketError records a WebSocket error.
func (m *Metrics) RecordWebSocketError(errorType string) {
	if m != nil {
		m.wsErrors.WithLabelValues(errorType).Inc()
	}
}
