package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/boundary"
	"github.com/vango-dev/backoffice/pkg/cache"
	"github.com/vango-dev/backoffice/pkg/nav"
	"github.com/vango-dev/backoffice/pkg/router"
)

func testTable() *router.Table {
	page := func(v string) router.PageFactory {
		return func(context.Context, router.Params) (any, error) { return v, nil }
	}
	return router.MustTable(
		router.Route{ID: "home", Pattern: router.MustCompile("/"), Page: page("home")},
		router.Route{ID: "customers.show", Pattern: router.MustCompile("/customers/:id:int"), Page: page("customer")},
		router.Route{
			ID:      "broken",
			Pattern: router.MustCompile("/broken"),
			Page: func(context.Context, router.Params) (any, error) {
				return nil, errors.New("db down")
			},
		},
		router.Route{
			ID:      "orders.show",
			Pattern: router.MustCompile("/orders/:id:int"),
			Page: func(_ context.Context, p router.Params) (any, error) {
				return nil, apperr.NotFound("order", p.Get("id"))
			},
		},
	)
}

func newController(t *testing.T, mw ...nav.Middleware) *nav.Controller {
	t.Helper()
	ctl := nav.New(testTable(), cache.New(), nav.Deps{Recoverer: boundary.New(nil)}, nav.WithMiddleware(mw...))
	t.Cleanup(ctl.Close)
	return ctl
}

// =============================================================================
// Prometheus
// =============================================================================

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_RecordsOutcomes(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	ctl := newController(t, m.Middleware())
	ctx := context.Background()

	ctl.Run(ctx, "/customers/1")
	ctl.Run(ctx, "/customers/2")
	ctl.Run(ctx, "/nowhere")
	ctl.Run(ctx, "/orders/3")
	ctl.Run(ctx, "/broken")

	tests := []struct {
		route, outcome string
		want           float64
	}{
		{"customers.show", "rendered", 2},
		{unmatchedRoute, "redirected", 1},
		{"orders.show", "recovered", 1},
		{"broken", "reloaded", 1},
	}
	for _, tt := range tests {
		got := metricCounterValue(t, m.navigationsTotal.WithLabelValues(tt.route, tt.outcome))
		if got != tt.want {
			t.Errorf("navigations_total(%s,%s) = %v, want %v", tt.route, tt.outcome, got, tt.want)
		}
	}

	if got := metricCounterValue(t, m.faultsTotal.WithLabelValues("not_found")); got != 1 {
		t.Errorf("navigation_faults_total(not_found) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.faultsTotal.WithLabelValues("unclassified")); got != 1 {
		t.Errorf("navigation_faults_total(unclassified) = %v, want 1", got)
	}
	if got := metricHistogramCount(t, m.navigationDuration.WithLabelValues("customers.show")); got != 2 {
		t.Errorf("navigation_duration_seconds count = %d, want 2", got)
	}
}

func TestMetrics_RegionAndSocketRecorders(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

	m.RecordRegionOpen()
	m.RecordRegionOpen()
	m.RecordRegionClose()
	m.RecordWebSocketError("read")

	if got := metricGaugeValue(t, m.activeRegions); got != 1 {
		t.Errorf("active_regions = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.wsErrors.WithLabelValues("read")); got != 1 {
		t.Errorf("websocket_errors_total(read) = %v, want 1", got)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordRegionOpen() // must not panic
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg))

	defer func() {
		if recover() == nil {
			t.Fatal("expected second registration on the same registry to panic")
		}
	}()
	NewMetrics(WithRegistry(reg))
}

// =============================================================================
// OpenTelemetry
// =============================================================================

type recordingSpan struct {
	noop.Span

	mu     sync.Mutex
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSpan) End(...trace.SpanEndOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
}

func (s *recordingSpan) IsRecording() bool { return true }

type recordingTracer struct {
	noop.Tracer

	mu    sync.Mutex
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	span := &recordingSpan{name: name, attrs: make(map[attribute.Key]attribute.Value)}
	span.SetAttributes(trace.NewSpanStartConfig(opts...).Attributes()...)

	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()

	return trace.ContextWithSpan(ctx, span), span
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{tracer: &recordingTracer{}}
}

func TestOpenTelemetry_SpanPerNavigation(t *testing.T) {
	tp := newRecordingProvider()

	var inFactory trace.Span
	table := router.MustTable(router.Route{
		ID:      "home",
		Pattern: router.MustCompile("/"),
		Page: func(ctx context.Context, _ router.Params) (any, error) {
			inFactory = SpanFromContext(ctx)
			return nil, nil
		},
	})
	ctl := nav.New(table, nil, nav.Deps{}, nav.WithMiddleware(OpenTelemetry(WithTracerProvider(tp))))
	t.Cleanup(ctl.Close)

	ctl.Run(context.Background(), "/?tab=1")

	if len(tp.tracer.spans) != 1 {
		t.Fatalf("started %d spans, want 1", len(tp.tracer.spans))
	}
	span := tp.tracer.spans[0]
	if span.name != "nav home" {
		t.Errorf("span name = %q, want %q", span.name, "nav home")
	}
	if got := span.attrs["nav.path"].AsString(); got != "/?tab=1" {
		t.Errorf("nav.path = %q", got)
	}
	if got := span.attrs["nav.outcome"].AsString(); got != "rendered" {
		t.Errorf("nav.outcome = %q, want rendered", got)
	}
	if span.status != codes.Ok || !span.ended {
		t.Errorf("status = %v ended = %v, want Ok and ended", span.status, span.ended)
	}
	if inFactory != trace.Span(span) {
		t.Error("page factory did not receive the navigation span")
	}
}

func TestOpenTelemetry_RecordsFaults(t *testing.T) {
	tp := newRecordingProvider()
	ctl := newController(t, OpenTelemetry(WithTracerProvider(tp)))

	ctl.Run(context.Background(), "/orders/4")

	span := tp.tracer.spans[0]
	if span.status != codes.Error {
		t.Errorf("status = %v, want Error", span.status)
	}
	if len(span.errs) != 1 {
		t.Errorf("recorded %d errors, want 1", len(span.errs))
	}
	if got := span.attrs["nav.error_kind"].AsString(); got != "not_found" {
		t.Errorf("nav.error_kind = %q, want not_found", got)
	}
}

func TestOpenTelemetry_FilterSkipsTracing(t *testing.T) {
	tp := newRecordingProvider()
	ctl := newController(t, OpenTelemetry(
		WithTracerProvider(tp),
		WithNavigationFilter(func(n *nav.Navigation) bool { return n.Path != "/" }),
	))

	ctl.Run(context.Background(), "/")
	ctl.Run(context.Background(), "/customers/1")

	if len(tp.tracer.spans) != 1 {
		t.Fatalf("started %d spans, want 1", len(tp.tracer.spans))
	}
}

func TestOpenTelemetry_AttributeExtractor(t *testing.T) {
	tp := newRecordingProvider()
	ctl := newController(t, OpenTelemetry(
		WithTracerProvider(tp),
		WithAttributeExtractor(func(_ context.Context, n *nav.Navigation) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.route", n.RouteID)}
		}),
	))

	ctl.Run(context.Background(), "/customers/1")

	if got := tp.tracer.spans[0].attrs["test.route"].AsString(); got != "customers.show" {
		t.Errorf("test.route = %q, want customers.show", got)
	}
}
