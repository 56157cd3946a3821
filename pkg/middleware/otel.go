package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/backoffice/pkg/apperr"
	"github.com/vango-dev/backoffice/pkg/auth"
	"github.com/vango-dev/backoffice/pkg/nav"
)

// Default tracer name.
const defaultTracerName = "backoffice"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "backoffice").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// IncludeUserID includes the principal ID in traces if available.
	// Disabled by default.
	IncludeUserID bool

	// Filter determines which navigations to trace.
	// If nil, all navigations are traced.
	Filter func(n *nav.Navigation) bool

	// AttributeExtractor adds custom attributes once the navigation ended.
	AttributeExtractor func(ctx context.Context, n *nav.Navigation) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeUserID enables including the principal ID in traces.
func WithIncludeUserID(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeUserID = include
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(n *nav.Navigation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx context.Context, n *nav.Navigation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// OpenTelemetry creates middleware that traces every navigation.
//
// The span starts when the navigation does and is named after the matched
// route once it is known. The span context is handed to the rest of the
// navigation, so page factories can attach child spans.
func OpenTelemetry(opts ...OTelOption) nav.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return nav.MiddlewareFunc(func(ctx context.Context, n *nav.Navigation, next func(context.Context) error) error {
		if config.Filter != nil && !config.Filter(n) {
			return next(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("nav.path", n.Path),
			attribute.Int64("nav.generation", int64(n.Generation)),
		}
		if config.IncludeUserID {
			if p, ok := auth.FromContext(ctx); ok {
				attrs = append(attrs, attribute.String("nav.user_id", p.ID))
			}
		}

		spanCtx, span := tracer.Start(ctx, "nav.navigate",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(time.Now()),
		)
		defer span.End()

		err := next(spanCtx)

		route := n.RouteID
		if route == "" {
			route = unmatchedRoute
		}
		span.SetName("nav " + route)
		span.SetAttributes(
			attribute.String("nav.route", route),
			attribute.String("nav.outcome", n.Outcome.String()),
		)
		if config.AttributeExtractor != nil {
			span.SetAttributes(config.AttributeExtractor(spanCtx, n)...)
		}

		if err != nil {
			span.SetAttributes(attribute.String("nav.error_kind", apperr.KindOf(err).String()))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	})
}

// SpanFromContext returns the navigation span carried by ctx. Page
// factories receive a ctx that carries it when tracing is enabled.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
