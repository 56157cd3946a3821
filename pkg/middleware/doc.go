// Package middleware provides observability middleware for navigation
// regions.
//
// # Prometheus Metrics
//
// Metrics records every navigation by route and outcome:
//   - backoffice_navigations_total: navigations by route and outcome
//   - backoffice_navigation_duration_seconds: navigation duration histogram
//   - backoffice_navigation_faults_total: failed navigations by error kind
//   - backoffice_stale_navigations_total: results dropped as superseded
//   - backoffice_active_regions: connected live regions
//   - backoffice_websocket_errors_total: socket errors by type
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	ctl := nav.New(table, cache.New(), deps, nav.WithMiddleware(m.Middleware()))
//
// # OpenTelemetry
//
// OpenTelemetry starts one span per navigation. The span context is passed
// to the page factory, so store queries made while building a page join
// the navigation trace:
//
//	nav.WithMiddleware(middleware.OpenTelemetry(
//	    middleware.WithTracerName("backoffice"),
//	))
//
// The tracer comes from the global provider; configure it with
// otel.SetTracerProvider before serving.
package middleware
