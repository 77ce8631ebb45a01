// Package middleware provides HTTP middleware for the filestage server.
//
// This package includes:
//   - OpenTelemetry tracing for every request
//   - Prometheus request and session metrics
//   - Structured request logging with log/slog
//
// All middleware has the standard func(http.Handler) http.Handler shape and
// composes with chi:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Tracing())
//	r.Use(middleware.Prometheus(metrics))
//	r.Use(middleware.Logging(logger))
//
// # OpenTelemetry
//
// Tracing extracts the incoming trace context (W3C traceparent by default),
// starts a server span named after the chi route pattern, and records the
// response status:
//
//	middleware.Tracing(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	)
//
// # Prometheus Metrics
//
// NewMetrics registers:
//   - filestage_http_requests_total: requests by route and status class
//   - filestage_http_request_duration_seconds: request duration histogram
//   - filestage_sessions_active: sessions currently open
//   - filestage_feed_subscribers: websocket feed connections
//   - filestage_websocket_errors_total: websocket errors by type
//
// Expose them with promhttp:
//
//	r.Handle("/metrics", promhttp.Handler())
package middleware
