// Package observability groups the logging and tracing setup shared by the
// teamhub binaries.
//
// Subpackages:
//   - logging: slog construction from LOG_LEVEL and LOG_FORMAT, with request
//     and trace IDs added from the context
//   - tracing: the OpenTelemetry tracer provider and HTTP server spans
package observability
