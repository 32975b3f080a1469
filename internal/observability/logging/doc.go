// Package logging builds the service's slog logger.
//
// Every record logged with a context carries the request ID and, when a span
// is active, the trace and span IDs:
//
//	logger := logging.NewFromEnv()
//	logger.InfoContext(ctx, "email sent", slog.String("message_id", id))
package logging
