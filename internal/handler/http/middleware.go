// Package http wires the teamhub HTTP surface: the email endpoints, health
// and status handlers, and the cross-cutting middleware around them.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"teamhub/internal/handler/http/middleware"
	"teamhub/internal/handler/http/respond"
	"teamhub/internal/handler/http/responsewriter"
)

// Logging logs one line per request. The request and trace IDs come from the
// context through the logging package's handler. It runs inside
// middleware.ResolveIdentity so the calling application is logged too.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := responsewriter.Wrap(w)

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if wrapped.StatusCode() >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			appID := ""
			if identity := middleware.IdentityFromContext(r.Context()); identity != nil {
				appID = identity.ID
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("app_id", appID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", wrapped.StatusCode()),
				slog.Int("bytes", wrapped.BytesWritten()),
				slog.Duration("duration", duration),
			)
		})
	}
}

// Recover turns a handler panic into a 500 and logs the stack. If the handler
// has already started its response only the log line is written.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := responsewriter.Wrap(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)

				if !wrapped.Written() {
					respond.SafeError(wrapped, http.StatusInternalServerError, errors.New("internal error"))
				}
			}()
			next.ServeHTTP(wrapped, r)
		})
	}
}

// LimitRequestBody caps request bodies at maxBytes.
func LimitRequestBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies mws so that the first one listed is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
