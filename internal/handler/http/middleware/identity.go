// Package middleware provides the HTTP middleware that resolves calling
// applications and enforces their rate limits.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"teamhub/pkg/ratelimit"
)

// APIKeyHeader carries the calling application's key.
const APIKeyHeader = "X-API-Key"

type identityKey struct{}

// WithIdentity returns a context carrying identity.
func WithIdentity(ctx context.Context, identity *ratelimit.AppIdentity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by ResolveIdentity, or nil.
func IdentityFromContext(ctx context.Context) *ratelimit.AppIdentity {
	identity, _ := ctx.Value(identityKey{}).(*ratelimit.AppIdentity)
	return identity
}

// IdentityResolver maps an API key to an application identity.
type IdentityResolver interface {
	// Lookup returns the identity for apiKey. ok is false for unknown keys.
	Lookup(apiKey string) (identity *ratelimit.AppIdentity, ok bool)
}

// ResolveIdentity returns middleware that resolves the X-API-Key header into
// an AppIdentity and stores it in the request context.
//
// Unknown or absent keys leave the context without an identity; rejecting
// such requests is the rate limiter's job. The key itself is never logged.
func ResolveIdentity(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, ok := resolver.Lookup(key)
			if !ok {
				slog.Debug("identity: unknown api key",
					slog.String("path", r.URL.Path),
					slog.String("method", r.Method))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// SkipPaths wraps mw so that requests for the given exact paths bypass it.
func SkipPaths(paths []string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}
