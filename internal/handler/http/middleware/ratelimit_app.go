package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"teamhub/pkg/ratelimit"
)

// AppRateLimiterConfig holds configuration for per-app rate limiting.
type AppRateLimiterConfig struct {
	// Limiter decides each request. Required.
	Limiter *ratelimit.Limiter

	// Metrics records allowed and denied requests.
	// Default: NoOpMetrics
	Metrics ratelimit.Metrics

	// Logger for decisions and denials.
	// Default: slog.Default()
	Logger *slog.Logger
}

// AppRateLimiter enforces the fixed-window limit of the identity resolved by
// ResolveIdentity.
type AppRateLimiter struct {
	limiter *ratelimit.Limiter
	metrics ratelimit.Metrics
	logger  *slog.Logger
}

// NewAppRateLimiter creates an AppRateLimiter.
func NewAppRateLimiter(config AppRateLimiterConfig) *AppRateLimiter {
	if config.Metrics == nil {
		config.Metrics = ratelimit.NewNoOpMetrics()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &AppRateLimiter{
		limiter: config.Limiter,
		metrics: config.Metrics,
		logger:  config.Logger,
	}
}

// errorBody is the JSON body of every non-2xx response written here.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Middleware returns an HTTP middleware handler that enforces app limits.
//
// Behavior:
//   - No identity in context: 500. A request is never allowed without one.
//   - Store failure: 503
//   - Limit exceeded: 429 with Retry-After
//   - Within limit: next handler runs
//
// Rate limit headers set on 429 and allowed responses:
//   - X-RateLimit-Limit: Maximum requests per window
//   - X-RateLimit-Remaining: Remaining requests in current window
//   - X-RateLimit-Reset: Unix timestamp when the window ends
func (rl *AppRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())

			decision, err := rl.limiter.Check(r.Context(), identity)
			if err != nil {
				if errors.Is(err, ratelimit.ErrIdentityMissing) {
					rl.logger.Error("app rate limiter: no identity for request",
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.Any("error", err))
					writeJSON(w, http.StatusInternalServerError, errorBody{
						Error:   "Rate limit configuration error",
						Message: "No application identity could be resolved for this request.",
					})
					return
				}

				rl.logger.Error("app rate limiter: check failed",
					slog.String("app", identity.ID),
					slog.String("path", r.URL.Path),
					slog.Any("error", err))
				writeJSON(w, http.StatusServiceUnavailable, errorBody{
					Error:   "Rate limiter unavailable",
					Message: "The rate limiter could not be reached. Please retry shortly.",
				})
				return
			}

			rl.logger.Debug("rate limit check completed",
				slog.String("app", decision.Key),
				slog.Int("limit", decision.Limit),
				slog.Int("remaining", decision.Remaining),
				slog.Bool("allowed", decision.Allowed),
				slog.String("path", r.URL.Path))

			SetRateLimitHeaders(w, decision)

			if !decision.Allowed {
				rl.metrics.RecordDenied(decision.Key, r.URL.Path)

				rl.logger.Warn("rate limit exceeded",
					slog.String("app", decision.Key),
					slog.Int("limit", decision.Limit),
					slog.Int64("retry_after", decision.RetryAfterSeconds()),
					slog.String("path", r.URL.Path),
					slog.String("method", r.Method))

				WriteRateLimitError(w, decision)
				return
			}

			rl.metrics.RecordAllowed(decision.Key, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

// SetRateLimitHeaders sets the X-RateLimit-* headers for decision.
func SetRateLimitHeaders(w http.ResponseWriter, decision *ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAtUnix(), 10))
}

// WriteRateLimitError writes a 429 Too Many Requests response for decision.
func WriteRateLimitError(w http.ResponseWriter, decision *ratelimit.Decision) {
	retryAfter := decision.RetryAfterSeconds()
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))

	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error: "Rate limit exceeded",
		Message: "You have exceeded " + strconv.Itoa(decision.Limit) +
			" requests per minute. Please try again in " + strconv.FormatInt(retryAfter, 10) + " seconds.",
	})
}

func writeJSON(w http.ResponseWriter, code int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("app rate limiter: failed to write response",
			slog.String("error", err.Error()))
	}
}
