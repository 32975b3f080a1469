package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"teamhub/internal/handler/http/middleware"
	"teamhub/internal/handler/http/respond"
	"teamhub/pkg/ratelimit"
)

// RateLimitStatus is the body of GET /v1/ratelimit/status.
type RateLimitStatus struct {
	AppID         string    `json:"app_id"`
	Limit         int       `json:"limit"`
	Remaining     int       `json:"remaining"`
	ResetAt       time.Time `json:"reset_at"`
	WindowSeconds int64     `json:"window_seconds"`
}

// RateLimitStatusHandler reports the caller's window without counting a
// request. It is mounted outside the app rate limiter but after identity
// resolution.
type RateLimitStatusHandler struct {
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

func (h RateLimitStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	decision, err := h.Limiter.Status(r.Context(), identity)
	if err != nil {
		if errors.Is(err, ratelimit.ErrIdentityMissing) {
			respond.Message(w, http.StatusUnauthorized, "Unauthorized",
				"A valid "+middleware.APIKeyHeader+" header is required.")
			return
		}
		h.Logger.ErrorContext(r.Context(), "rate limit status failed",
			slog.String("app", identity.ID),
			slog.String("error", respond.SanitizeError(err)))
		respond.Message(w, http.StatusServiceUnavailable, "Rate limiter unavailable",
			"The rate limiter could not be reached. Please retry shortly.")
		return
	}

	middleware.SetRateLimitHeaders(w, decision)
	respond.JSON(w, http.StatusOK, RateLimitStatus{
		AppID:         decision.Key,
		Limit:         decision.Limit,
		Remaining:     decision.Remaining,
		ResetAt:       decision.ResetAt.UTC(),
		WindowSeconds: int64(h.Limiter.Window() / time.Second),
	})
}
