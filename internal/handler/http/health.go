package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"teamhub/internal/handler/http/respond"
	"teamhub/internal/resilience/circuitbreaker"
)

// HealthResponse represents the JSON response for the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy", "degraded" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // RFC 3339, UTC
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// KeyCounter reports how many rate limit windows are tracked.
type KeyCounter interface {
	KeyCount(ctx context.Context) (int, error)
}

// BackendReporter names the store currently serving rate limit checks.
type BackendReporter interface {
	Backend() string
}

// Pinger checks a remote dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the rate limit store and the resilience circuits.
// A failing store makes the service unhealthy. An unreachable Redis while the
// memory fallback serves, or an open circuit, only degrades it.
type HealthHandler struct {
	Version string

	Store    KeyCounter
	Backend  BackendReporter          // optional
	Redis    Pinger                   // optional
	Circuits *circuitbreaker.Registry // optional

	Logger *slog.Logger
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]CheckStatus{
		"rate_limit_store": h.checkStore(ctx),
	}
	if h.Redis != nil {
		checks["redis"] = h.checkRedis(ctx)
	}
	if h.Circuits != nil {
		checks["circuits"] = h.checkCircuits()
	}

	status := statusHealthy
	for _, c := range checks {
		if c.Status == statusUnhealthy {
			status = statusUnhealthy
			break
		}
		if c.Status == statusDegraded {
			status = statusDegraded
		}
	}

	code := http.StatusOK
	if status == statusUnhealthy {
		code = http.StatusServiceUnavailable
		h.logger().WarnContext(ctx, "health check failed", slog.Any("checks", checks))
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func (h *HealthHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *HealthHandler) checkStore(ctx context.Context) CheckStatus {
	if h.Store == nil {
		return CheckStatus{Status: statusUnhealthy, Message: "not configured"}
	}

	details := map[string]any{}
	if h.Backend != nil {
		details["backend"] = h.Backend.Backend()
	}

	keys, err := h.Store.KeyCount(ctx)
	if err != nil {
		return CheckStatus{Status: statusUnhealthy, Message: respond.SanitizeError(err), Details: details}
	}
	details["active_keys"] = keys
	return CheckStatus{Status: statusHealthy, Details: details}
}

func (h *HealthHandler) checkRedis(ctx context.Context) CheckStatus {
	if err := h.Redis.Ping(ctx); err != nil {
		// requests are still served from the memory fallback
		return CheckStatus{Status: statusDegraded, Message: respond.SanitizeError(err)}
	}
	return CheckStatus{Status: statusHealthy}
}

func (h *HealthHandler) checkCircuits() CheckStatus {
	snapshots := h.Circuits.Snapshots()
	status := statusHealthy
	details := make(map[string]any, len(snapshots))
	for _, s := range snapshots {
		details[s.Name] = s
		if s.State != circuitbreaker.StateClosed.String() {
			status = statusDegraded
		}
	}
	return CheckStatus{Status: status, Details: details}
}

// LiveHandler answers liveness checks.
type LiveHandler struct{}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
