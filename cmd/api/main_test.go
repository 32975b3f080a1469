package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "teamhub/internal/config"
	"teamhub/internal/handler/http/middleware"
	"teamhub/pkg/ratelimit"
)

const testAPIKey = "wiring-test-key"

func setupTestEnv(t *testing.T, rpm int) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "apps.yaml")
	yaml := "apps:\n" +
		"  - id: billing\n" +
		"    key_sha256: \"" + appconfig.HashAPIKey(testAPIKey) + "\"\n" +
		"    requests_per_minute: " + strconv.Itoa(rpm) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("APPS_CONFIG", path)
	t.Setenv("RATELIMIT_ENABLED", "true")
	t.Setenv("RATELIMIT_BACKEND", "memory")
	t.Setenv("RATELIMIT_REDIS_ADDR", "")
	t.Setenv("EMAIL_ENABLED", "false")
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	components, err := setupServer(logger, "test")
	require.NoError(t, err)
	t.Cleanup(components.Close)

	srv := httptest.NewServer(components.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set(middleware.APIKeyHeader, key)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSetupServer_PublicRoutes(t *testing.T) {
	setupTestEnv(t, 5)
	srv := newTestServer(t)

	for _, path := range []string{routeHealth, routeLive, routeMetrics} {
		t.Run(path, func(t *testing.T) {
			resp := doRequest(t, http.MethodGet, srv.URL+path, "", "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestSetupServer_SendEmail(t *testing.T) {
	setupTestEnv(t, 5)
	srv := newTestServer(t)

	body := `{"to":"ops@example.com","subject":"Deploy","text":"done"}`
	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/emails", testAPIKey, body)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "5", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", resp.Header.Get("X-RateLimit-Remaining"))

	var got struct {
		MessageID string `json:"message_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEmpty(t, got.MessageID)
}

func TestSetupServer_RateLimitExceeded(t *testing.T) {
	setupTestEnv(t, 2)
	srv := newTestServer(t)

	body := `{"to":"ops@example.com","subject":"Deploy","text":"done"}`
	for i := 0; i < 2; i++ {
		resp := doRequest(t, http.MethodPost, srv.URL+"/v1/emails", testAPIKey, body)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/emails", testAPIKey, body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Rate limit exceeded", got["error"])

	// status is not rate limited and does not consume a request
	status := doRequest(t, http.MethodGet, srv.URL+routeRLStatus, testAPIKey, "")
	assert.Equal(t, http.StatusOK, status.StatusCode)
	assert.Equal(t, "0", status.Header.Get("X-RateLimit-Remaining"))
}

func TestSetupServer_UnknownKeyFailsClosed(t *testing.T) {
	setupTestEnv(t, 5)
	srv := newTestServer(t)

	body := `{"to":"ops@example.com","subject":"Deploy","text":"done"}`
	resp := doRequest(t, http.MethodPost, srv.URL+"/v1/emails", "not-a-known-key", body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	status := doRequest(t, http.MethodGet, srv.URL+routeRLStatus, "", "")
	assert.Equal(t, http.StatusUnauthorized, status.StatusCode)
}

func TestBuildStore_Memory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := ratelimit.DefaultConfig()

	store := buildStore(cfg, ratelimit.NewNoOpMetrics(), prometheus.NewRegistry(), logger)

	assert.IsType(t, &ratelimit.MemoryStore{}, store.store)
	assert.Equal(t, "memory", store.backend.Backend())
	assert.Nil(t, store.redis)
	assert.Nil(t, store.close)
}
