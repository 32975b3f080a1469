package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "with request ID",
			ctx:      WithRequestID(context.Background(), "test-id-123"),
			expected: "test-id-123",
		},
		{
			name:     "without request ID",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "with invalid type in context",
			ctx:      context.WithValue(context.Background(), RequestIDKey, 12345),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromContext(tt.ctx))
		})
	}
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		incoming   string
		propagated bool
	}{
		{"propagates existing id", "existing-request-id-456", true},
		{"propagates uuid", "8a7c3e9e-3f0a-4a35-9a39-1b5c8d2f7e10", true},
		{"generates when missing", "", false},
		{"replaces id with spaces", "bad id", false},
		{"replaces id with newline", "bad\nid", false},
		{"replaces overlong id", strings.Repeat("a", maxIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = FromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.NotEmpty(t, captured)
			assert.Equal(t, captured, rec.Header().Get(RequestIDHeader))
			if tt.propagated {
				assert.Equal(t, tt.incoming, captured)
				return
			}
			_, err := uuid.Parse(captured)
			assert.NoError(t, err, "generated id should be a UUID")
		})
	}
}

func TestMiddleware_UniqueIDs(t *testing.T) {
	seen := make(map[string]struct{})
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get(RequestIDHeader)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
