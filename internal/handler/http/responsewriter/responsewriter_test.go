package responsewriter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	require.NotNil(t, wrapped)
	assert.Equal(t, http.StatusOK, wrapped.StatusCode())
	assert.Equal(t, 0, wrapped.BytesWritten())
	assert.False(t, wrapped.Written())
}

func TestWrap_Idempotent(t *testing.T) {
	wrapped := Wrap(httptest.NewRecorder())
	assert.Same(t, wrapped, Wrap(wrapped))
}

func TestResponseWriter_WriteHeader(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"status 200", http.StatusOK},
		{"status 429", http.StatusTooManyRequests},
		{"status 503", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			wrapped := Wrap(rec)

			wrapped.WriteHeader(tt.statusCode)

			assert.Equal(t, tt.statusCode, wrapped.StatusCode())
			assert.True(t, wrapped.Written())
			assert.Equal(t, tt.statusCode, rec.Code)
		})
	}
}

func TestResponseWriter_WriteHeader_MultipleCallsIgnored(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	wrapped.WriteHeader(http.StatusTooManyRequests)
	wrapped.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusTooManyRequests, wrapped.StatusCode())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestResponseWriter_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	n1, err := wrapped.Write([]byte("hello "))
	require.NoError(t, err)
	n2, err := wrapped.Write([]byte("world"))
	require.NoError(t, err)

	assert.Equal(t, 11, n1+n2)
	assert.Equal(t, 11, wrapped.BytesWritten())
	assert.True(t, wrapped.Written(), "Write should send an implicit 200")
	assert.Equal(t, http.StatusOK, wrapped.StatusCode())
	assert.Equal(t, "hello world", rec.Body.String())
}

func TestResponseWriter_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	assert.Equal(t, rec, wrapped.Unwrap())

	// ResponseController finds Flush through Unwrap.
	err := http.NewResponseController(wrapped).Flush()
	assert.NoError(t, err)
	assert.True(t, rec.Flushed)
}
