package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"teamhub/internal/handler/http/requestid"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat(" TEXT "))
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat("logfmt"))
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelWarn, Writer: &buf})

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Equal(t, "kept", decode(t, &buf)["msg"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Format: FormatText, Writer: &buf}).Info("hello", slog.String("app", "billing"))

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "app=billing")
}

func TestNew_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf})

	ctx := requestid.WithRequestID(context.Background(), "req-123")
	logger.InfoContext(ctx, "with context")

	entry := decode(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.NotContains(t, entry, "trace_id")
}

func TestNew_AddsTraceIDs(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	New(Options{Writer: &buf}).With(slog.String("component", "email")).InfoContext(ctx, "traced")

	entry := decode(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
	assert.Equal(t, "email", entry["component"])
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")

	logger := NewFromEnv()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	assert.Same(t, base, WithRequestID(context.Background(), base))

	ctx := requestid.WithRequestID(context.Background(), "req-9")
	WithRequestID(ctx, base).Info("x")
	assert.Equal(t, "req-9", decode(t, &buf)["request_id"])
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	assert.Same(t, logger, FromContext(WithLogger(context.Background(), logger)))
}
