package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxErrorBody bounds how much of a provider error response is read.
const maxErrorBody = 4 << 10

// HTTPConfig contains configuration for the HTTP email provider.
type HTTPConfig struct {
	// Endpoint is the provider's send URL.
	Endpoint string

	// APIKey is sent as a Bearer token. Never logged.
	APIKey string

	// From is used when a message has no sender.
	From string

	// Timeout is the HTTP client timeout.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure the outbound throttle.
	RequestsPerSecond float64
	Burst             int
}

// HTTPSender posts messages as JSON to an email provider.
type HTTPSender struct {
	config     HTTPConfig
	httpClient *http.Client
	throttle   *Throttle
	logger     *slog.Logger
}

// NewHTTPSender creates a sender. A nil client gets one with config.Timeout.
func NewHTTPSender(config HTTPConfig, client *http.Client, logger *slog.Logger) *HTTPSender {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 5
	}
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPSender{
		config:     config,
		httpClient: client,
		throttle:   NewThrottle(config.RequestsPerSecond, config.Burst),
		logger:     logger,
	}
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send performs one delivery attempt.
//
// Error types:
//   - *RateLimitError: 429, with the provider's Retry-After
//   - *ClientError: other 4xx, not retryable
//   - *ServerError: 5xx
//   - wrapped network or context errors
func (s *HTTPSender) Send(ctx context.Context, msg *Message) (string, error) {
	if msg != nil && msg.From == "" {
		msg.From = s.config.From
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return "", fmt.Errorf("outbound throttle: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", msg.ID)
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	s.logger.DebugContext(ctx, "email provider responded",
		slog.String("message_id", msg.ID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var parsed sendResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.ID != "" {
			return parsed.ID, nil
		}
		return msg.ID, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &RateLimitError{
			Message:    "email provider rate limit exceeded",
			RetryAfter: parseRetryAfter(resp),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("email provider client error %d: %s", resp.StatusCode, string(respBody)),
		}
	case resp.StatusCode >= 500:
		return "", &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("email provider server error %d: %s", resp.StatusCode, string(respBody)),
		}
	default:
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}
}

var _ Sender = (*HTTPSender)(nil)
