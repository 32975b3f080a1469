package mailer

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// defaultRetryAfter is used when a 429 response carries no usable Retry-After.
const defaultRetryAfter = 5 * time.Second

// RateLimitError represents a 429 response from the provider.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string // Optional custom message
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx response other than 429.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// IsRetryable reports whether a failed send is worth retrying. Client errors
// and invalid messages are permanent; rate limits, server errors and network
// errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidMessage) {
		return false
	}
	var clientErr *ClientError
	return !errors.As(err, &clientErr)
}

// CountsAgainstCircuit reports whether a failed send says something about the
// provider's health. Invalid messages and rejected requests are the caller's
// fault and do not, except 401 and 403: a bad provider key fails every send.
func CountsAgainstCircuit(err error) bool {
	if err == nil || errors.Is(err, ErrInvalidMessage) {
		return false
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode == http.StatusUnauthorized || clientErr.StatusCode == http.StatusForbidden
	}
	return true
}

// parseRetryAfter reads the Retry-After header in seconds.
func parseRetryAfter(resp *http.Response) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}
