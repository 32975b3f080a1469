package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"invalid message", fmt.Errorf("%w: empty subject", ErrInvalidMessage), false},
		{"client error", &ClientError{StatusCode: 400, Message: "bad"}, false},
		{"wrapped client error", fmt.Errorf("send: %w", &ClientError{StatusCode: 403}), false},
		{"rate limit", &RateLimitError{RetryAfter: time.Second}, true},
		{"server error", &ServerError{StatusCode: 503}, true},
		{"network", errors.New("connection refused"), true},
		{"deadline", context.DeadlineExceeded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCountsAgainstCircuit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"invalid message", fmt.Errorf("%w: empty subject", ErrInvalidMessage), false},
		{"rejected recipient", &ClientError{StatusCode: 422, Message: "mailbox unavailable"}, false},
		{"bad request", fmt.Errorf("send: %w", &ClientError{StatusCode: 400}), false},
		{"bad provider key", &ClientError{StatusCode: 401}, true},
		{"provider forbids sender", fmt.Errorf("send: %w", &ClientError{StatusCode: 403}), true},
		{"rate limit", &RateLimitError{RetryAfter: time.Second}, true},
		{"server error", &ServerError{StatusCode: 502}, true},
		{"network", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountsAgainstCircuit(tt.err); got != tt.want {
				t.Errorf("CountsAgainstCircuit(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRateLimitError_Error(t *testing.T) {
	withMsg := &RateLimitError{RetryAfter: 3 * time.Second, Message: "slow down"}
	if got := withMsg.Error(); got != "slow down (retry after 3s)" {
		t.Errorf("unexpected message %q", got)
	}

	bare := &RateLimitError{RetryAfter: time.Second}
	if got := bare.Error(); got != "rate limit exceeded (retry after 1s)" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", defaultRetryAfter},
		{"12", 12 * time.Second},
		{"0", defaultRetryAfter},
		{"-3", defaultRetryAfter},
		{"Wed, 21 Oct 2015 07:28:00 GMT", defaultRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			if got := parseRetryAfter(resp); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Message
		wantErr bool
	}{
		{"valid", &Message{To: "a@example.com", Subject: "s", Text: "t"}, false},
		{"named recipient", &Message{To: "Alice <a@example.com>", Subject: "s", Text: "t"}, false},
		{"nil", nil, true},
		{"bad address", &Message{To: "nope", Subject: "s", Text: "t"}, true},
		{"blank subject", &Message{To: "a@example.com", Subject: "  ", Text: "t"}, true},
		{"empty body", &Message{To: "a@example.com", Subject: "s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("expected ErrInvalidMessage, got %v", err)
			}
		})
	}
}
