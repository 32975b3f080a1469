// Package mailer delivers transactional email through an HTTP provider.
//
// A Sender performs exactly one delivery attempt per call. Retries, timeouts
// and circuit breaking belong to the caller (see internal/resilience).
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Message is an outbound email.
type Message struct {
	// ID is the idempotency key sent to the provider. Senders assign one
	// when it is empty.
	ID      string `json:"message_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// ErrInvalidMessage is returned for messages that can never be delivered.
var ErrInvalidMessage = errors.New("invalid message")

// Validate checks the recipient address and required fields.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrInvalidMessage)
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, m.To, err)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers a single message. It returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}
