package mailer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopSender logs messages instead of sending them. It is used when email is
// disabled so callers need no special casing.
type NoopSender struct {
	logger *slog.Logger
}

// NewNoopSender creates a NoopSender. A nil logger uses slog.Default().
func NewNoopSender(logger *slog.Logger) *NoopSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopSender{logger: logger}
}

// Send logs the message and returns its id.
func (n *NoopSender) Send(ctx context.Context, msg *Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	n.logger.InfoContext(ctx, "email disabled, message not sent",
		slog.String("message_id", msg.ID),
		slog.String("subject", msg.Subject))
	return msg.ID, nil
}

var _ Sender = (*NoopSender)(nil)
