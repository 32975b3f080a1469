// Package email sends transactional email through a mailer.Sender guarded by
// the resilience runner.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"teamhub/internal/infra/mailer"
	"teamhub/internal/resilience"
	"teamhub/pkg/config"
)

// CircuitName is the circuit guarding the email provider.
const CircuitName = "email"

const defaultBatchConcurrency = 4

// Config holds Service settings.
type Config struct {
	Resilience config.ResilienceConfig

	// From is applied to messages without a sender.
	From string

	// BatchConcurrency limits in-flight sends in SendBatch. Default: 4
	BatchConcurrency int

	Logger *slog.Logger
}

// Result is the outcome of one message in a batch.
type Result struct {
	Index     int
	MessageID string
	Err       error
}

// Service dispatches email with retries, a per-attempt timeout and the
// "email" circuit breaker.
type Service struct {
	sender mailer.Sender
	runner *resilience.Runner
	opts   resilience.Options
	from   string
	limit  int
	logger *slog.Logger
}

// NewService creates a Service. The runner may be shared with other callers;
// the email circuit is created on first use.
func NewService(sender mailer.Sender, runner *resilience.Runner, cfg Config) *Service {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		sender: sender,
		runner: runner,
		opts: resilience.Options{
			MaxRetries:  cfg.Resilience.MaxRetries,
			BaseDelay:   cfg.Resilience.BaseDelay,
			MaxDelay:    cfg.Resilience.MaxDelay,
			Timeout:     cfg.Resilience.Timeout,
			CircuitName: CircuitName,
			Retryable:   mailer.IsRetryable,
			IsFailure:   mailer.CountsAgainstCircuit,
		},
		from:   cfg.From,
		limit:  cfg.BatchConcurrency,
		logger: cfg.Logger,
	}
}

// Send delivers msg and returns the provider message id.
//
// The message id is fixed before the first attempt, so every retry carries
// the same idempotency key. Invalid messages and provider client errors are
// not retried. An open circuit returns *resilience.CircuitOpenError without
// contacting the provider.
func (s *Service) Send(ctx context.Context, msg *mailer.Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	m := *msg
	if m.From == "" {
		m.From = s.from
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	start := time.Now()
	id, err := resilience.Run(ctx, s.runner, func(ctx context.Context) (string, error) {
		attempt := m
		return s.sender.Send(ctx, &attempt)
	}, s.opts)
	if err != nil {
		s.logger.WarnContext(ctx, "email send failed",
			slog.String("message_id", m.ID),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return "", err
	}

	s.logger.InfoContext(ctx, "email sent",
		slog.String("message_id", m.ID),
		slog.String("provider_id", id),
		slog.Duration("duration", time.Since(start)))
	return id, nil
}

// SendBatch sends msgs with at most BatchConcurrency in flight and returns
// one Result per message, in input order. A failed message does not stop
// the others.
func (s *Service) SendBatch(ctx context.Context, msgs []*mailer.Message) ([]Result, error) {
	if len(msgs) == 0 {
		return nil, ErrEmptyBatch
	}

	results := make([]Result, len(msgs))

	var g errgroup.Group
	g.SetLimit(s.limit)
	for i, msg := range msgs {
		g.Go(func() error {
			id, err := s.Send(ctx, msg)
			results[i] = Result{Index: i, MessageID: id, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.InfoContext(ctx, "email batch finished",
		slog.Int("total", len(msgs)),
		slog.Int("failed", failed))

	return results, nil
}

const passwordResetSubject = "Reset your password"

const passwordResetBody = `Hello,

We received a request to reset the password for your account.
Open the link below to choose a new password:

%s

If you did not request a reset, you can ignore this email.
`

// SendPasswordReset sends the password reset email linking to resetURL.
func (s *Service) SendPasswordReset(ctx context.Context, to, resetURL string) (string, error) {
	u, err := url.Parse(resetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidResetURL, resetURL)
	}

	return s.Send(ctx, &mailer.Message{
		To:      to,
		Subject: passwordResetSubject,
		Text:    fmt.Sprintf(passwordResetBody, u.String()),
	})
}
