package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamhub/internal/infra/mailer"
	"teamhub/internal/resilience"
	"teamhub/internal/resilience/circuitbreaker"
	"teamhub/internal/testutil"
	"teamhub/pkg/config"
)

// scriptedSender returns the queued errors in order, then succeeds.
type scriptedSender struct {
	mu    sync.Mutex
	errs  []error
	calls []mailer.Message
}

func (s *scriptedSender) Send(_ context.Context, msg *mailer.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, *msg)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return "prov-" + msg.ID, nil
}

func (s *scriptedSender) sent() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.calls...)
}

func newTestService(t *testing.T, sender mailer.Sender) (*Service, *resilience.Runner, *testutil.FakeSleeper) {
	t.Helper()
	sleeper := &testutil.FakeSleeper{}
	runner := resilience.NewRunner(resilience.Config{
		Circuits: circuitbreaker.CircuitConfig{
			FailureThreshold: 5,
			RecoveryPeriod:   60 * time.Second,
			Clock:            testutil.NewMockClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		},
		Sleeper: sleeper,
		Rand:    func() float64 { return 0 },
	})
	svc := NewService(sender, runner, Config{
		Resilience: config.DefaultResilienceConfig(),
		From:       "no-reply@teamhub.local",
	})
	return svc, runner, sleeper
}

func message(to string) *mailer.Message {
	return &mailer.Message{To: to, Subject: "Hi", Text: "Body"}
}

func TestService_Send(t *testing.T) {
	sender := &scriptedSender{}
	svc, _, sleeper := newTestService(t, sender)

	msg := message("alice@example.com")
	id, err := svc.Send(context.Background(), msg)

	require.NoError(t, err)
	calls := sender.sent()
	require.Len(t, calls, 1)
	assert.Equal(t, "prov-"+calls[0].ID, id)
	assert.Equal(t, "no-reply@teamhub.local", calls[0].From)
	assert.Empty(t, msg.ID, "caller's message is not mutated")
	assert.Zero(t, sleeper.CallCount())
}

func TestService_SendRetriesWithSameID(t *testing.T) {
	sender := &scriptedSender{errs: []error{
		&mailer.ServerError{StatusCode: 503, Message: "unavailable"},
		&mailer.RateLimitError{RetryAfter: time.Second},
	}}
	svc, _, sleeper := newTestService(t, sender)

	_, err := svc.Send(context.Background(), message("alice@example.com"))

	require.NoError(t, err)
	calls := sender.sent()
	require.Len(t, calls, 3)
	assert.Equal(t, calls[0].ID, calls[1].ID)
	assert.Equal(t, calls[0].ID, calls[2].ID)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.Calls())
}

func TestService_SendDoesNotRetryClientError(t *testing.T) {
	clientErr := &mailer.ClientError{StatusCode: 422, Message: "rejected"}
	sender := &scriptedSender{errs: []error{clientErr}}
	svc, _, sleeper := newTestService(t, sender)

	_, err := svc.Send(context.Background(), message("alice@example.com"))

	assert.Same(t, clientErr, err)
	assert.Len(t, sender.sent(), 1)
	assert.Zero(t, sleeper.CallCount())
}

func TestService_SendExhaustsRetries(t *testing.T) {
	last := &mailer.ServerError{StatusCode: 500, Message: "boom 4"}
	sender := &scriptedSender{errs: []error{
		&mailer.ServerError{StatusCode: 500, Message: "boom 1"},
		&mailer.ServerError{StatusCode: 500, Message: "boom 2"},
		&mailer.ServerError{StatusCode: 500, Message: "boom 3"},
		last,
	}}
	svc, _, _ := newTestService(t, sender)

	_, err := svc.Send(context.Background(), message("alice@example.com"))

	assert.Same(t, last, err, "last error is returned unchanged")
	assert.Len(t, sender.sent(), 4)
}

func TestService_SendInvalidMessageSkipsProvider(t *testing.T) {
	sender := &scriptedSender{}
	svc, _, _ := newTestService(t, sender)

	_, err := svc.Send(context.Background(), message("not-an-address"))

	assert.ErrorIs(t, err, mailer.ErrInvalidMessage)
	assert.Empty(t, sender.sent())
}

func TestService_SendFailsFastWhenCircuitOpen(t *testing.T) {
	sender := &scriptedSender{}
	svc, runner, _ := newTestService(t, sender)

	circuit := runner.Circuits().Get(CircuitName)
	for i := 0; i < 5; i++ {
		circuit.RecordFailure()
	}

	_, err := svc.Send(context.Background(), message("alice@example.com"))

	var openErr *resilience.CircuitOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, CircuitName, openErr.Service)
	assert.Empty(t, sender.sent())
}

func TestService_RejectedRecipientsDoNotOpenCircuit(t *testing.T) {
	var errs []error
	for i := 0; i < 10; i++ {
		errs = append(errs, &mailer.ClientError{StatusCode: 422, Message: "mailbox unavailable"})
	}
	sender := &scriptedSender{errs: errs}
	svc, runner, _ := newTestService(t, sender)

	for i := 0; i < 10; i++ {
		_, err := svc.Send(context.Background(), message("nobody@example.com"))
		var clientErr *mailer.ClientError
		require.ErrorAs(t, err, &clientErr)
	}

	circuit := runner.Circuits().Get(CircuitName)
	assert.Equal(t, circuitbreaker.StateClosed, circuit.State())
	assert.Zero(t, circuit.Snapshot().FailureCount)

	id, err := svc.Send(context.Background(), message("alice@example.com"))
	require.NoError(t, err, "other callers still reach the provider")
	assert.NotEmpty(t, id)
	assert.Len(t, sender.sent(), 11)
}

func TestService_BadProviderKeyOpensCircuit(t *testing.T) {
	var errs []error
	for i := 0; i < 5; i++ {
		errs = append(errs, &mailer.ClientError{StatusCode: 401, Message: "invalid api key"})
	}
	sender := &scriptedSender{errs: errs}
	svc, runner, _ := newTestService(t, sender)

	for i := 0; i < 5; i++ {
		_, _ = svc.Send(context.Background(), message("alice@example.com"))
	}

	assert.Equal(t, circuitbreaker.StateOpen, runner.Circuits().Get(CircuitName).State())
	_, err := svc.Send(context.Background(), message("alice@example.com"))
	assert.True(t, resilience.IsCircuitOpen(err))
	assert.Len(t, sender.sent(), 5)
}

func TestService_SendBatch(t *testing.T) {
	sender := &scriptedSender{errs: []error{&mailer.ClientError{StatusCode: 400, Message: "bad"}}}
	svc, _, _ := newTestService(t, sender)

	msgs := []*mailer.Message{
		message("a@example.com"),
		message("b@example.com"),
		message("bad"),
		message("c@example.com"),
	}
	results, err := svc.SendBatch(context.Background(), msgs)

	require.NoError(t, err)
	require.Len(t, results, 4)

	failed := 0
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		if r.Err != nil {
			failed++
			assert.Empty(t, r.MessageID)
		} else {
			assert.True(t, strings.HasPrefix(r.MessageID, "prov-"))
		}
	}
	// one invalid address plus one provider rejection
	assert.Equal(t, 2, failed)
	assert.ErrorIs(t, results[2].Err, mailer.ErrInvalidMessage)
}

func TestService_SendBatchEmpty(t *testing.T) {
	svc, _, _ := newTestService(t, &scriptedSender{})

	_, err := svc.SendBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestService_SendPasswordReset(t *testing.T) {
	tests := []struct {
		name     string
		resetURL string
		wantErr  error
	}{
		{"https link", "https://app.teamhub.local/reset?token=abc", nil},
		{"http link", "http://localhost:3000/reset", nil},
		{"relative", "/reset?token=abc", ErrInvalidResetURL},
		{"javascript", "javascript:alert(1)", ErrInvalidResetURL},
		{"garbage", "://", ErrInvalidResetURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &scriptedSender{}
			svc, _, _ := newTestService(t, sender)

			_, err := svc.SendPasswordReset(context.Background(), "alice@example.com", tt.resetURL)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Empty(t, sender.sent())
				return
			}
			require.NoError(t, err)
			calls := sender.sent()
			require.Len(t, calls, 1)
			assert.Equal(t, passwordResetSubject, calls[0].Subject)
			assert.Contains(t, calls[0].Text, tt.resetURL)
			assert.Equal(t, "alice@example.com", calls[0].To)
		})
	}
}
