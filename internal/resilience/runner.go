package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"teamhub/internal/resilience/circuitbreaker"
	"teamhub/internal/resilience/retry"
)

const unnamedService = "unnamed"

// Options configures a single Run call.
type Options struct {
	// MaxRetries is the number of retries after the first attempt. Run makes
	// at most MaxRetries+1 attempts.
	MaxRetries int

	// BaseDelay is the wait after the first failed attempt. The wait doubles
	// on every retry up to MaxDelay, plus up to 20% jitter.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Timeout bounds each attempt. Zero disables the timeout.
	Timeout time.Duration

	// CircuitName selects the circuit guarding the operation. Empty disables
	// the circuit breaker.
	CircuitName string

	// Retryable reports whether a failed attempt may be retried. Nil retries
	// every error.
	Retryable func(error) bool

	// IsFailure reports whether a failed attempt counts against the circuit.
	// Errors it rejects release the attempt's admission without an outcome.
	// Nil counts every error.
	IsFailure func(error) bool
}

func (o Options) service() string {
	if o.CircuitName == "" {
		return unnamedService
	}
	return o.CircuitName
}

// Config holds the dependencies of a Runner.
type Config struct {
	// Circuits configures every circuit the runner creates. Its OnTransition
	// hook, if set, is called in addition to the event sink.
	Circuits circuitbreaker.CircuitConfig

	// Sink receives events. Default: NopSink
	Sink EventSink

	// Sleeper waits between retries. Default: RealSleeper
	Sleeper Sleeper

	// Tracer starts one span per attempt. Default: otel.Tracer("teamhub/resilience")
	Tracer trace.Tracer

	// Rand returns jitter randomness in [0, 1). Default: math/rand
	Rand func() float64
}

// Runner executes operations with retries, per-service circuit breaking and
// per-attempt timeouts. It is safe for concurrent use.
type Runner struct {
	circuits *circuitbreaker.Registry
	sink     EventSink
	sleeper  Sleeper
	tracer   trace.Tracer
	clock    circuitbreaker.Clock
	rand     func() float64
}

// NewRunner creates a Runner with its own circuit registry.
func NewRunner(cfg Config) *Runner {
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = RealSleeper{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("teamhub/resilience")
	}
	if cfg.Circuits.Clock == nil {
		cfg.Circuits.Clock = circuitbreaker.SystemClock{}
	}

	r := &Runner{
		sink:    cfg.Sink,
		sleeper: cfg.Sleeper,
		tracer:  cfg.Tracer,
		clock:   cfg.Circuits.Clock,
		rand:    cfg.Rand,
	}

	userHook := cfg.Circuits.OnTransition
	cfg.Circuits.OnTransition = func(name string, from, to circuitbreaker.State, at time.Time) {
		r.sink.Emit(context.Background(), transitionEvent(name, from, to, at))
		if userHook != nil {
			userHook(name, from, to, at)
		}
	}
	r.circuits = circuitbreaker.NewRegistry(cfg.Circuits)

	return r
}

// Circuits returns the runner's circuit registry.
func (r *Runner) Circuits() *circuitbreaker.Registry {
	return r.circuits
}

// Do is Run for operations without a result.
func (r *Runner) Do(ctx context.Context, op func(context.Context) error, opts Options) error {
	_, err := Run(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts)
	return err
}

// Run executes op under r's retry, circuit and timeout policy.
//
// Each attempt is admitted by the circuit named in opts first; a refusal ends
// the loop with *CircuitOpenError without calling op. A failed attempt is
// recorded on the circuit and retried after a backoff delay while retries
// remain. A retry is announced only once the circuit admits it. When retries
// run out the last error is returned unchanged.
func Run[T any](ctx context.Context, r *Runner, op func(context.Context) (T, error), opts Options) (T, error) {
	var zero T

	service := opts.service()
	policy := retry.Policy{
		BaseDelay:      opts.BaseDelay,
		MaxDelay:       opts.MaxDelay,
		JitterFraction: retry.DefaultJitterFraction,
		Rand:           r.rand,
	}

	var circuit *circuitbreaker.Circuit
	if opts.CircuitName != "" {
		circuit = r.circuits.Get(opts.CircuitName)
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var (
		lastErr error
		pending *RetryAttempt
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		if circuit != nil {
			if err := circuit.Allow(); err != nil {
				return zero, &CircuitOpenError{
					Service:    service,
					RetryAfter: circuit.RetryAfter(),
					Cause:      lastErr,
				}
			}
		}
		if pending != nil {
			r.sink.Emit(ctx, pending.event(EventRetryScheduled, service, r.clock.Now()))
			pending = nil
		}

		result, err := runAttempt(ctx, r.tracer, op, service, attempt+1, opts.Timeout)
		if err == nil {
			if circuit != nil {
				circuit.RecordSuccess()
			}
			return result, nil
		}

		if ctx.Err() != nil {
			if circuit != nil {
				circuit.Release()
			}
			return zero, ctx.Err()
		}

		lastErr = err
		if circuit != nil {
			if opts.IsFailure == nil || opts.IsFailure(err) {
				circuit.RecordFailure()
			} else {
				circuit.Release()
			}
		}

		if opts.Retryable != nil && !opts.Retryable(err) {
			return zero, err
		}
		if attempt == maxRetries {
			break
		}

		pending = &RetryAttempt{Attempt: attempt + 1, Delay: policy.Delay(attempt), Err: err}
		if err := r.sleeper.Sleep(ctx, pending.Delay); err != nil {
			return zero, err
		}
	}

	exhausted := RetryAttempt{Attempt: maxRetries + 1, Err: lastErr}
	r.sink.Emit(ctx, exhausted.event(EventRetriesExhausted, service, r.clock.Now()))

	return zero, lastErr
}

type attemptResult[T any] struct {
	value T
	err   error
}

// runAttempt races op against timeout. The result channel is buffered so a
// late op never blocks; its result is dropped.
func runAttempt[T any](
	ctx context.Context,
	tracer trace.Tracer,
	op func(context.Context) (T, error),
	service string,
	attempt int,
	timeout time.Duration,
) (T, error) {
	var zero T

	ctx, span := tracer.Start(ctx, "resilience.attempt",
		trace.WithAttributes(
			attribute.String("service", service),
			attribute.Int("attempt", attempt),
		))
	defer span.End()

	var (
		attemptCtx context.Context
		cancel     context.CancelFunc
	)
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		attemptCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan attemptResult[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- attemptResult[T]{err: fmt.Errorf("operation panicked: %v", p)}
			}
		}()
		v, err := op(attemptCtx)
		done <- attemptResult[T]{value: v, err: err}
	}()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	timedOut := func() (T, error) {
		err := &OperationTimeoutError{Service: service, Attempt: attempt, Timeout: timeout}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}

	select {
	case res := <-done:
		if res.err != nil {
			// op observed its own deadline before the timer fired.
			if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				return timedOut()
			}
			span.RecordError(res.err)
			span.SetStatus(codes.Error, res.err.Error())
			return zero, res.err
		}
		return res.value, nil
	case <-timeoutC:
		return timedOut()
	case <-ctx.Done():
		span.SetStatus(codes.Error, "cancelled")
		return zero, ctx.Err()
	}
}
