// Package resilience runs outbound operations with retries, a per-service
// circuit breaker and a per-attempt timeout.
//
// A Runner owns a circuitbreaker.Registry, an EventSink and a Sleeper. Nothing
// is global: construct one Runner per process (or per test) and pass it to
// Run.
//
//	runner := resilience.NewRunner(resilience.Config{
//	    Circuits: circuitbreaker.CircuitConfig{FailureThreshold: 5, RecoveryPeriod: time.Minute},
//	    Sink:     resilience.NewLogSink(logger),
//	})
//	id, err := resilience.Run(ctx, runner, func(ctx context.Context) (string, error) {
//	    return sender.Send(ctx, msg)
//	}, resilience.Options{
//	    MaxRetries:  3,
//	    BaseDelay:   100 * time.Millisecond,
//	    MaxDelay:    5 * time.Second,
//	    Timeout:     10 * time.Second,
//	    CircuitName: "email",
//	})
//
// Failures surface as one of:
//   - *CircuitOpenError (errors.Is(err, ErrCircuitOpen)) when the circuit refuses the call
//   - the last operation error, unchanged, when retries are exhausted
//   - *OperationTimeoutError (errors.Is(err, ErrOperationTimeout)) when that last error was a timeout
//   - ctx.Err() when the caller gives up
package resilience
