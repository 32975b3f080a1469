package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"teamhub/internal/resilience/circuitbreaker"
)

// EventType names a resilience event.
type EventType string

const (
	EventCircuitOpen      EventType = "circuit_open"
	EventCircuitHalfOpen  EventType = "circuit_half_open"
	EventCircuitClosed    EventType = "circuit_closed"
	EventRetryScheduled   EventType = "retry_scheduled"
	EventRetriesExhausted EventType = "retries_exhausted"
)

// Event is emitted on every circuit transition, scheduled retry and
// exhausted retry loop.
type Event struct {
	Type      EventType
	Service   string
	Timestamp time.Time

	// Attempt is the 1-based number of the attempt that failed. Zero for
	// circuit transitions.
	Attempt int

	// Delay is the wait before the next attempt, for retry_scheduled.
	Delay time.Duration

	Error error

	// From and To are circuit states, for transitions.
	From string
	To   string
}

// RetryAttempt describes one failed attempt and the wait that follows it.
type RetryAttempt struct {
	Attempt int
	Delay   time.Duration
	Err     error
}

func (a RetryAttempt) event(t EventType, service string, at time.Time) Event {
	return Event{
		Type:      t,
		Service:   service,
		Timestamp: at,
		Attempt:   a.Attempt,
		Delay:     a.Delay,
		Error:     a.Err,
	}
}

func transitionEvent(service string, from, to circuitbreaker.State, at time.Time) Event {
	var t EventType
	switch to {
	case circuitbreaker.StateOpen:
		t = EventCircuitOpen
	case circuitbreaker.StateHalfOpen:
		t = EventCircuitHalfOpen
	default:
		t = EventCircuitClosed
	}
	return Event{
		Type:      t,
		Service:   service,
		Timestamp: at,
		From:      from.String(),
		To:        to.String(),
	}
}

// EventSink receives resilience events. Emit must be safe for concurrent use
// and must not block.
//
// ctx is the context of the Run call that produced the event. Circuit
// transitions change state shared by every caller and arrive with
// context.Background().
type EventSink interface {
	Emit(ctx context.Context, e Event)
}

// NopSink discards events.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(context.Context, Event) {}

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

// Emit implements EventSink.
func (m MultiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}

// LogSink writes events as structured slog records.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Emit implements EventSink. Circuit openings and exhausted retries are
// warnings, everything else is info. The record is logged with ctx so the
// handler can attach request and trace IDs.
func (s *LogSink) Emit(ctx context.Context, e Event) {
	level := slog.LevelInfo
	if e.Type == EventCircuitOpen || e.Type == EventRetriesExhausted {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("event", string(e.Type)),
		slog.String("service", e.Service),
		slog.Time("timestamp", e.Timestamp),
	}
	if e.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", e.Attempt))
	}
	if e.Delay > 0 {
		attrs = append(attrs, slog.Duration("delay", e.Delay))
	}
	if e.Error != nil {
		attrs = append(attrs, slog.String("error", e.Error.Error()))
	}
	if e.From != "" {
		attrs = append(attrs, slog.String("from", e.From), slog.String("to", e.To))
	}

	s.logger.LogAttrs(ctx, level, "resilience event", attrs...)
}

// MetricsSink counts events and tracks circuit states in Prometheus, using
// its own registry.
type MetricsSink struct {
	registry     *prometheus.Registry
	eventsTotal  *prometheus.CounterVec
	circuitState *prometheus.GaugeVec
}

// NewMetricsSink creates a MetricsSink with its own registry.
func NewMetricsSink() *MetricsSink {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resilience_events_total",
			Help: "Resilience events by service and type",
		},
		[]string{"service", "type"},
	)

	// 0 = closed, 1 = half-open, 2 = open
	circuitState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resilience_circuit_state",
			Help: "Circuit state by service (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service"},
	)

	registry.MustRegister(eventsTotal, circuitState)

	return &MetricsSink{
		registry:     registry,
		eventsTotal:  eventsTotal,
		circuitState: circuitState,
	}
}

// Registry returns the registry holding the sink's collectors.
func (s *MetricsSink) Registry() *prometheus.Registry {
	return s.registry
}

// Emit implements EventSink.
func (s *MetricsSink) Emit(_ context.Context, e Event) {
	s.eventsTotal.WithLabelValues(e.Service, string(e.Type)).Inc()

	switch e.Type {
	case EventCircuitClosed:
		s.circuitState.WithLabelValues(e.Service).Set(0)
	case EventCircuitHalfOpen:
		s.circuitState.WithLabelValues(e.Service).Set(1)
	case EventCircuitOpen:
		s.circuitState.WithLabelValues(e.Service).Set(2)
	}
}

var (
	_ EventSink = NopSink{}
	_ EventSink = MultiSink(nil)
	_ EventSink = (*LogSink)(nil)
	_ EventSink = (*MetricsSink)(nil)
)
