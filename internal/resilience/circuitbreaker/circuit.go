package circuitbreaker

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrOpen is returned by Circuit.Allow when a call is refused.
var ErrOpen = errors.New("circuit open")

// State is the state of a Circuit.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

// TransitionFunc observes state changes. It is called after the circuit's
// lock has been released.
type TransitionFunc func(name string, from, to State, at time.Time)

// CircuitConfig configures a Circuit.
type CircuitConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	// Default: 5
	FailureThreshold int

	// RecoveryPeriod is how long an open circuit refuses calls. A trial is
	// admitted only once strictly more than RecoveryPeriod has elapsed since
	// the last failure.
	// Default: 60s
	RecoveryPeriod time.Duration

	// Clock defaults to SystemClock.
	Clock Clock

	// OnTransition is optional.
	OnTransition TransitionFunc
}

func (c *CircuitConfig) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryPeriod <= 0 {
		c.RecoveryPeriod = 60 * time.Second
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
}

// Snapshot is a point-in-time view of a Circuit.
type Snapshot struct {
	Name          string    `json:"name"`
	State         string    `json:"state"`
	FailureCount  int       `json:"failure_count"`
	LastFailureAt time.Time `json:"last_failure_at,omitzero"`
}

// Circuit is a consecutive-failure circuit breaker.
//
//   - closed: failures are counted; reaching the threshold opens the circuit.
//     A success resets the count.
//   - open: calls are refused until the recovery period has passed, then the
//     circuit moves to half-open and admits one trial.
//   - half-open: further calls are refused while the trial runs. Success
//     closes the circuit, failure reopens it.
//
// Callers pair every successful Allow with exactly one RecordSuccess,
// RecordFailure or Release.
type Circuit struct {
	name      string
	threshold int
	recovery  time.Duration
	clock     Clock
	onChange  TransitionFunc

	// notifyMu is taken before mu is released on a transition, so hooks see
	// transitions in the order they happened. Hooks must not call Allow,
	// RecordSuccess or RecordFailure.
	notifyMu sync.Mutex

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailureAt time.Time
	trialInFlight bool
}

// NewCircuit creates a closed circuit.
func NewCircuit(name string, cfg CircuitConfig) *Circuit {
	cfg.applyDefaults()
	return &Circuit{
		name:      name,
		threshold: cfg.FailureThreshold,
		recovery:  cfg.RecoveryPeriod,
		clock:     cfg.Clock,
		onChange:  cfg.OnTransition,
		state:     StateClosed,
	}
}

// Name returns the circuit name.
func (c *Circuit) Name() string { return c.name }

// Allow reports whether a call may proceed. It returns ErrOpen when the
// circuit refuses the call.
func (c *Circuit) Allow() error {
	now := c.clock.Now()

	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return nil
	case StateOpen:
		if now.Sub(c.lastFailureAt) <= c.recovery {
			c.mu.Unlock()
			return ErrOpen
		}
		c.state = StateHalfOpen
		c.trialInFlight = true
		c.unlockAndNotify(StateOpen, StateHalfOpen, now)
		return nil
	default: // half-open
		if c.trialInFlight {
			c.mu.Unlock()
			return ErrOpen
		}
		c.trialInFlight = true
		c.mu.Unlock()
		return nil
	}
}

// RecordSuccess records a successful call.
func (c *Circuit) RecordSuccess() {
	now := c.clock.Now()

	c.mu.Lock()
	c.failureCount = 0
	if c.state != StateHalfOpen {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	c.trialInFlight = false
	c.unlockAndNotify(StateHalfOpen, StateClosed, now)
}

// RecordFailure records a failed call.
func (c *Circuit) RecordFailure() {
	now := c.clock.Now()

	c.mu.Lock()
	prev := c.state
	opened := false
	switch prev {
	case StateClosed:
		c.failureCount++
		if c.failureCount >= c.threshold {
			c.state = StateOpen
			c.lastFailureAt = now
			opened = true
		}
	case StateHalfOpen:
		c.failureCount++
		c.state = StateOpen
		c.lastFailureAt = now
		c.trialInFlight = false
		opened = true
	case StateOpen:
		// A call admitted before the circuit opened. The recovery
		// period keeps running from the failure that opened it.
		c.failureCount++
	}
	if !opened {
		c.mu.Unlock()
		return
	}
	c.unlockAndNotify(prev, StateOpen, now)
}

// Release gives back an admission without recording an outcome, for calls
// abandoned by their caller. A half-open circuit becomes ready for a new trial.
func (c *Circuit) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateHalfOpen {
		c.trialInFlight = false
	}
}

// State returns the current state without side effects. An open circuit
// whose recovery period has passed still reports open until the next Allow.
func (c *Circuit) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current counters.
func (c *Circuit) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Name:          c.name,
		State:         c.state.String(),
		FailureCount:  c.failureCount,
		LastFailureAt: c.lastFailureAt,
	}
}

// RetryAfter returns how long until an open circuit admits a trial, or zero
// when it is not open.
func (c *Circuit) RetryAfter() time.Duration {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return 0
	}
	wait := c.lastFailureAt.Add(c.recovery).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// unlockAndNotify releases mu, which the caller holds, and delivers the
// transition to the hook.
func (c *Circuit) unlockAndNotify(from, to State, at time.Time) {
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	if c.onChange != nil {
		c.onChange(c.name, from, to, at)
	}
}

// Registry creates circuits lazily by name. All circuits in a registry share
// one CircuitConfig.
type Registry struct {
	cfg CircuitConfig

	mu       sync.Mutex
	circuits map[string]*Circuit
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg CircuitConfig) *Registry {
	cfg.applyDefaults()
	return &Registry{
		cfg:      cfg,
		circuits: make(map[string]*Circuit),
	}
}

// Get returns the circuit for name, creating it on first use.
func (r *Registry) Get(name string) *Circuit {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.circuits[name]; ok {
		return c
	}
	c := NewCircuit(name, r.cfg)
	r.circuits[name] = c
	return c
}

// Snapshots returns a snapshot of every circuit created so far.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	circuits := make([]*Circuit, 0, len(r.circuits))
	for _, c := range r.circuits {
		circuits = append(circuits, c)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(circuits))
	for _, c := range circuits {
		out = append(out, c.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
