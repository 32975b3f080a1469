package windowstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"

	"teamhub/internal/resilience/circuitbreaker"
)

// InstrumentBreaker returns cfg with an OnStateChange hook that exports the
// breaker state as window_store_breaker_state{breaker}: 0 closed, 1 half-open,
// 2 open. An existing hook still runs.
func InstrumentBreaker(reg prometheus.Registerer, cfg circuitbreaker.Config) circuitbreaker.Config {
	gauge := promauto.With(reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "window_store_breaker_state",
			Help: "State of the breaker guarding the shared window store (0 closed, 1 half-open, 2 open)",
		},
		[]string{"breaker"},
	)
	gauge.WithLabelValues(cfg.Name).Set(breakerStateValue(gobreaker.StateClosed))

	next := cfg.OnStateChange
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		gauge.WithLabelValues(name).Set(breakerStateValue(to))
		if next != nil {
			next(name, from, to)
		}
	}
	return cfg
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
