package lagmodel

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/metrics"
)

// BreakerConfig configures the circuit breaker around an external backend.
type BreakerConfig struct {
	Name                string        `yaml:"name"`
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

// DefaultBreakerConfig trips after three consecutive failures and lets one
// trial request through after thirty seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "lag-backend",
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 3,
	}
}

// Guarded runs an external backend behind a circuit breaker and answers from
// the native model whenever the backend fails or the breaker is open.
type Guarded struct {
	primary  Backend
	fallback *Model
	breaker  *gobreaker.CircuitBreaker
	metrics  *metrics.Registry
}

// NewGuarded wraps primary. A nil fallback uses the default native model.
func NewGuarded(primary Backend, fallback *Model, config BreakerConfig, m *metrics.Registry) *Guarded {
	if fallback == nil {
		fallback = NewModel(nil)
	}
	if config.ConsecutiveFailures == 0 {
		config.ConsecutiveFailures = DefaultBreakerConfig().ConsecutiveFailures
	}
	threshold := config.ConsecutiveFailures

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Churn backend circuit breaker state change")
		},
	}

	return &Guarded{
		primary:  primary,
		fallback: fallback,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		metrics:  m,
	}
}

func (g *Guarded) Name() string { return "guarded:" + g.primary.Name() }

// State reports the breaker state.
func (g *Guarded) State() gobreaker.State { return g.breaker.State() }

// ChurnByHorizon implements Backend. It only fails when the native fallback
// rejects the request itself.
func (g *Guarded) ChurnByHorizon(ctx context.Context, req Request) ([]domain.HorizonChurn, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.primary.ChurnByHorizon(ctx, req)
	})
	if err == nil {
		if res, ok := out.([]domain.HorizonChurn); ok && len(res) > 0 {
			return res, nil
		}
		err = errors.New("backend returned no horizons")
	}

	reason := "backend_error"
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		reason = "breaker_open"
	}
	g.metrics.ObserveLagFallback(reason)
	log.Warn().Err(err).Str("backend", g.primary.Name()).Str("reason", reason).Msg("Falling back to native churn model")

	return g.fallback.ByHorizon(req)
}
