// Package lagmodel forecasts how a price change's churn impact unfolds over
// the weeks after the change, using a logistic model with per-window
// interaction coefficients.
package lagmodel

import (
	"context"
	"math"

	"github.com/sawpanic/pricecast/internal/domain"
)

// Config holds the fitted coefficients.
type Config struct {
	Intercept           float64            `yaml:"intercept"`
	PriceCoefficient    float64            `yaml:"price_coefficient"`
	HorizonCoefficients map[string]float64 `yaml:"horizon_coefficients"`

	// AnchorToBaseline replaces the intercept with the log-odds of the
	// caller's baseline churn, so uplift is measured from that tier's own
	// churn rather than from the fitted 5%.
	AnchorToBaseline         bool    `yaml:"anchor_to_baseline"`
	DefaultBaselineChurn     float64 `yaml:"default_baseline_churn"`
	DefaultSegmentElasticity float64 `yaml:"default_segment_elasticity"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// DefaultConfig returns the fitted coefficients. The intercept is the
// log-odds of a 5% baseline churn.
func DefaultConfig() *Config {
	return &Config{
		Intercept:        -2.944,
		PriceCoefficient: 0.01,
		HorizonCoefficients: map[string]float64{
			domain.Horizon0To4Weeks:   0.006,
			domain.Horizon4To8Weeks:   0.018,
			domain.Horizon8To12Weeks:  0.028,
			domain.Horizon12PlusWeeks: 0.008,
		},
		AnchorToBaseline:         true,
		DefaultBaselineChurn:     0.05,
		DefaultSegmentElasticity: -2.0,
		Breaker:                  DefaultBreakerConfig(),
	}
}

// Request is one churn forecast. PriceChangePct is in percent (10 = +10%).
// A zero BaselineChurn uses the configured default.
type Request struct {
	PriceChangePct float64 `json:"price_change_pct"`
	BaselineChurn  float64 `json:"baseline_churn"`
}

// Backend is a pluggable churn forecaster.
type Backend interface {
	Name() string
	ChurnByHorizon(ctx context.Context, req Request) ([]domain.HorizonChurn, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) ([]domain.HorizonChurn, error)

func (f BackendFunc) Name() string { return "func" }

func (f BackendFunc) ChurnByHorizon(ctx context.Context, req Request) ([]domain.HorizonChurn, error) {
	return f(ctx, req)
}

// Model is the native logistic implementation.
type Model struct {
	config *Config
}

// NewModel builds a model; a nil config uses DefaultConfig.
func NewModel(config *Config) *Model {
	if config == nil {
		config = DefaultConfig()
	}
	return &Model{config: config}
}

func (m *Model) Name() string { return "native" }

// ChurnByHorizon implements Backend. It never fails on valid input.
func (m *Model) ChurnByHorizon(ctx context.Context, req Request) ([]domain.HorizonChurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.ByHorizon(req)
}

// ByHorizon computes churn for each window as
// logistic(intercept + (price + horizon) * pct) and its uplift over baseline.
func (m *Model) ByHorizon(req Request) ([]domain.HorizonChurn, error) {
	if math.IsNaN(req.PriceChangePct) || math.IsInf(req.PriceChangePct, 0) {
		return nil, &domain.InvalidInputError{Field: "price_change_pct", Value: req.PriceChangePct}
	}
	baseline := req.BaselineChurn
	if baseline == 0 {
		baseline = m.config.DefaultBaselineChurn
	}
	if math.IsNaN(baseline) || baseline < 0 || baseline >= 1 {
		return nil, &domain.InvalidInputError{Field: "baseline_churn", Value: baseline}
	}

	intercept := m.config.Intercept
	if m.config.AnchorToBaseline && baseline > 0 {
		intercept = math.Log(baseline / (1 - baseline))
	}

	horizons := domain.LagHorizons()
	out := make([]domain.HorizonChurn, 0, len(horizons))
	for _, h := range horizons {
		coef := m.config.HorizonCoefficients[h]
		rate := logistic(intercept + (m.config.PriceCoefficient+coef)*req.PriceChangePct)
		uplift := rate - baseline
		out = append(out, domain.HorizonChurn{
			Horizon:  h,
			Rate:     rate,
			Uplift:   uplift,
			UpliftPP: uplift * 100,
		})
	}
	return out, nil
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// SegmentInput is one segment to scale the horizon forecast for.
type SegmentInput struct {
	Name       string  `json:"name"`
	Size       int64   `json:"size"`
	Elasticity float64 `json:"elasticity"` // 0 uses the configured default
}

// SegmentChurn is a horizon forecast scaled to one segment.
type SegmentChurn struct {
	Name       string                `json:"name"`
	Size       int64                 `json:"size"`
	Multiplier float64               `json:"multiplier"`
	Horizons   []domain.HorizonChurn `json:"horizons"`
}

// SegmentMultiplier maps |elasticity| in [0, 4] onto [0.7, 1.3]; churn varies
// less across segments than acquisition does.
func SegmentMultiplier(elasticity float64) float64 {
	return 0.7 + math.Min(math.Abs(elasticity), 4)/4*0.6
}

// BySegment scales the uplift of each window by the segment multiplier.
func (m *Model) BySegment(req Request, segments []SegmentInput) ([]SegmentChurn, error) {
	base, err := m.ByHorizon(req)
	if err != nil {
		return nil, err
	}
	out := make([]SegmentChurn, 0, len(segments))
	for _, s := range segments {
		e := s.Elasticity
		if e == 0 {
			e = m.config.DefaultSegmentElasticity
		}
		out = append(out, SegmentChurn{
			Name:       s.Name,
			Size:       s.Size,
			Multiplier: SegmentMultiplier(e),
			Horizons:   ScaleToSegment(base, e),
		})
	}
	return out, nil
}

// ScaleToSegment rescales a tier-level horizon forecast to a segment with
// the given elasticity. Only the uplift over baseline is scaled.
func ScaleToSegment(base []domain.HorizonChurn, elasticity float64) []domain.HorizonChurn {
	mult := SegmentMultiplier(elasticity)
	out := make([]domain.HorizonChurn, len(base))
	for i, h := range base {
		uplift := h.Uplift * mult
		out[i] = domain.HorizonChurn{
			Horizon:  h.Horizon,
			Rate:     h.Rate - h.Uplift + uplift,
			Uplift:   uplift,
			UpliftPP: uplift * 100,
		}
	}
	return out
}
