package elasticity

import (
	"math"

	"github.com/sawpanic/pricecast/internal/domain"
)

// DemandForecast is the outcome of the constant-elasticity demand curve.
type DemandForecast struct {
	Visitors   int64   `json:"visitors"`
	Change     int64   `json:"change"`
	ChangePct  float64 `json:"change_pct"`
	PriceRatio float64 `json:"price_ratio"`
}

// ForecastDemand applies Q1 = Q0 * (P1/P0)^e and rounds Q1 to whole visitors.
// Zero, negative or non-finite inputs are rejected; a zero elasticity cannot
// support the curve.
func ForecastDemand(currentPrice, newPrice float64, baseVisitors int64, e float64) (DemandForecast, error) {
	if err := positive("current_price", currentPrice); err != nil {
		return DemandForecast{}, err
	}
	if err := positive("new_price", newPrice); err != nil {
		return DemandForecast{}, err
	}
	if baseVisitors <= 0 {
		return DemandForecast{}, &domain.InvalidInputError{Field: "base_visitors", Value: float64(baseVisitors)}
	}
	if e == 0 || !finite(e) {
		return DemandForecast{}, &domain.InvalidInputError{Field: "elasticity", Value: e}
	}

	ratio := newPrice / currentPrice
	q1 := int64(math.Round(float64(baseVisitors) * math.Pow(ratio, e)))
	change := q1 - baseVisitors
	return DemandForecast{
		Visitors:   q1,
		Change:     change,
		ChangePct:  float64(change) / float64(baseVisitors) * 100,
		PriceRatio: ratio,
	}, nil
}

// PriceChangePct is the fractional price move (P1-P0)/P0.
func PriceChangePct(currentPrice, newPrice float64) (float64, error) {
	if err := positive("current_price", currentPrice); err != nil {
		return 0, err
	}
	if err := positive("new_price", newPrice); err != nil {
		return 0, err
	}
	return (newPrice - currentPrice) / currentPrice, nil
}

// ForecastChurn is the linear small-perturbation response
// churn1 = churn0 * (1 + e * pct), clamped to [0, 1].
func ForecastChurn(churnRate, currentPrice, newPrice, e float64) (float64, error) {
	if !finite(churnRate) || churnRate < 0 || churnRate > 1 {
		return 0, &domain.InvalidInputError{Field: "churn_rate", Value: churnRate}
	}
	pct, err := PriceChangePct(currentPrice, newPrice)
	if err != nil {
		return 0, err
	}
	if !finite(e) {
		return 0, &domain.InvalidInputError{Field: "churn_elasticity", Value: e}
	}
	return math.Min(1, math.Max(0, churnRate*(1+e*pct))), nil
}

// ForecastAcquisition is the linear response acq1 = acq0 * (1 + e * pct),
// floored at zero.
func ForecastAcquisition(acquisitions, currentPrice, newPrice, e float64) (float64, error) {
	if !finite(acquisitions) || acquisitions < 0 {
		return 0, &domain.InvalidInputError{Field: "acquisitions", Value: acquisitions}
	}
	pct, err := PriceChangePct(currentPrice, newPrice)
	if err != nil {
		return 0, err
	}
	if !finite(e) {
		return 0, &domain.InvalidInputError{Field: "acquisition_elasticity", Value: e}
	}
	return math.Max(0, acquisitions*(1+e*pct)), nil
}

func positive(field string, v float64) error {
	if !finite(v) || v <= 0 {
		return &domain.InvalidInputError{Field: field, Value: v}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
