package cohort

import (
	"github.com/sawpanic/pricecast/internal/domain"
)

// LagBucket is the share of a churn response landing in one window.
type LagBucket struct {
	Horizon string  `json:"horizon"`
	Weight  float64 `json:"weight"`
	Value   float64 `json:"value"`
}

// DistributeLag spreads total over the four weekly windows in proportion to
// the distribution's weights. Weights need not sum to one. A nil or all-zero
// distribution puts everything in the first window.
func DistributeLag(total float64, d *domain.LagDistribution) []LagBucket {
	horizons := domain.LagHorizons()
	out := make([]LagBucket, len(horizons))
	for i, h := range horizons {
		out[i].Horizon = h
	}

	var weights [4]float64
	var sum float64
	if d != nil {
		weights = d.Weights()
		for _, w := range weights {
			if w > 0 {
				sum += w
			}
		}
	}
	if sum == 0 {
		out[0].Weight, out[0].Value = 1, total
		return out
	}
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		out[i].Weight = w / sum
		out[i].Value = total * w / sum
	}
	return out
}

// LagProfile returns the active cohort's lag distribution, or nil when the
// cohort does not define one.
func (a *Aggregator) LagProfile() *domain.LagDistribution {
	p, ok := a.engine.Context().ActiveProfile()
	if !ok {
		return nil
	}
	return p.TimeLag
}
