package simulate

import (
	"fmt"
	"math"

	"github.com/sawpanic/pricecast/internal/domain"
)

// progress is the share of the full effect reached in a month: a linear ramp
// over RampMonths, held afterwards. A promotion's effect ends with the
// promotion.
func (s *Simulator) progress(r *run, month int) float64 {
	if month <= 0 {
		return 0
	}
	if promo, ok := r.scenario.Config.(domain.Promotion); ok && month > promo.DurationMonths {
		return 0
	}
	ramp := s.config.RampMonths
	if ramp <= 0 {
		return 1
	}
	return math.Min(float64(month)/float64(ramp), 1)
}

// timeSeries interpolates baseline to forecast over HorizonMonths points,
// month 0 being the baseline.
func (s *Simulator) timeSeries(r *run, res *domain.SimulationResult) []domain.TimePoint {
	n := s.config.HorizonMonths
	if n <= 0 {
		n = 12
	}
	b, f := res.Baseline, res.Forecast
	out := make([]domain.TimePoint, n)
	for m := 0; m < n; m++ {
		p := s.progress(r, m)
		out[m] = domain.TimePoint{
			Month:           m,
			Progress:        p,
			Visitors:        b.Visitors + int64(math.Round(p*float64(f.Visitors-b.Visitors))),
			ReturnRate:      lerp(b.ReturnRate, f.ReturnRate, p),
			NewAcquisitions: lerp(b.NewAcquisitions, f.NewAcquisitions, p),
			Revenue:         lerp(b.Revenue, f.Revenue, p),
		}
	}
	return out
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// warnings lists advisory findings; none of them fail the simulation.
func (s *Simulator) warnings(r *run, res *domain.SimulationResult) []string {
	th := s.config.Warnings
	out := []string{}

	if d := res.Deltas.ReturnRate.Pct; d < -th.ReturnRateDropPct {
		out = append(out, fmt.Sprintf("Return rate decreases by %.1f%% (threshold %.0f%%)", -d, th.ReturnRateDropPct))
	}
	if d := res.Deltas.Visitors.Pct; d < -th.VisitorDropPct {
		out = append(out, fmt.Sprintf("Visitor base shrinks by %.1f%% (threshold %.0f%%)", -d, th.VisitorDropPct))
	}
	if res.PriceChangePct > th.PriceIncreasePct {
		out = append(out, fmt.Sprintf("Price increase of %.1f%% exceeds %.0f%%", res.PriceChangePct, th.PriceIncreasePct))
	}
	c := r.scenario.Constraints
	if !c.PriceInRange(r.p1) {
		out = append(out, fmt.Sprintf("New price %.2f is outside the allowed range [%.2f, %.2f]", r.p1, c.MinPrice, c.MaxPrice))
	}
	if promo, ok := r.scenario.Config.(domain.Promotion); ok && promo.DurationMonths > s.config.HorizonMonths {
		out = append(out, fmt.Sprintf("Promotion runs %d months, beyond the %d-month forecast horizon", promo.DurationMonths, s.config.HorizonMonths))
	}
	if res.Target != nil && res.Target.MigrationCapped {
		out = append(out, fmt.Sprintf("Spillover migration capped at %.0f%% of the target", s.config.MigrationCap*100))
	}
	if r.baseline.synthesized {
		out = append(out, fmt.Sprintf("Baseline synthesized from %s at %.0f%% adoption", r.proxy.DonorTier, r.proxy.AdoptionRate*100))
	}
	return out
}
