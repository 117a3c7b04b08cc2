package simulate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/segment"
)

// targetFilter converts a target into a segment filter on its tier.
func targetFilter(tier domain.TierID, t domain.Target) segment.Filter {
	f := segment.Filter{Tier: tier}
	if !t.IsCohort() {
		f.Acquisition = []string{t.Segment.Acquisition}
		f.Engagement = []string{t.Segment.Engagement}
		f.Monetization = []string{t.Segment.Monetization}
		return f
	}
	switch t.CohortAxis {
	case domain.AxisAcquisition:
		f.Acquisition = []string{t.CohortValue}
	case domain.AxisEngagement:
		f.Engagement = []string{t.CohortValue}
	case domain.AxisMonetization:
		f.Monetization = []string{t.CohortValue}
	}
	return f
}

// forecastTargeted applies the price change to the target only, spreads the
// resulting migration over the rest of the tier, and reconciles tier totals
// as baseline + target delta + spillover.
func (s *Simulator) forecastTargeted(r *run, res *domain.SimulationResult) error {
	t := *r.scenario.Target
	tier := r.scenario.Tier

	var targets, others []domain.Segment
	for _, seg := range s.engine.FilterSegments(segment.Filter{Tier: tier}) {
		if t.Matches(seg.Key) {
			targets = append(targets, seg)
		} else {
			others = append(others, seg)
		}
	}
	if len(targets) == 0 {
		return &domain.InvalidInputError{Field: "target", Reason: fmt.Sprintf("no segment data for %s in tier %s", t.Label(), tier)}
	}

	weights := make([]float64, len(targets))
	elast := make([]float64, len(targets))
	var vt0 int64
	for i, seg := range targets {
		weights[i] = float64(seg.Visitors)
		elast[i] = s.engine.Elasticity(tier, seg.Key.String(), domain.AxisAcquisition)
		vt0 += seg.Visitors
	}
	if vt0 <= 0 {
		return &domain.InvalidInputError{Field: "target", Reason: fmt.Sprintf("target %s has no visitors", t.Label())}
	}
	e := stat.Mean(elast, weights)
	kpi := segment.AggregateKPIs(targets)
	churnT := 1 - kpi.AvgReturnRate

	demandChangePct := e * r.pct
	vt1 := int64(math.Round(float64(vt0) * (1 + demandChangePct)))
	if vt1 < 0 {
		vt1 = 0
	}
	churnMult := 1 + s.config.ChurnDamping*e*r.pct

	rawRate := math.Abs(demandChangePct) * s.config.MigrationFactor
	rate := math.Min(rawRate, s.config.MigrationCap)
	migrants := int64(math.Floor(rate * float64(vt0)))
	var sign int64 = 1
	if r.pct > 0 {
		sign = -1
	}
	spill := apportion(others, migrants)
	var spillNet int64
	for i := range spill {
		spill[i].Delta *= sign
		spillNet += spill[i].Delta
	}

	b := res.Baseline
	v1 := b.Visitors + (vt1 - vt0) + spillNet
	if v1 < 0 {
		return &domain.InvalidInputError{
			Field:  "target",
			Reason: fmt.Sprintf("segment visitors for %s exceed the tier baseline of %d", t.Label(), b.Visitors),
		}
	}
	targetRevDelta := float64(vt1)*r.p1 - float64(vt0)*r.p0
	r1 := b.Revenue + targetRevDelta + float64(spillNet)*r.p0

	share := math.Min(1, math.Max(0, float64(vt0)/float64(b.Visitors)))
	churn1 := math.Min(1, math.Max(0, b.ChurnRate+share*churnT*(churnMult-1)))
	acq1 := math.Max(0, b.NewAcquisitions*(1+share*demandChangePct))

	var arpv1 float64
	if v1 > 0 && b.Revenue > 0 {
		arpv1 = b.ARPV * (r1 / float64(v1)) / (b.Revenue / float64(b.Visitors))
	}

	res.Forecast = domain.Metrics{
		Price:           r.p1,
		Visitors:        v1,
		ReturnRate:      1 - churn1,
		ChurnRate:       churn1,
		NewAcquisitions: acq1,
		Revenue:         r1,
		ARPV:            arpv1,
		LTV:             arpv1 * s.config.LifetimeVisits,
		NetAdds:         acq1 - float64(v1)*churn1,
	}
	res.Target = &domain.TargetImpact{
		Label:            t.Label(),
		Segments:         len(targets),
		Elasticity:       e,
		BaselineVisitors: vt0,
		ForecastVisitors: vt1,
		DemandChangePct:  demandChangePct * 100,
		ChurnMultiplier:  churnMult,
		MigrationRate:    rate,
		Migrants:         migrants,
		MigrationCapped:  rawRate > s.config.MigrationCap,
		RevenueDelta:     targetRevDelta,
	}
	res.Spillover = nonZero(spill)
	res.Elasticity.Target = &e
	return nil
}

// apportion splits n migrants over segments by visitor share using largest
// remainders, so the parts always sum to n exactly. Ties go to the earlier
// segment.
func apportion(segs []domain.Segment, n int64) []domain.SpilloverEffect {
	out := make([]domain.SpilloverEffect, len(segs))
	var total int64
	for i, s := range segs {
		out[i] = domain.SpilloverEffect{Segment: s.Key, BaselineVisitors: s.Visitors}
		total += s.Visitors
	}
	if total <= 0 || n <= 0 {
		return out
	}

	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(segs))
	var assigned int64
	for i, s := range segs {
		out[i].Share = float64(s.Visitors) / float64(total)
		exact := float64(n) * float64(s.Visitors) / float64(total)
		whole := math.Floor(exact)
		out[i].Delta = int64(whole)
		assigned += int64(whole)
		rems[i] = rem{idx: i, frac: exact - whole}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for i := 0; int64(i) < n-assigned; i++ {
		out[rems[i].idx].Delta++
	}
	return out
}

func nonZero(in []domain.SpilloverEffect) []domain.SpilloverEffect {
	out := make([]domain.SpilloverEffect, 0, len(in))
	for _, s := range in {
		if s.Delta != 0 {
			out = append(out, s)
		}
	}
	return out
}
