// Package cohort rolls the segment table up into per-axis behavioral cohorts.
package cohort

import (
	"gonum.org/v1/gonum/stat"

	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/segment"
)

// Cohort is every segment of a tier sharing one axis value.
type Cohort struct {
	Axis          domain.Axis `json:"axis"`
	Value         string      `json:"value"`
	Label         string      `json:"label"`
	Descriptor    string      `json:"elasticity_descriptor"`
	Segments      int         `json:"segments"`
	Size          int64       `json:"size"`
	Elasticity    float64     `json:"elasticity"`
	AvgReturnRate float64     `json:"avg_return_rate"`
	AvgARPV       float64     `json:"avg_arpv"`
	ChurnRate     *float64    `json:"churn_rate,omitempty"` // engagement cohorts only
}

// Aggregator builds cohorts from a segmentation engine, inheriting its
// active-cohort multipliers.
type Aggregator struct {
	engine *segment.Engine
}

// NewAggregator wraps an engine.
func NewAggregator(engine *segment.Engine) *Aggregator {
	return &Aggregator{engine: engine}
}

// AcquisitionCohorts groups a tier by visit frequency. Engagement and
// monetization lists in f restrict the segments considered.
func (a *Aggregator) AcquisitionCohorts(tier domain.TierID, f segment.Filter) []Cohort {
	return a.Cohorts(tier, domain.AxisAcquisition, f)
}

// EngagementCohorts groups a tier by party composition and adds a churn
// rate of 1 - weighted return rate to each cohort.
func (a *Aggregator) EngagementCohorts(tier domain.TierID, f segment.Filter) []Cohort {
	return a.Cohorts(tier, domain.AxisEngagement, f)
}

// Cohorts groups a tier along any axis. Values with no matching segments are
// omitted, so an unmatched filter yields an empty list.
func (a *Aggregator) Cohorts(tier domain.TierID, axis domain.Axis, f segment.Filter) []Cohort {
	f.Tier = tier
	out := []Cohort{}
	for _, v := range domain.AxisValues(axis) {
		rf, ok := restrict(f, axis, v.ID)
		if !ok {
			continue
		}
		if c, ok := a.build(axis, v, rf); ok {
			out = append(out, c)
		}
	}
	return out
}

// Target resolves a single cohort for use as a simulation target.
func (a *Aggregator) Target(tier domain.TierID, axis domain.Axis, value string) (Cohort, bool) {
	v, ok := domain.LookupAxisValue(axis, value)
	if !ok {
		return Cohort{}, false
	}
	f, _ := restrict(segment.Filter{Tier: tier}, axis, value)
	return a.build(axis, v, f)
}

func (a *Aggregator) build(axis domain.Axis, v domain.AxisValue, f segment.Filter) (Cohort, bool) {
	segs := a.engine.FilterSegments(f)
	if len(segs) == 0 {
		return Cohort{}, false
	}

	weights := make([]float64, len(segs))
	elast := make([]float64, len(segs))
	for i, s := range segs {
		weights[i] = float64(s.Visitors)
		elast[i] = a.engine.Elasticity(s.Tier, s.Key.String(), axis)
	}
	kpi := segment.AggregateKPIs(segs)

	c := Cohort{
		Axis:          axis,
		Value:         v.ID,
		Label:         v.Label,
		Descriptor:    v.Elasticity,
		Segments:      len(segs),
		Size:          kpi.TotalVisitors,
		AvgReturnRate: kpi.AvgReturnRate,
		AvgARPV:       kpi.AvgARPV,
	}
	if kpi.TotalVisitors > 0 {
		c.Elasticity = stat.Mean(elast, weights)
	} else {
		c.Elasticity = stat.Mean(elast, nil)
	}
	if axis == domain.AxisEngagement {
		churn := 1 - kpi.AvgReturnRate
		if kpi.TotalVisitors == 0 {
			churn = 0
		}
		c.ChurnRate = &churn
	}
	return c, true
}

// restrict replaces f's list on axis with the single value. It reports false
// when f already excludes that value.
func restrict(f segment.Filter, axis domain.Axis, value string) (segment.Filter, bool) {
	var list *[]string
	switch axis {
	case domain.AxisAcquisition:
		list = &f.Acquisition
	case domain.AxisEngagement:
		list = &f.Engagement
	case domain.AxisMonetization:
		list = &f.Monetization
	default:
		return f, false
	}
	if len(*list) > 0 && !contains(*list, value) {
		return f, false
	}
	*list = []string{value}
	return f, true
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
