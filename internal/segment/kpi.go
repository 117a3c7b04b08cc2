package segment

import (
	"gonum.org/v1/gonum/stat"

	"github.com/sawpanic/pricecast/internal/domain"
)

// KPISummary is the visitor-weighted roll-up of a segment set.
type KPISummary struct {
	SegmentCount  int     `json:"segment_count"`
	TotalVisitors int64   `json:"total_visitors"`
	AvgReturnRate float64 `json:"avg_return_rate"`
	AvgARPV       float64 `json:"avg_arpv"`
	AvgUsageHours float64 `json:"avg_usage_hours"`
	AvgCAC        float64 `json:"avg_cac"`
}

// AggregateKPIs averages KPIs weighted by visitor count. CAC is averaged only
// over segments that report one. An empty set or zero total weight yields
// zeros rather than NaN.
func AggregateKPIs(segments []domain.Segment) KPISummary {
	sum := KPISummary{SegmentCount: len(segments)}
	if len(segments) == 0 {
		return sum
	}

	weights := make([]float64, len(segments))
	ret := make([]float64, len(segments))
	arpv := make([]float64, len(segments))
	usage := make([]float64, len(segments))
	var cac, cacW []float64
	for i, s := range segments {
		weights[i] = float64(s.Visitors)
		ret[i] = s.AvgReturnRate
		arpv[i] = s.AvgARPV
		usage[i] = s.AvgUsageHours
		sum.TotalVisitors += s.Visitors
		if s.AvgCAC > 0 {
			cac = append(cac, s.AvgCAC)
			cacW = append(cacW, float64(s.Visitors))
		}
	}
	if sum.TotalVisitors <= 0 {
		return sum
	}

	sum.AvgReturnRate = stat.Mean(ret, weights)
	sum.AvgARPV = stat.Mean(arpv, weights)
	sum.AvgUsageHours = stat.Mean(usage, weights)
	if total(cacW) > 0 {
		sum.AvgCAC = stat.Mean(cac, cacW)
	}
	return sum
}

func total(xs []float64) float64 {
	var t float64
	for _, x := range xs {
		t += x
	}
	return t
}

// AggregateKPIs on the engine filters first, so the active cohort's
// multipliers are already applied.
func (e *Engine) AggregateKPIs(f Filter) KPISummary {
	return AggregateKPIs(e.FilterSegments(f))
}
