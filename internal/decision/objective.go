package decision

import (
	"fmt"
	"math"

	"github.com/sawpanic/pricecast/internal/domain"
)

// Objective selects how saved results are scored.
type Objective string

const (
	GrowthMax   Objective = "growth-max"
	RevenueMax  Objective = "revenue-max"
	ChurnCapped Objective = "churn-capped"
	MixTargeted Objective = "mix-targeted"
)

// churnCapFail is the score of a churn-capped result over its cap.
const churnCapFail = -1000

var descriptions = map[Objective]string{
	GrowthMax:   "Grow the visitor base while keeping revenue up; churn increases are penalized in either direction.",
	RevenueMax:  "Maximize revenue and ARPV; only churn increases are penalized, at a high weight.",
	ChurnCapped: "Protect retention: results over the churn cap fail outright, the rest trade churn reduction against revenue.",
	MixTargeted: "Move the tier's share of all visitors toward a target mix, with a small ARPV bonus.",
}

// Objectives lists every objective in display order.
func Objectives() []Objective {
	return []Objective{GrowthMax, RevenueMax, ChurnCapped, MixTargeted}
}

// ParseObjective validates an objective name.
func ParseObjective(s string) (Objective, error) {
	o := Objective(s)
	if _, ok := descriptions[o]; !ok {
		return "", &domain.InvalidInputError{Field: "objective", Reason: fmt.Sprintf("unknown objective %q", s)}
	}
	return o, nil
}

// ObjectiveDescription explains an objective in one sentence; empty for an
// unknown objective.
func ObjectiveDescription(o Objective) string {
	return descriptions[o]
}

// score computes the objective-specific value of one result. churnCap and
// mixTarget are already resolved by the caller.
func score(o Objective, r *domain.SimulationResult, churnCap, mixTarget float64) float64 {
	d := r.Deltas
	churn := d.ChurnRate.Abs
	switch o {
	case GrowthMax:
		return 2*d.Visitors.Pct + d.Revenue.Pct - 50*math.Abs(churn)
	case RevenueMax:
		return 2*d.Revenue.Pct + d.ARPV.Pct - 200*math.Max(churn, 0)
	case ChurnCapped:
		if churn > churnCap {
			return churnCapFail
		}
		return -100*churn + d.Revenue.Pct
	case MixTargeted:
		return (100 - 100*math.Abs(r.Mix.Forecast-mixTarget)) + 0.5*d.ARPV.Pct
	}
	return math.NaN()
}
