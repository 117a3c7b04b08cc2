package segment

import (
	"math"

	"github.com/sawpanic/pricecast/internal/domain"
)

// Multipliers reweight segment KPIs and elasticities for an alternative
// customer mix. Each field is a ratio against the baseline profile.
type Multipliers struct {
	Churn                 float64 `json:"churn"`
	ARPU                  float64 `json:"arpu"`
	WatchHours            float64 `json:"watch_hours"`
	CAC                   float64 `json:"cac"`
	AcquisitionElasticity float64 `json:"acquisition_elasticity"`
	MigrationAsymmetry    float64 `json:"migration_asymmetry"`
}

// Identity leaves every KPI unchanged.
func Identity() Multipliers {
	return Multipliers{Churn: 1, ARPU: 1, WatchHours: 1, CAC: 1, AcquisitionElasticity: 1, MigrationAsymmetry: 1}
}

// DeriveMultipliers computes the ratios of active against baseline. The raw
// per-profile factors are arpu 0.8+0.3*upgrade, watch 1+offset and cac
// max(0.5, 1.5-0.3*downgrade); dividing by the baseline's own factors makes
// baseline-vs-baseline exactly the identity.
func DeriveMultipliers(active, baseline domain.CohortProfile) Multipliers {
	if active.ID == baseline.ID {
		return Identity()
	}
	return Multipliers{
		Churn:                 ratio(active.ChurnElasticity, baseline.ChurnElasticity),
		ARPU:                  ratio(arpuFactor(active), arpuFactor(baseline)),
		WatchHours:            ratio(1+active.EngagementOffset, 1+baseline.EngagementOffset),
		CAC:                   ratio(cacFactor(active), cacFactor(baseline)),
		AcquisitionElasticity: ratio(math.Abs(active.AcquisitionElasticity), math.Abs(baseline.AcquisitionElasticity)),
		MigrationAsymmetry:    ratio(active.MigrationAsymmetryFactor, baseline.MigrationAsymmetryFactor),
	}
}

func arpuFactor(p domain.CohortProfile) float64 { return 0.8 + 0.3*p.MigrationUpgrade }

func cacFactor(p domain.CohortProfile) float64 {
	return math.Max(0.5, 1.5-0.3*p.MigrationDowngrade)
}

// ratio is 1 when the denominator is zero or the result is not finite.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 1
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 1
	}
	return r
}

// ForAxis returns the multiplier applied to an elasticity on the given axis.
func (m Multipliers) ForAxis(a domain.Axis) float64 {
	switch a {
	case domain.AxisAcquisition:
		return m.AcquisitionElasticity
	case domain.AxisEngagement:
		return m.Churn
	case domain.AxisMonetization:
		return m.MigrationAsymmetry
	default:
		return 1
	}
}

// ApplyTo reweights one segment's KPIs. Visitor counts are left alone; the
// return rate moves through its complement so churn scales by Churn.
func (m Multipliers) ApplyTo(s domain.Segment) domain.Segment {
	if m == Identity() {
		return s
	}
	churn := math.Min(1, math.Max(0, s.ChurnRate()*m.Churn))
	s.AvgReturnRate = 1 - churn
	s.AvgARPV *= m.ARPU
	s.AvgUsageHours *= m.WatchHours
	s.AvgCAC *= m.CAC
	return s
}
