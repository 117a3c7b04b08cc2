package domain

// Segment is one (tier, acquisition, engagement, monetization) combination
// with its observed KPIs.
type Segment struct {
	Tier          TierID     `json:"tier"`
	Key           SegmentKey `json:"key"`
	Visitors      int64      `json:"visitors"`
	AvgReturnRate float64    `json:"avg_return_rate"`
	AvgARPV       float64    `json:"avg_arpv"`
	AvgUsageHours float64    `json:"avg_usage_hours"`
	AvgCAC        float64    `json:"avg_cac,omitempty"` // 0 when unknown
}

// ChurnRate is the complement of the segment's return rate.
func (s Segment) ChurnRate() float64 {
	return 1 - s.AvgReturnRate
}

// AxisElasticity is the per-segment triple of axis-specific elasticities.
// A nil component means the reference data has no value for that axis.
type AxisElasticity struct {
	Acquisition *float64 `json:"acquisition_axis,omitempty"`
	Churn       *float64 `json:"churn_axis,omitempty"`
	Migration   *float64 `json:"migration_axis,omitempty"`
}

// ForAxis maps an axis onto its elasticity component: acquisition to the
// acquisition axis, engagement to the churn-like axis, monetization to the
// migration-like axis.
func (e AxisElasticity) ForAxis(a Axis) (float64, bool) {
	var v *float64
	switch a {
	case AxisAcquisition:
		v = e.Acquisition
	case AxisEngagement:
		v = e.Churn
	case AxisMonetization:
		v = e.Migration
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}
