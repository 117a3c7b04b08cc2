package domain

import "math"

// Metrics is one side (baseline or forecast) of a simulation.
type Metrics struct {
	Price           float64 `json:"price"`
	Visitors        int64   `json:"visitors"`
	ReturnRate      float64 `json:"return_rate"`
	ChurnRate       float64 `json:"churn_rate"`
	NewAcquisitions float64 `json:"new_acquisitions"`
	Revenue         float64 `json:"revenue"`
	ARPV            float64 `json:"arpv"`
	LTV             float64 `json:"ltv"`
	NetAdds         float64 `json:"net_adds"`
}

// MetricDelta is an absolute change and its percent of the baseline value.
// Pct is 0 when the baseline is 0.
type MetricDelta struct {
	Abs float64 `json:"abs"`
	Pct float64 `json:"pct"`
}

func delta(base, next float64) MetricDelta {
	d := MetricDelta{Abs: next - base}
	if base != 0 {
		d.Pct = d.Abs / math.Abs(base) * 100
	}
	return d
}

// Deltas holds the forecast-minus-baseline change for every metric.
type Deltas struct {
	Visitors        MetricDelta `json:"visitors"`
	ReturnRate      MetricDelta `json:"return_rate"`
	ChurnRate       MetricDelta `json:"churn_rate"`
	NewAcquisitions MetricDelta `json:"new_acquisitions"`
	Revenue         MetricDelta `json:"revenue"`
	ARPV            MetricDelta `json:"arpv"`
	LTV             MetricDelta `json:"ltv"`
	NetAdds         MetricDelta `json:"net_adds"`
}

// ComputeDeltas derives Deltas from a baseline and a forecast.
func ComputeDeltas(base, next Metrics) Deltas {
	return Deltas{
		Visitors:        delta(float64(base.Visitors), float64(next.Visitors)),
		ReturnRate:      delta(base.ReturnRate, next.ReturnRate),
		ChurnRate:       delta(base.ChurnRate, next.ChurnRate),
		NewAcquisitions: delta(base.NewAcquisitions, next.NewAcquisitions),
		Revenue:         delta(base.Revenue, next.Revenue),
		ARPV:            delta(base.ARPV, next.ARPV),
		LTV:             delta(base.LTV, next.LTV),
		NetAdds:         delta(base.NetAdds, next.NetAdds),
	}
}

// TimePoint is one month of the ramped forecast. Month 0 is the baseline.
type TimePoint struct {
	Month           int     `json:"month"`
	Progress        float64 `json:"progress"`
	Visitors        int64   `json:"visitors"`
	ReturnRate      float64 `json:"return_rate"`
	NewAcquisitions float64 `json:"new_acquisitions"`
	Revenue         float64 `json:"revenue"`
}

// ElasticityUsed records which coefficients drove a forecast.
type ElasticityUsed struct {
	Demand      float64                 `json:"demand"`
	Churn       float64                 `json:"churn"`
	Acquisition float64                 `json:"acquisition"`
	CILower     float64                 `json:"ci_lower"`
	CIUpper     float64                 `json:"ci_upper"`
	Source      string                  `json:"source"`
	Target      *float64                `json:"target,omitempty"`
	Degraded    []DegradedLookupWarning `json:"degraded,omitempty"`
}

// SpilloverEffect is the visitor movement into (or out of) one non-target
// segment caused by a targeted price change.
type SpilloverEffect struct {
	Segment          SegmentKey `json:"segment"`
	BaselineVisitors int64      `json:"baseline_visitors"`
	Share            float64    `json:"share"`
	Delta            int64      `json:"delta"`
}

// TargetImpact summarizes the direct effect on the targeted segment or cohort.
type TargetImpact struct {
	Label            string  `json:"label"`
	Segments         int     `json:"segments"`
	Elasticity       float64 `json:"elasticity"`
	BaselineVisitors int64   `json:"baseline_visitors"`
	ForecastVisitors int64   `json:"forecast_visitors"`
	DemandChangePct  float64 `json:"demand_change_pct"`
	ChurnMultiplier  float64 `json:"churn_multiplier"`
	MigrationRate    float64 `json:"migration_rate"`
	Migrants         int64   `json:"migrants"`
	MigrationCapped  bool    `json:"migration_capped"`
	RevenueDelta     float64 `json:"revenue_delta"`

	// HorizonChurn is the tier horizon forecast rescaled to the target's
	// elasticity. Empty unless a churn backend is attached.
	HorizonChurn []HorizonChurn `json:"horizon_churn,omitempty"`
}

// Delta is the direct visitor change on the target, excluding spillover.
func (t TargetImpact) Delta() int64 { return t.ForecastVisitors - t.BaselineVisitors }

// MixShare is the tier's share of all visitors before and after the change.
type MixShare struct {
	Baseline float64 `json:"baseline"`
	Forecast float64 `json:"forecast"`
}

// HorizonChurn is the churn forecast for one post-change time window.
type HorizonChurn struct {
	Horizon  string  `json:"horizon"`
	Rate     float64 `json:"rate"`
	Uplift   float64 `json:"uplift"`
	UpliftPP float64 `json:"uplift_pp"`
}

// SimulationResult is the immutable output of one simulation.
type SimulationResult struct {
	ID             string            `json:"id"`
	ScenarioID     string            `json:"scenario_id"`
	ScenarioName   string            `json:"scenario_name,omitempty"`
	Category       string            `json:"category,omitempty"`
	Tier           TierID            `json:"tier"`
	Hypothetical   bool              `json:"hypothetical"`
	Promotion      bool              `json:"promotion"`
	Cohort         string            `json:"cohort"`
	CurrentPrice   float64           `json:"current_price"`
	NewPrice       float64           `json:"new_price"`
	PriceChangePct float64           `json:"price_change_pct"`
	Baseline       Metrics           `json:"baseline"`
	Forecast       Metrics           `json:"forecast"`
	Deltas         Deltas            `json:"deltas"`
	TimeSeries     []TimePoint       `json:"time_series"`
	Warnings       []string          `json:"warnings"`
	ConstraintsMet bool              `json:"constraints_met"`
	Elasticity     ElasticityUsed    `json:"elasticity"`
	Mix            MixShare          `json:"mix"`
	Target         *TargetImpact     `json:"target,omitempty"`
	Spillover      []SpilloverEffect `json:"spillover,omitempty"`
	HorizonChurn   []HorizonChurn    `json:"horizon_churn,omitempty"`
}

// SpilloverNet sums the spillover deltas.
func (r SimulationResult) SpilloverNet() int64 {
	var n int64
	for _, s := range r.Spillover {
		n += s.Delta
	}
	return n
}
