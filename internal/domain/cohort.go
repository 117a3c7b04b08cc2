package domain

// BaselineCohort is the identity cohort profile every multiplier is measured
// against.
const BaselineCohort = "baseline"

// CohortProfile is a hypothesized shift in customer mix expressed as raw
// coefficients. Multipliers are derived as ratios against the baseline profile.
type CohortProfile struct {
	ID                       string           `json:"id" yaml:"id"`
	Name                     string           `json:"name,omitempty" yaml:"name,omitempty"`
	ChurnElasticity          float64          `json:"churn_elasticity" yaml:"churn_elasticity"`
	AcquisitionElasticity    float64          `json:"acquisition_elasticity" yaml:"acquisition_elasticity"`
	MigrationAsymmetryFactor float64          `json:"migration_asymmetry_factor" yaml:"migration_asymmetry_factor"`
	MigrationUpgrade         float64          `json:"migration_upgrade" yaml:"migration_upgrade"`
	MigrationDowngrade       float64          `json:"migration_downgrade" yaml:"migration_downgrade"`
	EngagementOffset         float64          `json:"engagement_offset" yaml:"engagement_offset"`
	TimeLag                  *LagDistribution `json:"time_lag_distribution,omitempty" yaml:"time_lag_distribution,omitempty"`
}

// LagDistribution splits a churn response over four weekly buckets. It is
// presentation data only and never enters the forecast math.
type LagDistribution struct {
	Weeks0To4   float64 `json:"0_4_weeks" yaml:"0_4_weeks"`
	Weeks4To8   float64 `json:"4_8_weeks" yaml:"4_8_weeks"`
	Weeks8To12  float64 `json:"8_12_weeks" yaml:"8_12_weeks"`
	Weeks12Plus float64 `json:"12_plus_weeks" yaml:"12_plus_weeks"`
}

// Weights returns the four buckets in chronological order.
func (d LagDistribution) Weights() [4]float64 {
	return [4]float64{d.Weeks0To4, d.Weeks4To8, d.Weeks8To12, d.Weeks12Plus}
}

// Post-change churn windows, shared by the lag distribution and the
// time-lagged churn model.
const (
	Horizon0To4Weeks   = "0_4_weeks"
	Horizon4To8Weeks   = "4_8_weeks"
	Horizon8To12Weeks  = "8_12_weeks"
	Horizon12PlusWeeks = "12_plus_weeks"
)

// LagHorizons lists the four windows in chronological order.
func LagHorizons() []string {
	return []string{Horizon0To4Weeks, Horizon4To8Weeks, Horizon8To12Weeks, Horizon12PlusWeeks}
}
