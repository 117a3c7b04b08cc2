package simulate

import (
	"github.com/sawpanic/pricecast/internal/domain"
)

// Config holds the simulator's business assumptions.
type Config struct {
	// LifetimeVisits converts ARPV into LTV.
	LifetimeVisits float64 `yaml:"lifetime_visits"`

	// ChurnDamping scales a targeted segment's demand sensitivity into its
	// churn response.
	ChurnDamping float64 `yaml:"churn_damping"`

	// Spillover: migration rate is min(|demand change| * factor, cap).
	MigrationFactor float64 `yaml:"migration_factor"`
	MigrationCap    float64 `yaml:"migration_cap"`

	RampMonths    int `yaml:"ramp_months"`
	HorizonMonths int `yaml:"horizon_months"`

	Warnings WarningThresholds `yaml:"warnings"`

	// ProxyTiers maps hypothetical tiers to the donor whose baseline they
	// borrow.
	ProxyTiers map[domain.TierID]domain.ProxyAssumption `yaml:"proxy_tiers"`
}

// WarningThresholds are in percent.
type WarningThresholds struct {
	ReturnRateDropPct float64 `yaml:"return_rate_drop_pct"`
	VisitorDropPct    float64 `yaml:"visitor_drop_pct"`
	PriceIncreasePct  float64 `yaml:"price_increase_pct"`
}

// DefaultConfig returns the standard assumptions.
func DefaultConfig() *Config {
	return &Config{
		LifetimeVisits:  24,
		ChurnDamping:    0.15,
		MigrationFactor: 0.25,
		MigrationCap:    0.10,
		RampMonths:      3,
		HorizonMonths:   12,
		Warnings: WarningThresholds{
			ReturnRateDropPct: 10,
			VisitorDropPct:    5,
			PriceIncreasePct:  20,
		},
		ProxyTiers: map[domain.TierID]domain.ProxyAssumption{
			"vip_pass": {
				DonorTier:             "premium_pass",
				AdoptionRate:          0.15,
				DemandElasticity:      -0.9,
				ChurnElasticity:       0.25,
				AcquisitionElasticity: -0.4,
			},
		},
	}
}
