package decision

// Config tunes ranking and risk classification.
type Config struct {
	TopN int `yaml:"top_n"`

	// DefaultChurnCap applies to churn-capped rankings that name no cap.
	DefaultChurnCap float64 `yaml:"default_churn_cap"`

	Risk RiskConfig `yaml:"risk"`
}

// RiskConfig holds the risk rule thresholds and their points. Churn
// thresholds are raw rate deltas (0.05 = 5pp); the others are percents.
type RiskConfig struct {
	ChurnHigh         float64 `yaml:"churn_high"`
	ChurnMedium       float64 `yaml:"churn_medium"`
	VisitorDeclinePct float64 `yaml:"visitor_decline_pct"`
	RevenueDeclinePct float64 `yaml:"revenue_decline_pct"`

	ChurnHighPoints      int `yaml:"churn_high_points"`
	ChurnMediumPoints    int `yaml:"churn_medium_points"`
	VisitorDeclinePoints int `yaml:"visitor_decline_points"`
	RevenueDeclinePoints int `yaml:"revenue_decline_points"`
	HypotheticalPoints   int `yaml:"hypothetical_points"`

	HighAt   int `yaml:"high_at"`
	MediumAt int `yaml:"medium_at"`
}

// DefaultConfig returns the standard ranking rules.
func DefaultConfig() *Config {
	return &Config{
		TopN:            3,
		DefaultChurnCap: 0.02,
		Risk: RiskConfig{
			ChurnHigh:         0.05,
			ChurnMedium:       0.03,
			VisitorDeclinePct: 5,
			RevenueDeclinePct: 10,

			ChurnHighPoints:      2,
			ChurnMediumPoints:    1,
			VisitorDeclinePoints: 2,
			RevenueDeclinePoints: 3,
			HypotheticalPoints:   1,

			HighAt:   4,
			MediumAt: 2,
		},
	}
}
