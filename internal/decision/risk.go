package decision

import (
	"fmt"

	"github.com/sawpanic/pricecast/internal/domain"
)

// RiskLevel is a coarse classification of downside exposure.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Med"
	RiskHigh   RiskLevel = "High"
)

// RiskCheck is one rule that fired.
type RiskCheck struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Detail string `json:"detail"`
}

// AssessRisk adds up the risk rules for one result.
func AssessRisk(cfg RiskConfig, r *domain.SimulationResult) (RiskLevel, int, []RiskCheck) {
	var checks []RiskCheck
	d := r.Deltas

	switch churn := d.ChurnRate.Abs; {
	case churn > cfg.ChurnHigh:
		checks = append(checks, RiskCheck{"churn", cfg.ChurnHighPoints, fmt.Sprintf("churn up %.1fpp", churn*100)})
	case churn > cfg.ChurnMedium:
		checks = append(checks, RiskCheck{"churn", cfg.ChurnMediumPoints, fmt.Sprintf("churn up %.1fpp", churn*100)})
	}
	if d.Visitors.Pct < -cfg.VisitorDeclinePct {
		checks = append(checks, RiskCheck{"visitors", cfg.VisitorDeclinePoints, fmt.Sprintf("visitors down %.1f%%", -d.Visitors.Pct)})
	}
	if d.Revenue.Pct < -cfg.RevenueDeclinePct {
		checks = append(checks, RiskCheck{"revenue", cfg.RevenueDeclinePoints, fmt.Sprintf("revenue down %.1f%%", -d.Revenue.Pct)})
	}
	if r.Hypothetical {
		checks = append(checks, RiskCheck{"hypothetical", cfg.HypotheticalPoints, "hypothetical tier"})
	}

	points := 0
	for _, c := range checks {
		points += c.Points
	}
	switch {
	case points >= cfg.HighAt:
		return RiskHigh, points, checks
	case points >= cfg.MediumAt:
		return RiskMedium, points, checks
	default:
		return RiskLow, points, checks
	}
}
