// Package decision scores saved simulation results against a business
// objective, gates them on hard constraints and explains the top picks.
package decision

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/metrics"
)

// Constraints are the hard gates of a ranking. Nil fields are not enforced.
type Constraints struct {
	// ChurnCap is the largest churn rate increase allowed, as a raw rate
	// delta (0.02 = 2pp).
	ChurnCap *float64 `json:"churn_cap,omitempty" yaml:"churn_cap,omitempty"`
	// RevenueFloor is the minimum forecast monthly revenue.
	RevenueFloor *float64 `json:"revenue_floor,omitempty" yaml:"revenue_floor,omitempty"`
	// VisitorFloor is the minimum forecast visitor count.
	VisitorFloor *int64 `json:"visitor_floor,omitempty" yaml:"visitor_floor,omitempty"`
	// MixTarget is the desired tier share of all visitors, required by
	// mix-targeted rankings.
	MixTarget *float64 `json:"mix_target,omitempty" yaml:"mix_target,omitempty"`
}

// Exclusion codes, also used as metric labels.
const (
	ReasonMalformed    = "malformed"
	ReasonChurnCap     = "churn_cap"
	ReasonRevenueFloor = "revenue_floor"
	ReasonVisitorFloor = "visitor_floor"
)

// RankedResult is a saved result with its decision score and explanation.
type RankedResult struct {
	Rank            int                      `json:"rank"`
	Result          *domain.SimulationResult `json:"result"`
	Score           float64                  `json:"score"`
	Risk            RiskLevel                `json:"risk"`
	RiskPoints      int                      `json:"risk_points"`
	RiskChecks      []RiskCheck              `json:"risk_checks,omitempty"`
	ConstraintsPass bool                     `json:"constraints_pass"`
	Rationale       []string                 `json:"rationale"`
}

// Exclusion records a saved result that did not make it into the ranking.
type Exclusion struct {
	Index        int    `json:"index"`
	ResultID     string `json:"result_id,omitempty"`
	ScenarioName string `json:"scenario_name,omitempty"`
	Code         string `json:"code"`
	Reason       string `json:"reason"`
}

// ScoreSummary describes the score distribution of the eligible results.
type ScoreSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Ranking is the outcome of one Rank call.
type Ranking struct {
	Objective   Objective      `json:"objective"`
	Description string         `json:"description"`
	Constraints Constraints    `json:"constraints"`
	Considered  int            `json:"considered"`
	Eligible    int            `json:"eligible"`
	Top         []RankedResult `json:"top"`
	Excluded    []Exclusion    `json:"excluded"`
	Skipped     []Exclusion    `json:"skipped"`
	Summary     ScoreSummary   `json:"summary"`
}

// Engine ranks saved results. It holds no state between calls.
type Engine struct {
	config  *Config
	metrics *metrics.Registry
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics counts rankings and exclusions on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds a decision engine; a nil config uses DefaultConfig.
func NewEngine(config *Config, opts ...Option) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	e := &Engine{config: config}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank scores every saved result against the objective, drops those that
// fail the constraints or are malformed, and returns the best TopN in
// descending score order. Equal scores keep their input order.
func (e *Engine) Rank(saved []*domain.SimulationResult, objective Objective, c Constraints) (*Ranking, error) {
	if _, err := ParseObjective(string(objective)); err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return nil, fmt.Errorf("rank %s: %w", objective, domain.ErrNoSavedResults)
	}

	scoreCap := e.config.DefaultChurnCap
	if c.ChurnCap != nil {
		scoreCap = *c.ChurnCap
	}
	gate := c
	if objective == ChurnCapped && gate.ChurnCap == nil {
		gate.ChurnCap = &scoreCap
	}
	var mixTarget float64
	if objective == MixTargeted {
		if c.MixTarget == nil {
			return nil, &domain.InvalidInputError{Field: "mix_target", Reason: "mix-targeted ranking needs a target share"}
		}
		mixTarget = *c.MixTarget
	}

	e.metrics.ObserveRanking()
	ranking := &Ranking{
		Objective:   objective,
		Description: ObjectiveDescription(objective),
		Constraints: c,
		Considered:  len(saved),
		Top:         []RankedResult{},
		Excluded:    []Exclusion{},
		Skipped:     []Exclusion{},
	}

	var eligible []RankedResult
	for i, r := range saved {
		if reason := malformed(r); reason != "" {
			x := exclusion(i, r, ReasonMalformed, reason)
			log.Warn().Int("index", i).Str("result", x.ResultID).Str("reason", reason).Msg("Skipping malformed saved result")
			e.metrics.ObserveExclusion(ReasonMalformed)
			ranking.Skipped = append(ranking.Skipped, x)
			continue
		}
		if code, reason := checkConstraints(r, gate); code != "" {
			e.metrics.ObserveExclusion(code)
			ranking.Excluded = append(ranking.Excluded, exclusion(i, r, code, reason))
			continue
		}

		level, points, checks := AssessRisk(e.config.Risk, r)
		rr := RankedResult{
			Result:          r,
			Score:           score(objective, r, scoreCap, mixTarget),
			Risk:            level,
			RiskPoints:      points,
			RiskChecks:      checks,
			ConstraintsPass: true,
		}
		rr.Rationale = rationale(objective, rr, scoreCap, mixTarget)
		eligible = append(eligible, rr)
	}

	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Score > eligible[j].Score })
	for i := range eligible {
		eligible[i].Rank = i + 1
	}
	ranking.Eligible = len(eligible)
	ranking.Summary = summarize(eligible)

	n := e.config.TopN
	if n <= 0 || n > len(eligible) {
		n = len(eligible)
	}
	ranking.Top = append(ranking.Top, eligible[:n]...)

	log.Debug().
		Str("objective", string(objective)).
		Int("considered", ranking.Considered).
		Int("eligible", ranking.Eligible).
		Int("excluded", len(ranking.Excluded)).
		Int("skipped", len(ranking.Skipped)).
		Msg("Ranking complete")
	return ranking, nil
}

func exclusion(i int, r *domain.SimulationResult, code, reason string) Exclusion {
	x := Exclusion{Index: i, Code: code, Reason: reason}
	if r != nil {
		x.ResultID, x.ScenarioName = r.ID, r.ScenarioName
	}
	return x
}

// malformed returns why a saved result cannot be scored, or "".
func malformed(r *domain.SimulationResult) string {
	if r == nil {
		return "nil result"
	}
	if r.ID == "" {
		return "missing result id"
	}
	if r.Baseline.Visitors <= 0 {
		return "baseline has no visitors"
	}
	d := r.Deltas
	fields := []struct {
		name string
		v    float64
	}{
		{"visitors_pct", d.Visitors.Pct},
		{"revenue_pct", d.Revenue.Pct},
		{"arpv_pct", d.ARPV.Pct},
		{"churn_delta", d.ChurnRate.Abs},
		{"mix_forecast", r.Mix.Forecast},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Sprintf("%s is not finite", f.name)
		}
	}
	return ""
}

// checkConstraints is the hard gate. It returns the first failing code and
// a reason, or empty strings.
func checkConstraints(r *domain.SimulationResult, c Constraints) (string, string) {
	if c.ChurnCap != nil && r.Deltas.ChurnRate.Abs > *c.ChurnCap {
		return ReasonChurnCap, fmt.Sprintf("churn delta %.4f exceeds cap %.4f", r.Deltas.ChurnRate.Abs, *c.ChurnCap)
	}
	if c.RevenueFloor != nil && r.Forecast.Revenue < *c.RevenueFloor {
		return ReasonRevenueFloor, fmt.Sprintf("forecast revenue %.2f below floor %.2f", r.Forecast.Revenue, *c.RevenueFloor)
	}
	if c.VisitorFloor != nil && r.Forecast.Visitors < *c.VisitorFloor {
		return ReasonVisitorFloor, fmt.Sprintf("forecast visitors %d below floor %d", r.Forecast.Visitors, *c.VisitorFloor)
	}
	return "", ""
}

// rationale is ordered: objective line, risk line, scenario notes.
func rationale(o Objective, rr RankedResult, churnCap, mixTarget float64) []string {
	r := rr.Result
	d := r.Deltas
	var lines []string

	switch o {
	case GrowthMax:
		lines = append(lines, fmt.Sprintf("Visitors %+.1f%% and revenue %+.1f%% with churn %+.2fpp", d.Visitors.Pct, d.Revenue.Pct, d.ChurnRate.Abs*100))
	case RevenueMax:
		lines = append(lines, fmt.Sprintf("Revenue %+.1f%% on ARPV %+.1f%%", d.Revenue.Pct, d.ARPV.Pct))
	case ChurnCapped:
		lines = append(lines, fmt.Sprintf("Churn %+.2fpp stays within the %.2fpp cap; revenue %+.1f%%", d.ChurnRate.Abs*100, churnCap*100, d.Revenue.Pct))
	case MixTargeted:
		lines = append(lines, fmt.Sprintf("Tier share moves to %.1f%% against a %.1f%% target", r.Mix.Forecast*100, mixTarget*100))
	}

	switch rr.Risk {
	case RiskHigh:
		lines = append(lines, "High risk: "+riskDetail(rr.RiskChecks)+"; stage the rollout")
	case RiskMedium:
		lines = append(lines, "Medium risk: "+riskDetail(rr.RiskChecks)+"; monitor after launch")
	default:
		lines = append(lines, "Low risk: limited downside exposure")
	}

	if r.Promotion {
		lines = append(lines, "Promotional pricing: the effect ends with the promotion")
	}
	if r.Hypothetical {
		lines = append(lines, "Hypothetical tier: baseline borrowed from a proxy tier")
	}
	if !r.ConstraintsMet {
		lines = append(lines, "Compliance flags are not all satisfied")
	}
	return lines
}

func riskDetail(checks []RiskCheck) string {
	parts := make([]string, len(checks))
	for i, c := range checks {
		parts[i] = c.Detail
	}
	return strings.Join(parts, ", ")
}

func summarize(ranked []RankedResult) ScoreSummary {
	if len(ranked) == 0 {
		return ScoreSummary{}
	}
	scores := make([]float64, len(ranked))
	for i, r := range ranked {
		scores[i] = r.Score
	}
	s := ScoreSummary{Count: len(scores)}
	s.Mean, _ = stats.Mean(scores)
	s.Median, _ = stats.Median(scores)
	s.StdDev, _ = stats.StandardDeviation(scores)
	s.Min, _ = stats.Min(scores)
	s.Max, _ = stats.Max(scores)
	return s
}
