package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pricecast/internal/cohort"
	"github.com/sawpanic/pricecast/internal/decision"
	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/lagmodel"
)

const testData = "../../internal/refdata/testdata/snapshot.yaml"

// runCLI executes the root command and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PRICECAST_CONFIG", "")
	t.Setenv("PRICECAST_DATA", "")
	t.Setenv("PRICECAST_LOG_LEVEL", "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--log-level", "error", "--log-format", "json"}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func decode(t *testing.T, out string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestSimulateScenarioByID(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "simulate", "std-84")
	require.NoError(t, err)

	var items []batchOutput
	decode(t, out, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "std-84", items[0].ScenarioID)
	assert.Empty(t, items[0].Error)
	require.NotNil(t, items[0].Result)

	res := items[0].Result
	want := math.Round(1000 * math.Pow(84.0/79.0, -1.9))
	assert.InDelta(t, want, float64(res.Forecast.Visitors), 1)
	assert.Equal(t, 84.0, res.NewPrice)
	assert.Equal(t, int64(1000), res.Baseline.Visitors, "latest snapshot is the baseline")
}

func TestSimulateAllScenarios(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "simulate")
	require.NoError(t, err)

	var items []batchOutput
	decode(t, out, &items)
	require.Len(t, items, 3)
	for _, it := range items {
		assert.NotEmpty(t, it.ScenarioID)
	}
	assert.Equal(t, "Standard to 84", items[0].Name)
}

func TestSimulateAdHoc(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "simulate", "--tier", "standard_pass", "--new-price", "69")
	require.NoError(t, err)

	var res domain.SimulationResult
	decode(t, out, &res)
	assert.Equal(t, 79.0, res.CurrentPrice, "current price defaults to the list price")
	assert.Equal(t, 69.0, res.NewPrice)
	assert.Greater(t, res.Forecast.Visitors, res.Baseline.Visitors)
}

func TestSimulateAdHocPromotion(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "simulate",
		"--tier", "standard_pass", "--discount", "20", "--months", "2")
	require.NoError(t, err)

	var res domain.SimulationResult
	decode(t, out, &res)
	assert.True(t, res.Promotion)
	assert.InDelta(t, 63.2, res.NewPrice, 1e-9)
}

func TestSimulateErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		is   error
	}{
		{
			name: "unknown scenario id",
			args: []string{"--data", testData, "simulate", "nope"},
			is:   domain.ErrInvalidInput,
		},
		{
			name: "segment and target together",
			args: []string{"--data", testData, "simulate", "--tier", "standard_pass", "--new-price", "84",
				"--segment", "regular|couple|moderate", "--target", "engagement=couple"},
			is: domain.ErrInvalidInput,
		},
		{
			name: "price and discount together",
			args: []string{"--data", testData, "simulate", "--tier", "standard_pass", "--new-price", "84", "--discount", "10"},
			is:   domain.ErrInvalidInput,
		},
		{
			name: "unknown cohort",
			args: []string{"--data", testData, "--cohort", "martians", "simulate"},
			is:   domain.ErrInvalidInput,
		},
		{
			name: "unknown tier",
			args: []string{"--data", testData, "simulate", "--tier", "gold_pass", "--current", "10", "--new-price", "12"},
			is:   domain.ErrUnknownTier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.is), "got %v", err)
		})
	}
}

func TestMissingData(t *testing.T) {
	_, err := runCLI(t, "simulate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reference data")
}

func TestRank(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "rank", "--objective", "growth-max")
	require.NoError(t, err)

	var r decision.Ranking
	decode(t, out, &r)
	assert.Equal(t, decision.GrowthMax, r.Objective)
	assert.NotEmpty(t, r.Description)
	assert.Positive(t, r.Considered)
	require.NotEmpty(t, r.Top)
	assert.Equal(t, 1, r.Top[0].Rank)
	for i := 1; i < len(r.Top); i++ {
		assert.GreaterOrEqual(t, r.Top[i-1].Score, r.Top[i].Score)
	}
}

func TestRankConstraintFlags(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "rank", "std-84",
		"--objective", "revenue-max", "--visitor-floor", "5000")
	require.NoError(t, err)

	var r decision.Ranking
	decode(t, out, &r)
	require.NotNil(t, r.Constraints.VisitorFloor)
	assert.Equal(t, int64(5000), *r.Constraints.VisitorFloor)
	assert.Empty(t, r.Top)
	require.Len(t, r.Excluded, 1)
	assert.Equal(t, "visitor_floor", r.Excluded[0].Code)
}

func TestRankUnknownObjective(t *testing.T) {
	_, err := runCLI(t, "--data", testData, "rank", "--objective", "profit-max")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestSegments(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "segments", "--tier", "standard_pass", "--engagement", "couple,group")
	require.NoError(t, err)

	var got segmentsOutput
	decode(t, out, &got)
	assert.Equal(t, domain.BaselineCohort, got.Cohort)
	assert.Len(t, got.Segments, 2)
	assert.Equal(t, 2, got.KPIs.SegmentCount)
	assert.Equal(t, int64(650), got.KPIs.TotalVisitors)
	assert.InDelta(t, (400*80.0+250*95.0)/650, got.KPIs.AvgARPV, 1e-9)
}

func TestSegmentsSummaryOnly(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "segments", "--summary")
	require.NoError(t, err)

	var got segmentsOutput
	decode(t, out, &got)
	assert.Empty(t, got.Segments)
	assert.Equal(t, 3, got.KPIs.SegmentCount)
}

func TestSegmentElasticityLookup(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "segments", "elasticity",
		"--tier", "standard_pass", "--key", "regular|couple|moderate")
	require.NoError(t, err)

	var got struct {
		Value float64 `json:"value"`
		Level int     `json:"level"`
	}
	decode(t, out, &got)
	assert.Equal(t, 1, got.Level)
	assert.Equal(t, -2.4, got.Value)
}

func TestCohortsWithLag(t *testing.T) {
	out, err := runCLI(t, "--data", testData, "--cohort", "price_sensitive_shift",
		"cohorts", "--tier", "standard_pass", "--axis", "engagement", "--lag-total", "0.1")
	require.NoError(t, err)

	var got cohortsOutput
	decode(t, out, &got)
	assert.Equal(t, domain.AxisEngagement, got.Axis)
	assert.Equal(t, "price_sensitive_shift", got.Cohort)
	assert.Len(t, got.Cohorts, 3)
	for _, c := range got.Cohorts {
		assert.NotNil(t, c.ChurnRate, c.Value)
	}

	require.Len(t, got.Lag, 4)
	want := []cohort.LagBucket{
		{Horizon: got.Lag[0].Horizon, Weight: 0.4, Value: 0.04},
		{Horizon: got.Lag[1].Horizon, Weight: 0.3, Value: 0.03},
		{Horizon: got.Lag[2].Horizon, Weight: 0.2, Value: 0.02},
		{Horizon: got.Lag[3].Horizon, Weight: 0.1, Value: 0.01},
	}
	for i := range want {
		assert.InDelta(t, want[i].Weight, got.Lag[i].Weight, 1e-9)
		assert.InDelta(t, want[i].Value, got.Lag[i].Value, 1e-9)
	}
}

func TestCohortsHorizonChurn(t *testing.T) {
	out, err := runCLI(t, "--data", testData,
		"cohorts", "--tier", "standard_pass", "--axis", "engagement", "--price-change", "10")
	require.NoError(t, err)

	var got cohortsOutput
	decode(t, out, &got)
	require.Len(t, got.HorizonChurn, len(got.Cohorts))
	for i, c := range got.Cohorts {
		hc := got.HorizonChurn[i]
		assert.Equal(t, c.Value, hc.Name)
		assert.Equal(t, c.Size, hc.Size)
		assert.InDelta(t, lagmodel.SegmentMultiplier(c.Elasticity), hc.Multiplier, 1e-9)
		require.Len(t, hc.Horizons, 4, c.Value)
		for _, h := range hc.Horizons {
			assert.Positive(t, h.Uplift, "price increase lifts churn in every window")
		}
	}

	out, err = runCLI(t, "--data", testData, "cohorts", "--tier", "standard_pass")
	require.NoError(t, err)
	got = cohortsOutput{}
	decode(t, out, &got)
	assert.Empty(t, got.HorizonChurn)
}

func TestCohortsUnknownTier(t *testing.T) {
	_, err := runCLI(t, "--data", testData, "cohorts", "--tier", "gold_pass")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownTier))
}

func TestObjectives(t *testing.T) {
	out, err := runCLI(t, "objectives")
	require.NoError(t, err)
	for _, o := range decision.Objectives() {
		assert.Contains(t, out, string(o))
	}

	out, err = runCLI(t, "objectives", "--json")
	require.NoError(t, err)
	var entries []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	decode(t, out, &entries)
	assert.Len(t, entries, len(decision.Objectives()))
}
