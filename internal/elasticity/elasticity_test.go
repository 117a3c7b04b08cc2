package elasticity_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/domain/domaintest"
	"github.com/sawpanic/pricecast/internal/elasticity"
)

func standardParams() domain.ElasticityParams {
	return domaintest.NewSnapshot().Tiers[domaintest.Standard].Elasticity
}

func TestResolveOrder(t *testing.T) {
	params := standardParams()
	proxy := -0.9

	tests := []struct {
		name   string
		req    elasticity.Request
		want   float64
		source string
	}{
		{"base only", elasticity.Request{}, -1.9, elasticity.SourceBase},
		{"unknown segment keeps base", elasticity.Request{Segment: "first_visit|solo|deal_seeker"}, -1.9, elasticity.SourceBase},
		{"segment override", elasticity.Request{Segment: "regular|couple|moderate"}, -1.7, elasticity.SourceSegment},
		{
			"cohort override replaces segment override",
			elasticity.Request{Segment: "regular|couple|moderate", CohortAxis: domain.AxisAcquisition, CohortValue: "first_visit"},
			-2.6, elasticity.SourceCohort,
		},
		{"horizon multiplies", elasticity.Request{Segment: "regular|couple|moderate", Horizon: "short_term"}, -1.7 * 1.2, elasticity.SourceHorizon},
		{"unknown horizon ignored", elasticity.Request{Horizon: "decade"}, -1.9, elasticity.SourceBase},
		{"proxy under active cohort without segment data", elasticity.Request{CohortActive: true, ProxyElasticity: &proxy, Segment: "regular|couple|moderate"}, -0.9, elasticity.SourceProxy},
		{
			"proxy skips overrides but keeps the horizon multiplier",
			elasticity.Request{CohortActive: true, ProxyElasticity: &proxy, CohortAxis: domain.AxisAcquisition, CohortValue: "first_visit", Horizon: "short_term"},
			-0.9 * 1.2, elasticity.SourceHorizon,
		},
		{"proxy ignored when segment data exists", elasticity.Request{CohortActive: true, HasSegmentData: true, ProxyElasticity: &proxy}, -1.9, elasticity.SourceBase},
		{"proxy ignored at baseline cohort", elasticity.Request{ProxyElasticity: &proxy}, -1.9, elasticity.SourceBase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := elasticity.Resolve(params, tt.req)
			assert.InDelta(t, tt.want, est.Value, 1e-12)
			assert.Equal(t, tt.source, est.Source)
			assert.InDelta(t, est.Value-0.25, est.CILower, 1e-12, "band uses the tier half-width")
			assert.InDelta(t, est.Value+0.25, est.CIUpper, 1e-12)
		})
	}
}

func TestForecastDemandPowerLaw(t *testing.T) {
	for _, ratio := range []float64{0.5, 0.9, 1.0, 1.1, 1.5, 2.0} {
		f, err := elasticity.ForecastDemand(100, 100*ratio, 1_000_000, -1.9)
		require.NoError(t, err)
		assert.InDelta(t, math.Pow(ratio, -1.9), float64(f.Visitors)/1_000_000, 1e-6, "ratio %v", ratio)
		assert.InDelta(t, ratio, f.PriceRatio, 1e-12)
	}

	f, err := elasticity.ForecastDemand(79, 79*1.10, 10000, -1.9)
	require.NoError(t, err)
	assert.InDelta(t, 8344, f.Visitors, 1)
}

func TestForecastDemandStandardPassIncrease(t *testing.T) {
	f, err := elasticity.ForecastDemand(79, 84, 10000, -1.9)
	require.NoError(t, err)
	assert.InDelta(t, 8850, f.Visitors, 60)
	assert.Equal(t, f.Visitors-10000, f.Change)
	assert.Less(t, f.ChangePct, -5.0)
}

func TestForecastDemandRejectsBadInput(t *testing.T) {
	tests := []struct {
		name         string
		p0, p1, e    float64
		baseVisitors int64
	}{
		{"zero current price", 0, 84, -1.9, 10000},
		{"zero new price", 79, 0, -1.9, 10000},
		{"zero visitors", 79, 84, -1.9, 0},
		{"zero elasticity", 79, 84, 0, 10000},
		{"NaN elasticity", 79, 84, math.NaN(), 10000},
		{"infinite price", math.Inf(1), 84, -1.9, 10000},
		{"negative price", -79, 84, -1.9, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := elasticity.ForecastDemand(tt.p0, tt.p1, tt.baseVisitors, tt.e)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLinearFormulasAreNotThePowerLaw(t *testing.T) {
	churn, err := elasticity.ForecastChurn(0.2, 100, 110, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.2*(1+0.5*0.1), churn, 1e-12)

	acq, err := elasticity.ForecastAcquisition(800, 100, 110, -1.0)
	require.NoError(t, err)
	assert.InDelta(t, 720, acq, 1e-9)

	// The power law would give 800 * 1.1^-1, which differs.
	assert.NotEqual(t, math.Round(800*math.Pow(1.1, -1)), math.Round(acq))
}

func TestLinearFormulasClamp(t *testing.T) {
	churn, err := elasticity.ForecastChurn(0.9, 100, 300, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, churn)

	acq, err := elasticity.ForecastAcquisition(800, 100, 300, -1.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, acq)

	_, err = elasticity.ForecastChurn(1.5, 100, 110, 0.5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = elasticity.ForecastAcquisition(-1, 100, 110, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
