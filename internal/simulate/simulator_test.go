package simulate

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/domain/domaintest"
	"github.com/sawpanic/pricecast/internal/elasticity"
	"github.com/sawpanic/pricecast/internal/lagmodel"
	"github.com/sawpanic/pricecast/internal/metrics"
	"github.com/sawpanic/pricecast/internal/segment"
)

var regularCouple = domain.SegmentKey{Acquisition: "regular", Engagement: "couple", Monetization: "moderate"}

func newSimulator(opts ...Option) (*Simulator, *domain.SimulationContext) {
	ctx := domaintest.NewContext()
	return NewSimulator(segment.NewEngine(ctx, nil), nil, opts...), ctx
}

func hasWarning(res *domain.SimulationResult, prefix string) bool {
	for _, w := range res.Warnings {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

func TestSimulateStandardPassIncrease(t *testing.T) {
	sim, _ := newSimulator()
	res, err := sim.Simulate(context.Background(), domaintest.PriceChange("std-84", domaintest.Standard, 79, 84))
	require.NoError(t, err)

	want := int64(math.Round(10000 * math.Pow(84.0/79.0, -1.9)))
	assert.Equal(t, want, res.Forecast.Visitors)
	assert.InDelta(t, 8850, res.Forecast.Visitors, 60)
	assert.Equal(t, int64(10000), res.Baseline.Visitors)

	assert.InDelta(t, float64(want)*84-10000*79, res.Deltas.Revenue.Abs, 1e-6)
	assert.InDelta(t, 84.0, res.Forecast.ARPV, 1e-9, "ARPV scales with price")
	assert.InDelta(t, 84.0*24, res.Forecast.LTV, 1e-9)

	churn := 0.2 * (1 + 0.5*(5.0/79.0))
	assert.InDelta(t, churn, res.Forecast.ChurnRate, 1e-12)
	assert.InDelta(t, 1-churn, res.Forecast.ReturnRate, 1e-12)
	assert.InDelta(t, 800*(1-5.0/79.0), res.Forecast.NewAcquisitions, 1e-9)
	assert.InDelta(t, res.Forecast.NewAcquisitions-float64(res.Forecast.Visitors)*churn, res.Forecast.NetAdds, 1e-9)

	assert.True(t, hasWarning(res, "Visitor base shrinks"), res.Warnings)
	assert.False(t, hasWarning(res, "Price increase"))
	assert.True(t, res.ConstraintsMet)
	assert.Equal(t, elasticity.SourceBase, res.Elasticity.Source)
	assert.Equal(t, -1.9, res.Elasticity.Demand)
	assert.Nil(t, res.Target)
	assert.Nil(t, res.HorizonChurn)
	assert.Equal(t, domain.BaselineCohort, res.Cohort)
}

func TestSimulateIsDeterministic(t *testing.T) {
	sim, _ := newSimulator()
	sc := domaintest.PriceChange("det", domaintest.Standard, 79, 89)
	sc.Target = domain.SegmentTarget(regularCouple)

	a, err := sim.Simulate(context.Background(), sc)
	require.NoError(t, err)
	b, err := sim.Simulate(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.ID)

	other, err := sim.Simulate(context.Background(), sc.WithConfig(domain.PriceChange{NewPrice: 89}))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, other.ID, "a re-simulated copy gets its own result id")
}

func TestSimulateErrors(t *testing.T) {
	t.Run("unknown tier", func(t *testing.T) {
		sim, _ := newSimulator()
		_, err := sim.Simulate(context.Background(), domaintest.PriceChange("x", "gold_pass", 79, 84))
		assert.ErrorIs(t, err, domain.ErrUnknownTier)
	})

	t.Run("hypothetical tier without proxy", func(t *testing.T) {
		ctx := domaintest.NewContext()
		cfg := DefaultConfig()
		cfg.ProxyTiers = nil
		sim := NewSimulator(segment.NewEngine(ctx, nil), cfg)
		_, err := sim.Simulate(context.Background(), domaintest.PriceChange("x", domaintest.VIP, 199, 219))
		assert.ErrorIs(t, err, domain.ErrMissingBaseline)
	})

	t.Run("proxy donor without snapshot", func(t *testing.T) {
		ctx := domaintest.NewContext()
		cfg := DefaultConfig()
		cfg.ProxyTiers[domaintest.VIP] = domain.ProxyAssumption{DonorTier: "nowhere", AdoptionRate: 0.1, DemandElasticity: -1}
		sim := NewSimulator(segment.NewEngine(ctx, nil), cfg)
		_, err := sim.Simulate(context.Background(), domaintest.PriceChange("x", domaintest.VIP, 199, 219))
		assert.ErrorIs(t, err, domain.ErrMissingBaseline)
	})

	t.Run("invalid price", func(t *testing.T) {
		sim, _ := newSimulator()
		_, err := sim.Simulate(context.Background(), domaintest.PriceChange("x", domaintest.Standard, 79, math.Inf(1)))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("target without segment data", func(t *testing.T) {
		sim, _ := newSimulator()
		sc := domaintest.PriceChange("x", domaintest.VIP, 199, 219)
		sc.Target = domain.SegmentTarget(regularCouple)
		res, err := sim.Simulate(context.Background(), sc)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, res, "no partially populated result")
	})
}

func TestSimulateProxyTier(t *testing.T) {
	sim, ctx := newSimulator()
	sc := domaintest.PriceChange("vip", domaintest.VIP, 199, 219)

	res, err := sim.Simulate(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, res.Hypothetical)
	assert.Equal(t, int64(750), res.Baseline.Visitors, "15% of the premium donor")
	assert.Equal(t, 199.0, res.Baseline.ARPV, "baseline ARPV is the scenario's current price")
	assert.Equal(t, 0.88, res.Baseline.ReturnRate)
	assert.InDelta(t, 300*0.15, res.Baseline.NewAcquisitions, 1e-9)
	assert.Equal(t, 0.25, res.Elasticity.Churn, "proxy plausibility override")
	assert.Equal(t, -0.4, res.Elasticity.Acquisition)
	assert.True(t, hasWarning(res, "Baseline synthesized"))

	// 750 hypothetical visitors on top of 35000 observed
	assert.InDelta(t, 750.0/35750.0, res.Mix.Baseline, 1e-12)

	ctx.SetActiveCohort(domaintest.PriceSensitive)
	shifted, err := sim.Simulate(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, elasticity.SourceProxy, shifted.Elasticity.Source)
	assert.Equal(t, -0.9, shifted.Elasticity.Demand)
	assert.InDelta(t, 0.25*1.3, shifted.Elasticity.Churn, 1e-12)
}

func TestSimulateCohortAdjustsLinearElasticities(t *testing.T) {
	sim, ctx := newSimulator()
	sc := domaintest.PriceChange("std", domaintest.Standard, 79, 84)

	base, err := sim.Simulate(context.Background(), sc)
	require.NoError(t, err)

	ctx.SetActiveCohort(domaintest.PriceSensitive)
	shifted, err := sim.Simulate(context.Background(), sc)
	require.NoError(t, err)

	assert.InDelta(t, 0.5*1.3, shifted.Elasticity.Churn, 1e-12)
	assert.InDelta(t, -1.0*1.4, shifted.Elasticity.Acquisition, 1e-12)
	assert.Greater(t, shifted.Forecast.ChurnRate, base.Forecast.ChurnRate)
	assert.NotEqual(t, base.ID, shifted.ID)

	ctx.SetActiveCohort(domain.BaselineCohort)
	again, err := sim.Simulate(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, base, again)
}

func TestTargetedReconciliation(t *testing.T) {
	tests := []struct {
		name     string
		target   *domain.Target
		newPrice float64
	}{
		{"segment small increase", domain.SegmentTarget(regularCouple), 84},
		{"segment large increase", domain.SegmentTarget(regularCouple), 99},
		{"segment extreme increase hits cap", domain.SegmentTarget(regularCouple), 300},
		{"segment decrease", domain.SegmentTarget(regularCouple), 59},
		{"segment without elasticity record", domain.SegmentTarget(domaintest.MissingRecordKey), 89},
		{"engagement cohort", domain.CohortTarget(domain.AxisEngagement, "couple"), 89},
		{"acquisition cohort decrease", domain.CohortTarget(domain.AxisAcquisition, "first_visit"), 69},
		{"unchanged price", domain.SegmentTarget(regularCouple), 79},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, _ := newSimulator()
			sc := domaintest.PriceChange(tt.name, domaintest.Standard, 79, tt.newPrice)
			sc.Target = tt.target

			res, err := sim.Simulate(context.Background(), sc)
			require.NoError(t, err)
			require.NotNil(t, res.Target)

			ti := res.Target
			assert.Equal(t, res.Baseline.Visitors+ti.Delta()+res.SpilloverNet(), res.Forecast.Visitors)

			var moved int64
			for _, s := range res.Spillover {
				assert.NotEqual(t, int64(0), s.Delta)
				assert.False(t, tt.target.Matches(s.Segment), "spillover never lands in the target")
				if tt.newPrice > 79 {
					assert.Less(t, s.Delta, int64(0))
				} else {
					assert.Greater(t, s.Delta, int64(0))
				}
				moved += abs(s.Delta)
			}
			assert.Equal(t, ti.Migrants, moved)
			assert.LessOrEqual(t, float64(moved), 0.10*float64(ti.BaselineVisitors))
			assert.LessOrEqual(t, ti.MigrationRate, 0.10)

			require.NotNil(t, res.Elasticity.Target)
			assert.InDelta(t, ti.Elasticity*(tt.newPrice-79)/79*100, ti.DemandChangePct, 1e-9)
			assert.InDelta(t, res.Forecast.Revenue-res.Baseline.Revenue, res.Deltas.Revenue.Abs, 1e-6)
			assert.InDelta(t, ti.RevenueDelta+float64(res.SpilloverNet())*79, res.Deltas.Revenue.Abs, 1e-6)
		})
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestTargetedSegmentDetails(t *testing.T) {
	sim, _ := newSimulator()
	sc := domaintest.PriceChange("seg", domaintest.Standard, 79, 89)

	res, err := sim.SimulateSegment(context.Background(), sc, regularCouple)
	require.NoError(t, err)
	ti := res.Target

	e := -2.4 // acquisition axis for regular|couple|moderate
	pct := 10.0 / 79.0
	assert.InDelta(t, e, ti.Elasticity, 1e-9)
	assert.Equal(t, 1, ti.Segments)
	assert.Equal(t, int64(math.Round(float64(ti.BaselineVisitors)*(1+e*pct))), ti.ForecastVisitors)
	assert.InDelta(t, 1+0.15*e*pct, ti.ChurnMultiplier, 1e-9)
	assert.Less(t, ti.ChurnMultiplier, 1.0, "multiplier follows the signed elasticity")
	assert.InDelta(t, math.Abs(e*pct)*0.25, ti.MigrationRate, 1e-9)
	assert.False(t, ti.MigrationCapped)
	assert.Equal(t, int64(math.Floor(ti.MigrationRate*float64(ti.BaselineVisitors))), ti.Migrants)
	assert.Less(t, res.Forecast.ChurnRate, res.Baseline.ChurnRate)
	assert.Nil(t, sc.Target, "caller's scenario is not modified")

	capped, err := sim.SimulateSegment(context.Background(), domaintest.PriceChange("cap", domaintest.Standard, 79, 300), regularCouple)
	require.NoError(t, err)
	assert.True(t, capped.Target.MigrationCapped)
	assert.Equal(t, 0.10, capped.Target.MigrationRate)
	assert.Equal(t, int64(0), capped.Target.ForecastVisitors)
	assert.True(t, hasWarning(capped, "Spillover migration capped"))
}

func TestTimeSeriesRamp(t *testing.T) {
	sim, _ := newSimulator()
	res, err := sim.Simulate(context.Background(), domaintest.PriceChange("ts", domaintest.Standard, 79, 84))
	require.NoError(t, err)

	ts := res.TimeSeries
	require.Len(t, ts, 12)
	assert.Equal(t, res.Baseline.Visitors, ts[0].Visitors)
	assert.Equal(t, res.Baseline.Revenue, ts[0].Revenue)
	assert.InDelta(t, 1.0/3.0, ts[1].Progress, 1e-12)
	assert.InDelta(t, 2.0/3.0, ts[2].Progress, 1e-12)
	for m := 3; m < 12; m++ {
		assert.Equal(t, 1.0, ts[m].Progress)
		assert.Equal(t, res.Forecast.Visitors, ts[m].Visitors)
		assert.InDelta(t, res.Forecast.Revenue, ts[m].Revenue, 1e-6)
	}
}

func TestPromotionScenario(t *testing.T) {
	sim, _ := newSimulator()
	sc := domain.NewScenario("spring promo", domaintest.Standard, 79, domain.Promotion{DiscountPct: 20, DurationMonths: 2})

	res, err := sim.Simulate(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, res.Promotion)
	assert.InDelta(t, 63.2, res.NewPrice, 1e-9)
	assert.Greater(t, res.Forecast.Visitors, res.Baseline.Visitors)

	ts := res.TimeSeries
	assert.Greater(t, ts[2].Progress, 0.0)
	assert.Equal(t, 0.0, ts[3].Progress, "effect ends with the promotion")
	assert.Equal(t, res.Baseline.Visitors, ts[3].Visitors)

	long := domain.NewScenario("long promo", domaintest.Standard, 79, domain.Promotion{DiscountPct: 10, DurationMonths: 18})
	res, err = sim.Simulate(context.Background(), long)
	require.NoError(t, err)
	assert.True(t, hasWarning(res, "Promotion runs 18 months"))
}

func TestWarningsAndConstraints(t *testing.T) {
	sim, _ := newSimulator()

	sc := domaintest.PriceChange("big", domaintest.Standard, 79, 99)
	sc.Constraints = domain.Constraints{MaxPrice: 95, NoticePeriodOK: domaintest.Bool(false)}
	res, err := sim.Simulate(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, hasWarning(res, "Price increase of 25.3%"), res.Warnings)
	assert.True(t, hasWarning(res, "New price 99.00 is outside"))
	assert.False(t, res.ConstraintsMet)

	sc.Constraints = domain.Constraints{PlatformCompliant: domaintest.Bool(true)}
	res, err = sim.Simulate(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, res.ConstraintsMet)

	cut, err := sim.Simulate(context.Background(), domaintest.PriceChange("cut", domaintest.Standard, 79, 75))
	require.NoError(t, err)
	assert.NotNil(t, cut.Warnings)
	assert.Empty(t, cut.Warnings)
}

func TestMixShare(t *testing.T) {
	sim, _ := newSimulator()
	res, err := sim.Simulate(context.Background(), domaintest.PriceChange("mix", domaintest.Standard, 79, 84))
	require.NoError(t, err)

	assert.InDelta(t, 10000.0/35000.0, res.Mix.Baseline, 1e-12)
	v1 := float64(res.Forecast.Visitors)
	assert.InDelta(t, v1/(25000+v1), res.Mix.Forecast, 1e-12)
}

func TestLagBackendAttachesHorizonChurn(t *testing.T) {
	sim, _ := newSimulator(WithLagBackend(lagmodel.NewModel(nil)))
	res, err := sim.Simulate(context.Background(), domaintest.PriceChange("lag", domaintest.Standard, 79, 89))
	require.NoError(t, err)
	require.Len(t, res.HorizonChurn, 4)
	assert.Equal(t, domain.Horizon8To12Weeks, res.HorizonChurn[2].Horizon)
	assert.Greater(t, res.HorizonChurn[2].Uplift, 0.0)
	assert.Nil(t, res.Target)

	targeted, err := sim.SimulateSegment(context.Background(), domaintest.PriceChange("lag-seg", domaintest.Standard, 79, 89), regularCouple)
	require.NoError(t, err)
	require.Len(t, targeted.Target.HorizonChurn, 4)
	mult := lagmodel.SegmentMultiplier(targeted.Target.Elasticity)
	assert.InDelta(t, 0.7+2.4/4*0.6, mult, 1e-12)
	for i, h := range targeted.HorizonChurn {
		got := targeted.Target.HorizonChurn[i]
		assert.Equal(t, h.Horizon, got.Horizon)
		assert.InDelta(t, h.Uplift*mult, got.Uplift, 1e-12)
		assert.InDelta(t, h.Rate-h.Uplift+h.Uplift*mult, got.Rate, 1e-12)
	}

	failing := lagmodel.BackendFunc(func(context.Context, lagmodel.Request) ([]domain.HorizonChurn, error) {
		return nil, errors.New("unavailable")
	})
	sim, _ = newSimulator(WithLagBackend(failing))
	res, err = sim.Simulate(context.Background(), domaintest.PriceChange("lag", domaintest.Standard, 79, 89))
	require.NoError(t, err, "backend failure never fails the simulation")
	assert.Nil(t, res.HorizonChurn)
}

func TestSimulateBatch(t *testing.T) {
	reg := metrics.NewRegistry()
	sim, _ := newSimulator(WithMetrics(reg))

	items := sim.SimulateBatch(context.Background(), []domain.Scenario{
		domaintest.PriceChange("ok", domaintest.Standard, 79, 84),
		domaintest.PriceChange("bad", "gold_pass", 79, 84),
		domaintest.PriceChange("ok2", domaintest.Basic, 49, 45),
	})
	require.Len(t, items, 3)
	assert.NoError(t, items[0].Err)
	assert.ErrorIs(t, items[1].Err, domain.ErrUnknownTier)
	assert.Nil(t, items[1].Result)
	assert.NotNil(t, items[2].Result)

	samples, err := reg.Samples()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, s := range samples {
		if s.Name == "pricecast_simulations_total" {
			got[s.Labels] = s.Value
		}
	}
	assert.Equal(t, 2.0, got["path=tier,result=ok"])
	assert.Equal(t, 1.0, got["path=tier,result=error"])

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	items = sim.SimulateBatch(cancelled, []domain.Scenario{domaintest.PriceChange("ok", domaintest.Standard, 79, 84)})
	assert.ErrorIs(t, items[0].Err, context.Canceled)
}

func TestApportion(t *testing.T) {
	segs := []domain.Segment{
		{Key: domain.SegmentKey{Acquisition: "a"}, Visitors: 1},
		{Key: domain.SegmentKey{Acquisition: "b"}, Visitors: 1},
		{Key: domain.SegmentKey{Acquisition: "c"}, Visitors: 1},
	}
	out := apportion(segs, 2)
	assert.Equal(t, []int64{1, 1, 0}, []int64{out[0].Delta, out[1].Delta, out[2].Delta}, "ties go to earlier segments")

	out = apportion(segs, 0)
	for _, s := range out {
		assert.Zero(t, s.Delta)
	}
	assert.Empty(t, apportion(nil, 5))
}
