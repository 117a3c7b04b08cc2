// Package simulate turns a price or promotion scenario into baseline,
// forecast and delta metrics for its tier, optionally narrowed to a target
// segment or cohort with spillover into the rest of the tier.
package simulate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/elasticity"
	"github.com/sawpanic/pricecast/internal/lagmodel"
	"github.com/sawpanic/pricecast/internal/metrics"
	"github.com/sawpanic/pricecast/internal/segment"
)

// resultNamespace seeds the name-based result ids.
var resultNamespace = uuid.MustParse("6f1d3c4e-8b2a-4e7f-9a51-2c0d7e3b9f10")

const (
	pathTier     = "tier"
	pathTargeted = "targeted"
)

// Simulator runs scenarios against the reference data of one
// SimulationContext.
type Simulator struct {
	engine  *segment.Engine
	config  *Config
	lag     lagmodel.Backend
	metrics *metrics.Registry
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithLagBackend attaches per-horizon churn from a churn backend to every
// result.
func WithLagBackend(b lagmodel.Backend) Option {
	return func(s *Simulator) { s.lag = b }
}

// WithMetrics records simulation counts and latency on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Simulator) { s.metrics = m }
}

// NewSimulator builds a simulator over a segmentation engine; a nil config
// uses DefaultConfig.
func NewSimulator(engine *segment.Engine, config *Config, opts ...Option) *Simulator {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Simulator{engine: engine, config: config}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run is the per-call state; nothing survives the call.
type run struct {
	scenario domain.Scenario
	tier     domain.Tier
	proxy    *domain.ProxyAssumption
	baseline baseline
	p0, p1   float64
	pct      float64
	est      elasticity.Estimate
	churnE   float64
	acqE     float64
}

type baseline struct {
	visitors    int64
	returnRate  float64
	newAcq      float64
	arpv        float64
	synthesized bool
}

// Simulate runs the scenario at tier level, or through the targeted path
// when the scenario names a target.
func (s *Simulator) Simulate(ctx context.Context, sc domain.Scenario) (res *domain.SimulationResult, err error) {
	path := pathTier
	if sc.Target != nil {
		path = pathTargeted
	}
	start := time.Now()
	defer func() { s.metrics.ObserveSimulation(path, err, time.Since(start)) }()

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.ID, err)
	}
	r, err := s.prepare(sc)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.ID, err)
	}

	res = s.newResult(r)
	if sc.Target != nil {
		err = s.forecastTargeted(r, res)
	} else {
		err = s.forecastTier(r, res)
	}
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.ID, err)
	}

	s.assemble(ctx, r, res)
	log.Debug().
		Str("scenario", sc.ID).
		Str("tier", string(sc.Tier)).
		Str("path", path).
		Int64("visitors", res.Forecast.Visitors).
		Float64("revenue_delta", res.Deltas.Revenue.Abs).
		Msg("Scenario simulated")
	return res, nil
}

// SimulateSegment runs the scenario targeted at one segment of its tier.
func (s *Simulator) SimulateSegment(ctx context.Context, sc domain.Scenario, key domain.SegmentKey) (*domain.SimulationResult, error) {
	sc.Target = domain.SegmentTarget(key)
	return s.Simulate(ctx, sc)
}

// BatchItem pairs a scenario with its result or error.
type BatchItem struct {
	Scenario domain.Scenario
	Result   *domain.SimulationResult
	Err      error
}

// SimulateBatch runs every scenario and reports failures per scenario.
// It stops early only when ctx is done.
func (s *Simulator) SimulateBatch(ctx context.Context, scenarios []domain.Scenario) []BatchItem {
	out := make([]BatchItem, 0, len(scenarios))
	for _, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			out = append(out, BatchItem{Scenario: sc, Err: err})
			continue
		}
		res, err := s.Simulate(ctx, sc)
		if err != nil {
			log.Warn().Err(err).Str("scenario", sc.ID).Msg("Scenario simulation failed")
		}
		out = append(out, BatchItem{Scenario: sc, Result: res, Err: err})
	}
	return out
}

// prepare resolves tier, baseline and elasticity.
func (s *Simulator) prepare(sc domain.Scenario) (*run, error) {
	r := &run{scenario: sc, p0: sc.CurrentPrice}

	tier, proxy, err := s.resolveTier(sc.Tier)
	if err != nil {
		return nil, err
	}
	r.tier, r.proxy = tier, proxy

	if r.baseline, err = s.resolveBaseline(r); err != nil {
		return nil, err
	}

	if r.p1, err = sc.EffectiveNewPrice(); err != nil {
		return nil, err
	}
	if r.pct, err = elasticity.PriceChangePct(r.p0, r.p1); err != nil {
		return nil, err
	}

	req := elasticity.Request{
		Horizon:        sc.Horizon,
		CohortActive:   s.engine.Context().CohortActive(),
		HasSegmentData: s.engine.HasSegmentData(sc.Tier),
	}
	if t := sc.Target; t != nil {
		if !t.IsCohort() {
			req.Segment = t.Segment.String()
		} else {
			req.CohortAxis, req.CohortValue = t.CohortAxis, t.CohortValue
		}
	}
	if proxy != nil {
		e := proxy.DemandElasticity
		req.ProxyElasticity = &e
	}
	r.est = elasticity.Resolve(tier.Elasticity, req)

	mult := s.engine.Multipliers()
	r.churnE = tier.Elasticity.ChurnElasticity * mult.Churn
	r.acqE = tier.Elasticity.AcquisitionElasticity * mult.AcquisitionElasticity
	if proxy != nil {
		r.churnE = proxy.ChurnElasticity * mult.Churn
		r.acqE = proxy.AcquisitionElasticity * mult.AcquisitionElasticity
	}
	return r, nil
}

// resolveTier finds the tier in the snapshot or synthesizes one from a proxy
// mapping.
func (s *Simulator) resolveTier(id domain.TierID) (domain.Tier, *domain.ProxyAssumption, error) {
	tier, known := s.engine.Context().Snapshot().Tier(id)
	p, proxied := s.config.ProxyTiers[id]
	if !known && !proxied {
		return domain.Tier{}, nil, &domain.UnknownTierError{Tier: id}
	}
	if !proxied {
		return tier, nil, nil
	}
	if known && !tier.Hypothetical && len(tier.Snapshots) > 0 {
		// observed data wins over the proxy assumption
		return tier, nil, nil
	}
	if !known {
		donor, ok := s.engine.Context().Snapshot().Tier(p.DonorTier)
		if !ok {
			return domain.Tier{}, nil, &domain.MissingBaselineDataError{Tier: id, Reason: fmt.Sprintf("proxy donor %q not found", p.DonorTier)}
		}
		tier = domain.Tier{ID: id, Name: string(id), Hypothetical: true, Elasticity: donor.Elasticity}
		tier.Elasticity.BaseElasticity = p.DemandElasticity
		tier.Elasticity.Segments = nil
		tier.Elasticity.CohortElasticity = nil
	}
	return tier, &p, nil
}

func (s *Simulator) resolveBaseline(r *run) (baseline, error) {
	if r.proxy == nil {
		snap, ok := r.tier.LatestSnapshot()
		if !ok {
			return baseline{}, &domain.MissingBaselineDataError{Tier: r.tier.ID, Reason: "no snapshot and no proxy mapping"}
		}
		if snap.ActiveVisitors <= 0 {
			return baseline{}, &domain.MissingBaselineDataError{Tier: r.tier.ID, Reason: "latest snapshot has no visitors"}
		}
		return baseline{
			visitors:   snap.ActiveVisitors,
			returnRate: snap.ReturnRate,
			newAcq:     snap.NewRegistrations,
			arpv:       snap.ARPV,
		}, nil
	}

	donor, ok := s.engine.Context().Snapshot().Tier(r.proxy.DonorTier)
	if !ok {
		return baseline{}, &domain.MissingBaselineDataError{Tier: r.tier.ID, Reason: fmt.Sprintf("proxy donor %q not found", r.proxy.DonorTier)}
	}
	snap, ok := donor.LatestSnapshot()
	if !ok {
		return baseline{}, &domain.MissingBaselineDataError{Tier: r.tier.ID, Reason: fmt.Sprintf("proxy donor %q has no snapshot", donor.ID)}
	}
	visitors := int64(math.Round(float64(snap.ActiveVisitors) * r.proxy.AdoptionRate))
	if visitors <= 0 {
		return baseline{}, &domain.MissingBaselineDataError{Tier: r.tier.ID, Reason: "proxy adoption yields no visitors"}
	}
	return baseline{
		visitors:    visitors,
		returnRate:  snap.ReturnRate,
		newAcq:      snap.NewRegistrations * r.proxy.AdoptionRate,
		arpv:        r.scenario.CurrentPrice,
		synthesized: true,
	}, nil
}

func (s *Simulator) newResult(r *run) *domain.SimulationResult {
	sc := r.scenario
	return &domain.SimulationResult{
		ID:             resultID(sc, r.p1, s.engine.Context().ActiveCohort()),
		ScenarioID:     sc.ID,
		ScenarioName:   sc.Name,
		Category:       sc.Category,
		Tier:           sc.Tier,
		Hypothetical:   r.tier.Hypothetical || r.proxy != nil,
		Promotion:      sc.IsPromotion(),
		Cohort:         s.engine.Context().ActiveCohort(),
		CurrentPrice:   r.p0,
		NewPrice:       r.p1,
		PriceChangePct: r.pct * 100,
		Baseline:       s.baselineMetrics(r),
		Elasticity: domain.ElasticityUsed{
			Demand:      r.est.Value,
			Churn:       r.churnE,
			Acquisition: r.acqE,
			CILower:     r.est.CILower,
			CIUpper:     r.est.CIUpper,
			Source:      r.est.Source,
		},
	}
}

// resultID is a name-based uuid over everything that determines the result.
func resultID(sc domain.Scenario, newPrice float64, cohort string) string {
	target := ""
	if sc.Target != nil {
		target = sc.Target.Label()
	}
	name := fmt.Sprintf("%s|%s|%g|%g|%s|%s|%s", sc.ID, sc.Tier, sc.CurrentPrice, newPrice, target, cohort, sc.Horizon)
	return uuid.NewSHA1(resultNamespace, []byte(name)).String()
}

func (s *Simulator) baselineMetrics(r *run) domain.Metrics {
	b := r.baseline
	churn := 1 - b.returnRate
	return domain.Metrics{
		Price:           r.p0,
		Visitors:        b.visitors,
		ReturnRate:      b.returnRate,
		ChurnRate:       churn,
		NewAcquisitions: b.newAcq,
		Revenue:         float64(b.visitors) * r.p0,
		ARPV:            b.arpv,
		LTV:             b.arpv * s.config.LifetimeVisits,
		NetAdds:         b.newAcq - float64(b.visitors)*churn,
	}
}

// forecastTier is the closed-form aggregate path.
func (s *Simulator) forecastTier(r *run, res *domain.SimulationResult) error {
	b := res.Baseline
	demand, err := elasticity.ForecastDemand(r.p0, r.p1, b.Visitors, r.est.Value)
	if err != nil {
		return err
	}
	churn, err := elasticity.ForecastChurn(b.ChurnRate, r.p0, r.p1, r.churnE)
	if err != nil {
		return err
	}
	acq, err := elasticity.ForecastAcquisition(b.NewAcquisitions, r.p0, r.p1, r.acqE)
	if err != nil {
		return err
	}

	arpv := b.ARPV * r.p1 / r.p0
	res.Forecast = domain.Metrics{
		Price:           r.p1,
		Visitors:        demand.Visitors,
		ReturnRate:      1 - churn,
		ChurnRate:       churn,
		NewAcquisitions: acq,
		Revenue:         float64(demand.Visitors) * r.p1,
		ARPV:            arpv,
		LTV:             arpv * s.config.LifetimeVisits,
		NetAdds:         acq - float64(demand.Visitors)*churn,
	}
	return nil
}

// assemble fills everything derived from baseline and forecast.
func (s *Simulator) assemble(ctx context.Context, r *run, res *domain.SimulationResult) {
	res.Deltas = domain.ComputeDeltas(res.Baseline, res.Forecast)
	res.TimeSeries = s.timeSeries(r, res)
	res.Mix = s.mixShare(r, res)
	res.ConstraintsMet = r.scenario.Constraints.Met()
	res.HorizonChurn = s.horizonChurn(ctx, r, res)
	if res.Target != nil && len(res.HorizonChurn) > 0 {
		res.Target.HorizonChurn = lagmodel.ScaleToSegment(res.HorizonChurn, res.Target.Elasticity)
	}
	res.Warnings = s.warnings(r, res)
}

func (s *Simulator) mixShare(r *run, res *domain.SimulationResult) domain.MixShare {
	others := s.engine.Context().Snapshot().TotalVisitors()
	if !res.Hypothetical {
		others -= res.Baseline.Visitors
	}
	if others < 0 {
		others = 0
	}
	var m domain.MixShare
	if d := others + res.Baseline.Visitors; d > 0 {
		m.Baseline = float64(res.Baseline.Visitors) / float64(d)
	}
	if d := others + res.Forecast.Visitors; d > 0 {
		m.Forecast = float64(res.Forecast.Visitors) / float64(d)
	}
	return m
}

func (s *Simulator) horizonChurn(ctx context.Context, r *run, res *domain.SimulationResult) []domain.HorizonChurn {
	if s.lag == nil {
		return nil
	}
	out, err := s.lag.ChurnByHorizon(ctx, lagmodel.Request{
		PriceChangePct: r.pct * 100,
		BaselineChurn:  res.Baseline.ChurnRate,
	})
	if err != nil {
		log.Warn().Err(err).Str("scenario", r.scenario.ID).Str("backend", s.lag.Name()).Msg("Churn by horizon unavailable")
		return nil
	}
	return out
}
