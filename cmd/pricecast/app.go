package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/pricecast/internal/cohort"
	"github.com/sawpanic/pricecast/internal/decision"
	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/lagmodel"
	"github.com/sawpanic/pricecast/internal/metrics"
	"github.com/sawpanic/pricecast/internal/refdata"
	"github.com/sawpanic/pricecast/internal/segment"
	"github.com/sawpanic/pricecast/internal/simulate"
)

// app wires the engines over one loaded snapshot.
type app struct {
	ref      *refdata.Result
	ctx      *domain.SimulationContext
	segments *segment.Engine
	cohorts  *cohort.Aggregator
	decision *decision.Engine
	lag      lagmodel.Backend
	churn    *lagmodel.Model
	metrics  *metrics.Registry

	cfg *simulate.Config
}

// newApp loads the reference data and selects the active cohort.
func (o *rootOptions) newApp() (*app, error) {
	cfg := o.cfg
	if cfg.Data == "" {
		return nil, fmt.Errorf("no reference data: pass --data or set PRICECAST_DATA")
	}
	ref, err := refdata.Load(cfg.Data)
	if err != nil {
		return nil, err
	}

	reg := metrics.NewRegistry()
	ctx := domain.NewSimulationContext(ref.Snapshot)
	if !ctx.SetActiveCohort(o.cohort) {
		return nil, &domain.InvalidInputError{Field: "cohort", Reason: fmt.Sprintf("unknown cohort %q", o.cohort)}
	}
	segments := segment.NewEngine(ctx, &cfg.Segment, segment.WithMetrics(reg))

	native := lagmodel.NewModel(&cfg.LagModel)
	var lag lagmodel.Backend = native
	if cfg.LagBackend != "" {
		primary, err := lagmodel.NewCommandBackend(cfg.LagBackend)
		if err != nil {
			return nil, err
		}
		lag = lagmodel.NewGuarded(primary, native, cfg.LagModel.Breaker, reg)
	}

	a := &app{
		ref:      ref,
		ctx:      ctx,
		segments: segments,
		cohorts:  cohort.NewAggregator(segments),
		decision: decision.NewEngine(&cfg.Decision, decision.WithMetrics(reg)),
		lag:      lag,
		churn:    native,
		metrics:  reg,
		cfg:      &cfg.Simulate,
	}
	o.app = a
	return a, nil
}

// simulator builds a simulator, attaching horizon churn when asked.
func (a *app) simulator(horizonChurn bool) *simulate.Simulator {
	opts := []simulate.Option{simulate.WithMetrics(a.metrics)}
	if horizonChurn {
		opts = append(opts, simulate.WithLagBackend(a.lag))
	}
	return simulate.NewSimulator(a.segments, a.cfg, opts...)
}

// scenarios returns the named scenarios, or all of them when ids is empty.
func (a *app) scenarios(ids []string) ([]domain.Scenario, error) {
	all := a.ref.Snapshot.Scenarios
	if len(ids) == 0 {
		return all, nil
	}
	byID := make(map[string]domain.Scenario, len(all))
	for _, sc := range all {
		byID[sc.ID] = sc
	}
	out := make([]domain.Scenario, 0, len(ids))
	for _, id := range ids {
		sc, ok := byID[id]
		if !ok {
			return nil, &domain.InvalidInputError{Field: "scenario", Reason: fmt.Sprintf("no scenario with id %q", id)}
		}
		out = append(out, sc)
	}
	return out, nil
}

func (a *app) writeMetrics(w io.Writer) {
	samples, err := a.metrics.Samples()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to gather metrics")
		return
	}
	if err := writeJSON(w, samples); err != nil {
		log.Warn().Err(err).Msg("Failed to write metrics")
	}
}
