// Package segment indexes the per-tier segment table and answers elasticity
// and KPI queries with the active cohort's multipliers applied.
package segment

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/pricecast/internal/domain"
	"github.com/sawpanic/pricecast/internal/metrics"
)

// Config tunes the segmentation engine.
type Config struct {
	// DefaultElasticity is the last-resort value for a tier that is not in
	// the snapshot at all.
	DefaultElasticity float64 `yaml:"default_elasticity"`
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() *Config {
	return &Config{DefaultElasticity: -2.0}
}

// Lookup is a resolved elasticity with the fallback level that produced it.
// Warning is nil for an exact (level 1) hit.
type Lookup struct {
	Value   float64                       `json:"value"`
	Level   int                           `json:"level"`
	Warning *domain.DegradedLookupWarning `json:"warning,omitempty"`
}

// Engine answers segment queries against one SimulationContext. The active
// cohort is read on every call, so SetActiveCohort on the context takes
// effect immediately.
type Engine struct {
	ctx       *domain.SimulationContext
	config    *Config
	resolvers []Resolver
	metrics   *metrics.Registry

	byTier map[domain.TierID][]domain.Segment
	byKey  map[domain.TierID]map[string]int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithResolvers replaces the default fallback chain.
func WithResolvers(rs ...Resolver) Option {
	return func(e *Engine) { e.resolvers = rs }
}

// WithMetrics records fallback levels on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine indexes the context's segment table.
func NewEngine(ctx *domain.SimulationContext, config *Config, opts ...Option) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	snap := ctx.Snapshot()
	e := &Engine{
		ctx:       ctx,
		config:    config,
		resolvers: DefaultResolvers(snap),
		byTier:    make(map[domain.TierID][]domain.Segment),
		byKey:     make(map[domain.TierID]map[string]int),
	}
	for _, s := range snap.Segments {
		if e.byKey[s.Tier] == nil {
			e.byKey[s.Tier] = make(map[string]int)
		}
		e.byKey[s.Tier][s.Key.String()] = len(e.byTier[s.Tier])
		e.byTier[s.Tier] = append(e.byTier[s.Tier], s)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Context returns the simulation context the engine reads.
func (e *Engine) Context() *domain.SimulationContext { return e.ctx }

// Multipliers derives the active cohort's ratios against baseline.
func (e *Engine) Multipliers() Multipliers {
	if !e.ctx.CohortActive() {
		return Identity()
	}
	active, ok := e.ctx.ActiveProfile()
	if !ok {
		return Identity()
	}
	baseline, ok := e.ctx.BaselineProfile()
	if !ok {
		return Identity()
	}
	return DeriveMultipliers(active, baseline)
}

// Elasticity returns the cohort-adjusted elasticity for a segment and axis.
// It never fails; degraded lookups fall back to the tier base elasticity.
func (e *Engine) Elasticity(tier domain.TierID, key string, axis domain.Axis) float64 {
	return e.Lookup(tier, key, axis).Value
}

// Lookup is Elasticity with the fallback level and warning attached.
func (e *Engine) Lookup(tier domain.TierID, key string, axis domain.Axis) Lookup {
	q := Query{Tier: tier, Key: key, Axis: axis}
	mult := e.Multipliers().ForAxis(axis)

	for _, r := range e.resolvers {
		v, ok, err := e.try(r, q)
		if err != nil {
			return e.degrade(q, 4, err.Error(), mult)
		}
		if !ok {
			continue
		}
		l := Lookup{Value: v * mult, Level: r.Level()}
		if r.Level() > 1 {
			l.Warning = e.warn(q, r.Level(), r.Reason(), l.Value)
		}
		return l
	}
	return e.degrade(q, 4, "no resolver matched", mult)
}

// try runs one resolver, converting a panic into an error.
func (e *Engine) try(r Resolver, q Query) (v float64, ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, ok, err = 0, false, fmt.Errorf("resolver level %d panicked: %v", r.Level(), p)
		}
	}()
	return r.Resolve(q)
}

func (e *Engine) degrade(q Query, level int, reason string, mult float64) Lookup {
	base := e.config.DefaultElasticity
	if t, ok := e.ctx.Snapshot().Tier(q.Tier); ok {
		base = t.Elasticity.BaseElasticity
	}
	v := base * mult
	return Lookup{Value: v, Level: level, Warning: e.warn(q, level, reason, v)}
}

func (e *Engine) warn(q Query, level int, reason string, value float64) *domain.DegradedLookupWarning {
	w := &domain.DegradedLookupWarning{
		Tier:   q.Tier,
		Key:    q.Key,
		Axis:   q.Axis,
		Level:  level,
		Reason: reason,
		Value:  value,
	}
	e.metrics.ObserveFallback(level)
	log.Debug().
		Str("tier", string(q.Tier)).
		Str("segment", q.Key).
		Str("axis", string(q.Axis)).
		Int("level", level).
		Float64("value", value).
		Msg(reason)
	return w
}

// SegmentsForTier returns the raw segment rows of a tier in index order.
func (e *Engine) SegmentsForTier(tier domain.TierID) []domain.Segment {
	rows := e.byTier[tier]
	out := make([]domain.Segment, len(rows))
	copy(out, rows)
	return out
}

// HasSegmentData reports whether the tier has any segment rows.
func (e *Engine) HasSegmentData(tier domain.TierID) bool {
	return len(e.byTier[tier]) > 0
}

// Segment returns one raw segment row.
func (e *Engine) Segment(tier domain.TierID, key domain.SegmentKey) (domain.Segment, bool) {
	i, ok := e.byKey[tier][key.String()]
	if !ok {
		return domain.Segment{}, false
	}
	return e.byTier[tier][i], true
}

// Filter selects segments by per-axis allow-lists. An empty list on an axis
// matches every value; an empty Tier matches every tier.
type Filter struct {
	Tier         domain.TierID `json:"tier,omitempty"`
	Acquisition  []string      `json:"acquisition,omitempty"`
	Engagement   []string      `json:"engagement,omitempty"`
	Monetization []string      `json:"monetization,omitempty"`
}

// Matches reports whether a segment passes the filter.
func (f Filter) Matches(s domain.Segment) bool {
	if f.Tier != "" && s.Tier != f.Tier {
		return false
	}
	return allowed(f.Acquisition, s.Key.Acquisition) &&
		allowed(f.Engagement, s.Key.Engagement) &&
		allowed(f.Monetization, s.Key.Monetization)
}

func allowed(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// FilterSegments returns matching segments with the active cohort's
// multipliers applied to their KPIs. Tiers are visited in lexical order.
func (e *Engine) FilterSegments(f Filter) []domain.Segment {
	m := e.Multipliers()
	tiers := []domain.TierID{f.Tier}
	if f.Tier == "" {
		tiers = e.tierIDs()
	}
	var out []domain.Segment
	for _, tier := range tiers {
		for _, s := range e.byTier[tier] {
			if f.Matches(s) {
				out = append(out, m.ApplyTo(s))
			}
		}
	}
	return out
}

func (e *Engine) tierIDs() []domain.TierID {
	ids := make([]domain.TierID, 0, len(e.byTier))
	for id := range e.byTier {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
