package segment

import (
	"github.com/sawpanic/pricecast/internal/domain"
)

// Query is one elasticity lookup.
type Query struct {
	Tier domain.TierID
	Key  string
	Axis domain.Axis
}

// Resolver is one strategy in the fallback chain. Resolve reports ok=false
// to pass the query to the next strategy; an error aborts the chain and the
// engine degrades to its last-resort default.
type Resolver interface {
	Level() int
	Reason() string
	Resolve(q Query) (float64, bool, error)
}

// exactResolver answers from the segment's own axis elasticity.
type exactResolver struct {
	records map[domain.TierID]map[string]domain.AxisElasticity
}

func (exactResolver) Level() int     { return 1 }
func (exactResolver) Reason() string { return "exact segment hit" }

func (r exactResolver) Resolve(q Query) (float64, bool, error) {
	rec, ok := r.records[q.Tier][q.Key]
	if !ok {
		return 0, false, nil
	}
	v, ok := rec.ForAxis(q.Axis)
	return v, ok, nil
}

// tierBaseResolver answers with the tier base elasticity when the record
// exists (or is missing, depending on wantRecord).
type tierBaseResolver struct {
	records    map[domain.TierID]map[string]domain.AxisElasticity
	tiers      map[domain.TierID]domain.Tier
	wantRecord bool
	level      int
	reason     string
}

func (r tierBaseResolver) Level() int     { return r.level }
func (r tierBaseResolver) Reason() string { return r.reason }

func (r tierBaseResolver) Resolve(q Query) (float64, bool, error) {
	_, hasRecord := r.records[q.Tier][q.Key]
	if hasRecord != r.wantRecord {
		return 0, false, nil
	}
	t, ok := r.tiers[q.Tier]
	if !ok {
		return 0, false, &domain.UnknownTierError{Tier: q.Tier}
	}
	return t.Elasticity.BaseElasticity, true, nil
}

// DefaultResolvers builds the standard three-step chain over a snapshot:
// exact axis value, then tier base when the axis is missing, then tier base
// when the segment is missing.
func DefaultResolvers(s *domain.Snapshot) []Resolver {
	return []Resolver{
		exactResolver{records: s.SegmentElasticity},
		tierBaseResolver{
			records: s.SegmentElasticity, tiers: s.Tiers,
			wantRecord: true, level: 2, reason: "axis elasticity missing for segment",
		},
		tierBaseResolver{
			records: s.SegmentElasticity, tiers: s.Tiers,
			wantRecord: false, level: 3, reason: "segment not found",
		},
	}
}
