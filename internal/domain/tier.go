package domain

import (
	"sort"
	"time"
)

// TierID identifies a priced membership level.
type TierID string

// DailySnapshot is one day of observed tier-level metrics.
type DailySnapshot struct {
	Date             time.Time `json:"date" yaml:"date"`
	ActiveVisitors   int64     `json:"active_visitors" yaml:"active_visitors"`
	ReturnRate       float64   `json:"return_rate" yaml:"return_rate"`
	NewRegistrations float64   `json:"new_registrations" yaml:"new_registrations"`
	Revenue          float64   `json:"revenue" yaml:"revenue"`
	ARPV             float64   `json:"arpv" yaml:"arpv"`
}

// PriceRange carries the tier's reference price points.
type PriceRange struct {
	Current float64 `json:"current" yaml:"current"`
	Min     float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// ElasticityParams are the tier's base elasticity parameters and overrides.
type ElasticityParams struct {
	BaseElasticity        float64                     `json:"base_elasticity" yaml:"base_elasticity"`
	ChurnElasticity       float64                     `json:"churn_elasticity" yaml:"churn_elasticity"`
	AcquisitionElasticity float64                     `json:"acquisition_elasticity" yaml:"acquisition_elasticity"`
	ConfidenceInterval    float64                     `json:"confidence_interval" yaml:"confidence_interval"` // half-width
	Segments              map[string]float64          `json:"segments,omitempty" yaml:"segments,omitempty"`
	CohortElasticity      map[Axis]map[string]float64 `json:"cohort_elasticity,omitempty" yaml:"cohort_elasticity,omitempty"`
	TimeHorizonAdjustment map[string]float64          `json:"time_horizon_adjustment,omitempty" yaml:"time_horizon_adjustment,omitempty"`
	PriceRange            PriceRange                  `json:"price_range" yaml:"price_range"`
}

// Tier is a priced membership level with its observed baseline history.
// Hypothetical tiers carry no snapshots; their baseline is synthesized from a
// proxy tier.
type Tier struct {
	ID           TierID           `json:"id"`
	Name         string           `json:"name"`
	Price        float64          `json:"price"`
	Hypothetical bool             `json:"hypothetical"`
	Snapshots    []DailySnapshot  `json:"snapshots,omitempty"`
	Elasticity   ElasticityParams `json:"elasticity"`
}

// LatestSnapshot returns the most recent observed snapshot.
func (t Tier) LatestSnapshot() (DailySnapshot, bool) {
	if len(t.Snapshots) == 0 {
		return DailySnapshot{}, false
	}
	latest := t.Snapshots[0]
	for _, s := range t.Snapshots[1:] {
		if s.Date.After(latest.Date) {
			latest = s
		}
	}
	return latest, true
}

// ProxyAssumption describes how a hypothetical tier borrows a baseline from a
// donor tier. All values are business assumptions and come from configuration.
type ProxyAssumption struct {
	DonorTier             TierID  `json:"donor_tier" yaml:"donor_tier"`
	AdoptionRate          float64 `json:"adoption_rate" yaml:"adoption_rate"`
	DemandElasticity      float64 `json:"demand_elasticity" yaml:"demand_elasticity"`
	ChurnElasticity       float64 `json:"churn_elasticity" yaml:"churn_elasticity"`
	AcquisitionElasticity float64 `json:"acquisition_elasticity" yaml:"acquisition_elasticity"`
}

// SortedTierIDs returns tier ids in lexical order for stable iteration.
func SortedTierIDs(tiers map[TierID]Tier) []TierID {
	ids := make([]TierID, 0, len(tiers))
	for id := range tiers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
