package domain

import (
	"github.com/rs/zerolog/log"
)

// Snapshot is the in-memory reference data every core operation reads.
type Snapshot struct {
	Tiers             map[TierID]Tier
	Segments          []Segment
	SegmentElasticity map[TierID]map[string]AxisElasticity
	Cohorts           map[string]CohortProfile
	Scenarios         []Scenario
}

// Tier looks up a tier by id.
func (s *Snapshot) Tier(id TierID) (Tier, bool) {
	if s == nil {
		return Tier{}, false
	}
	t, ok := s.Tiers[id]
	return t, ok
}

// TotalVisitors sums the latest observed visitors over all real tiers.
func (s *Snapshot) TotalVisitors() int64 {
	var total int64
	if s == nil {
		return 0
	}
	for _, t := range s.Tiers {
		if snap, ok := t.LatestSnapshot(); ok && !t.Hypothetical {
			total += snap.ActiveVisitors
		}
	}
	return total
}

// SimulationContext is the caller-owned handle passed into every core call.
// It carries the reference snapshot and the active cohort selection.
type SimulationContext struct {
	snapshot     *Snapshot
	activeCohort string
}

// NewSimulationContext starts with the baseline cohort active.
func NewSimulationContext(s *Snapshot) *SimulationContext {
	if s == nil {
		s = &Snapshot{}
	}
	return &SimulationContext{snapshot: s, activeCohort: BaselineCohort}
}

// Snapshot returns the reference data.
func (c *SimulationContext) Snapshot() *Snapshot { return c.snapshot }

// SetActiveCohort selects a cohort profile. Unknown ids are ignored with a
// warning and the previous selection is kept.
func (c *SimulationContext) SetActiveCohort(id string) bool {
	if id == BaselineCohort {
		c.activeCohort = id
		return true
	}
	if _, ok := c.snapshot.Cohorts[id]; !ok {
		log.Warn().Str("cohort", id).Str("active", c.activeCohort).Msg("Unknown cohort, keeping current selection")
		return false
	}
	c.activeCohort = id
	return true
}

// ActiveCohort returns the selected cohort id.
func (c *SimulationContext) ActiveCohort() string { return c.activeCohort }

// CohortActive reports whether a non-baseline cohort is selected.
func (c *SimulationContext) CohortActive() bool { return c.activeCohort != BaselineCohort }

// ActiveProfile returns the selected cohort profile.
func (c *SimulationContext) ActiveProfile() (CohortProfile, bool) {
	p, ok := c.snapshot.Cohorts[c.activeCohort]
	return p, ok
}

// BaselineProfile returns the identity cohort profile.
func (c *SimulationContext) BaselineProfile() (CohortProfile, bool) {
	p, ok := c.snapshot.Cohorts[BaselineCohort]
	return p, ok
}
