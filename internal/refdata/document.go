// Package refdata reads the reference snapshot (tiers, elasticity tables,
// segment KPIs, cohort coefficients and scenario definitions) from a single
// YAML or JSON document.
package refdata

import "github.com/sawpanic/pricecast/internal/domain"

// Document mirrors the file layout. JSON documents are read through the same
// YAML decoder.
type Document struct {
	Tiers             []TierDoc                                 `yaml:"tiers"`
	Elasticity        map[domain.TierID]domain.ElasticityParams `yaml:"elasticity"`
	SegmentElasticity map[domain.TierID]SegmentElasticityDoc    `yaml:"segment_elasticity"`
	SegmentKPIs       []SegmentKPIDoc                           `yaml:"segment_kpis"`
	Cohorts           map[string]domain.CohortProfile           `yaml:"cohorts"`
	Scenarios         []ScenarioDoc                             `yaml:"scenarios"`
}

// TierDoc is one tier with its daily snapshots.
type TierDoc struct {
	ID           domain.TierID `yaml:"id"`
	Name         string        `yaml:"name"`
	Price        float64       `yaml:"price"`
	Hypothetical bool          `yaml:"hypothetical"`
	Snapshots    []SnapshotDoc `yaml:"snapshots"`
}

// SnapshotDoc carries its date as text so YAML timestamps and JSON strings
// decode the same way.
type SnapshotDoc struct {
	Date             string  `yaml:"date"`
	ActiveVisitors   int64   `yaml:"active_visitors"`
	ReturnRate       float64 `yaml:"return_rate"`
	NewRegistrations float64 `yaml:"new_registrations"`
	Revenue          float64 `yaml:"revenue"`
	ARPV             float64 `yaml:"arpv"`
}

// SegmentElasticityDoc is the per-tier segment elasticity table.
type SegmentElasticityDoc struct {
	Segments map[string]AxisRecordDoc `yaml:"segment_elasticity"`
}

// AxisRecordDoc holds the three optional axis entries of one segment.
type AxisRecordDoc struct {
	Acquisition *ElasticityValue `yaml:"acquisition_axis"`
	Churn       *ElasticityValue `yaml:"churn_axis"`
	Migration   *ElasticityValue `yaml:"migration_axis"`
}

// ElasticityValue wraps one axis value.
type ElasticityValue struct {
	Elasticity *float64 `yaml:"elasticity"`
}

// SegmentKPIDoc is one row of the segment KPI table.
type SegmentKPIDoc struct {
	Tier          domain.TierID `yaml:"tier"`
	CompositeKey  string        `yaml:"composite_key"`
	Visitors      int64         `yaml:"visitors"`
	AvgReturnRate float64       `yaml:"avg_return_rate"`
	AvgARPV       float64       `yaml:"avg_arpv"`
	AvgUsageHours float64       `yaml:"avg_usage_hours"`
	AvgCAC        float64       `yaml:"avg_cac"`
}

// ScenarioDoc is a scenario definition.
type ScenarioDoc struct {
	ID           string             `yaml:"id"`
	Name         string             `yaml:"name"`
	Tier         domain.TierID      `yaml:"tier"`
	CurrentPrice float64            `yaml:"current_price"`
	Config       ScenarioConfigDoc  `yaml:"config"`
	Constraints  domain.Constraints `yaml:"constraints"`
	Category     string             `yaml:"category"`
	Target       *TargetDoc         `yaml:"target"`
	Horizon      string             `yaml:"time_horizon"`
}

// ScenarioConfigDoc is the tagged union of scenario configs.
type ScenarioConfigDoc struct {
	Type           string  `yaml:"type"`
	NewPrice       float64 `yaml:"new_price"`
	DiscountPct    float64 `yaml:"discount_pct"`
	DurationMonths int     `yaml:"duration_months"`
}

// TargetDoc names a segment key or a cohort axis value.
type TargetDoc struct {
	Segment     string `yaml:"segment"`
	CohortAxis  string `yaml:"cohort_axis"`
	CohortValue string `yaml:"cohort_value"`
}
