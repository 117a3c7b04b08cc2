// Package domaintest builds deterministic reference snapshots for tests.
package domaintest

import (
	"time"

	"github.com/sawpanic/pricecast/internal/domain"
)

const (
	Basic    domain.TierID = "basic_pass"
	Standard domain.TierID = "standard_pass"
	Premium  domain.TierID = "premium_pass"
	VIP      domain.TierID = "vip_pass" // hypothetical, proxied to Premium

	PriceSensitive = "price_sensitive_shift"
	LoyalCore      = "loyal_core"
)

// Keys whose elasticity records are deliberately incomplete.
var (
	// MissingAxisKey has a record in Standard but no churn_axis value.
	MissingAxisKey = domain.SegmentKey{Acquisition: "frequent", Engagement: "group", Monetization: "premium"}
	// MissingRecordKey has KPIs in Standard but no elasticity record.
	MissingRecordKey = domain.SegmentKey{Acquisition: "super_fan", Engagement: "group", Monetization: "price_insensitive"}
)

type tierSpec struct {
	id         domain.TierID
	name       string
	price      float64
	visitors   int64
	returnRate float64
	newRegs    float64
	params     domain.ElasticityParams
}

var tierSpecs = []tierSpec{
	{
		id: Basic, name: "Basic Pass", price: 49, visitors: 20000, returnRate: 0.70, newRegs: 1500,
		params: domain.ElasticityParams{
			BaseElasticity: -2.4, ChurnElasticity: 0.6, AcquisitionElasticity: -1.2, ConfidenceInterval: 0.3,
			PriceRange: domain.PriceRange{Current: 49, Min: 39, Max: 69},
		},
	},
	{
		id: Standard, name: "Standard Pass", price: 79, visitors: 10000, returnRate: 0.80, newRegs: 800,
		params: domain.ElasticityParams{
			BaseElasticity: -1.9, ChurnElasticity: 0.5, AcquisitionElasticity: -1.0, ConfidenceInterval: 0.25,
			Segments: map[string]float64{"regular|couple|moderate": -1.7},
			CohortElasticity: map[domain.Axis]map[string]float64{
				domain.AxisAcquisition: {"first_visit": -2.6},
			},
			TimeHorizonAdjustment: map[string]float64{"short_term": 1.2, "long_term": 0.8},
			PriceRange:            domain.PriceRange{Current: 79, Min: 59, Max: 99},
		},
	},
	{
		id: Premium, name: "Premium Pass", price: 129, visitors: 5000, returnRate: 0.88, newRegs: 300,
		params: domain.ElasticityParams{
			BaseElasticity: -1.2, ChurnElasticity: 0.35, AcquisitionElasticity: -0.7, ConfidenceInterval: 0.2,
			PriceRange: domain.PriceRange{Current: 129, Min: 99, Max: 179},
		},
	},
}

// SnapshotDate is the date of every latest fixture snapshot.
var SnapshotDate = time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)

// NewSnapshot returns three real tiers with 375 segments, one hypothetical
// tier, and three cohort profiles.
func NewSnapshot() *domain.Snapshot {
	s := &domain.Snapshot{
		Tiers:             make(map[domain.TierID]domain.Tier),
		SegmentElasticity: make(map[domain.TierID]map[string]domain.AxisElasticity),
		Cohorts:           NewCohorts(),
	}
	for _, spec := range tierSpecs {
		s.Tiers[spec.id] = domain.Tier{
			ID:    spec.id,
			Name:  spec.name,
			Price: spec.price,
			Snapshots: []domain.DailySnapshot{
				// older day first so LatestSnapshot has to pick
				{Date: SnapshotDate.AddDate(0, 0, -1), ActiveVisitors: spec.visitors - 100, ReturnRate: spec.returnRate, NewRegistrations: spec.newRegs, Revenue: float64(spec.visitors-100) * spec.price, ARPV: spec.price},
				{Date: SnapshotDate, ActiveVisitors: spec.visitors, ReturnRate: spec.returnRate, NewRegistrations: spec.newRegs, Revenue: float64(spec.visitors) * spec.price, ARPV: spec.price},
			},
			Elasticity: spec.params,
		}
		segs, records := buildSegments(spec)
		s.Segments = append(s.Segments, segs...)
		s.SegmentElasticity[spec.id] = records
	}
	s.Tiers[VIP] = domain.Tier{
		ID:           VIP,
		Name:         "VIP Pass",
		Price:        199,
		Hypothetical: true,
		Elasticity: domain.ElasticityParams{
			BaseElasticity: -0.9, ChurnElasticity: 0.3, AcquisitionElasticity: -0.5, ConfidenceInterval: 0.4,
			PriceRange: domain.PriceRange{Current: 199},
		},
	}
	return s
}

// NewContext wraps NewSnapshot in a context with the baseline cohort active.
func NewContext() *domain.SimulationContext {
	return domain.NewSimulationContext(NewSnapshot())
}

// NewCohorts returns baseline plus two alternative customer-mix profiles.
func NewCohorts() map[string]domain.CohortProfile {
	return map[string]domain.CohortProfile{
		domain.BaselineCohort: {
			ID: domain.BaselineCohort, Name: "Baseline",
			ChurnElasticity: 1.0, AcquisitionElasticity: -1.0, MigrationAsymmetryFactor: 1.0,
			MigrationUpgrade: 0.2, MigrationDowngrade: 0.2, EngagementOffset: 0,
		},
		PriceSensitive: {
			ID: PriceSensitive, Name: "Price Sensitive Shift",
			ChurnElasticity: 1.3, AcquisitionElasticity: -1.4, MigrationAsymmetryFactor: 1.2,
			MigrationUpgrade: 0.1, MigrationDowngrade: 0.4, EngagementOffset: -0.1,
			TimeLag: &domain.LagDistribution{Weeks0To4: 0.4, Weeks4To8: 0.3, Weeks8To12: 0.2, Weeks12Plus: 0.1},
		},
		LoyalCore: {
			ID: LoyalCore, Name: "Loyal Core",
			ChurnElasticity: 0.7, AcquisitionElasticity: -0.8, MigrationAsymmetryFactor: 0.8,
			MigrationUpgrade: 0.4, MigrationDowngrade: 0.1, EngagementOffset: 0.2,
		},
	}
}

// buildSegments spreads the tier's visitors over the 125 axis combinations,
// weighting each by the sum of its axis positions.
func buildSegments(spec tierSpec) ([]domain.Segment, map[string]domain.AxisElasticity) {
	acq := domain.AxisValues(domain.AxisAcquisition)
	eng := domain.AxisValues(domain.AxisEngagement)
	mon := domain.AxisValues(domain.AxisMonetization)

	segs := make([]domain.Segment, 0, domain.SegmentsPerTier)
	records := make(map[string]domain.AxisElasticity, domain.SegmentsPerTier)
	for a := range acq {
		for e := range eng {
			for m := range mon {
				key := domain.SegmentKey{Acquisition: acq[a].ID, Engagement: eng[e].ID, Monetization: mon[m].ID}
				weight := int64(a + e + m + 3)
				segs = append(segs, domain.Segment{
					Tier:          spec.id,
					Key:           key,
					Visitors:      spec.visitors * weight / 1125,
					AvgReturnRate: 0.6 + 0.05*float64(a),
					AvgARPV:       spec.price * (0.9 + 0.05*float64(m)),
					AvgUsageHours: 2 + float64(e),
					AvgCAC:        20 + 5*float64(a),
				})

				if spec.id == Standard && key == MissingRecordKey {
					continue
				}
				rec := domain.AxisElasticity{
					Acquisition: Float(-(3.0 - 0.4*float64(a)) - 0.1*float64(m)),
					Churn:       Float(0.5 + 0.1*float64(e)),
					Migration:   Float(0.3 + 0.1*float64(m)),
				}
				if spec.id == Standard && key == MissingAxisKey {
					rec.Churn = nil
				}
				records[key.String()] = rec
			}
		}
	}
	return segs, records
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// PriceChange builds a price-change scenario with a stable id.
func PriceChange(id string, tier domain.TierID, current, next float64) domain.Scenario {
	return domain.Scenario{
		ID:           id,
		Name:         id,
		Tier:         tier,
		CurrentPrice: current,
		Config:       domain.PriceChange{NewPrice: next},
	}
}
