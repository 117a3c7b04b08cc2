// Package elasticity resolves price-elasticity coefficients for a tier and
// applies the closed-form forecast formulas.
package elasticity

import (
	"github.com/sawpanic/pricecast/internal/domain"
)

// Resolution sources, reported on every Estimate.
const (
	SourceProxy   = "proxy"
	SourceBase    = "tier_base"
	SourceSegment = "segment_override"
	SourceCohort  = "cohort_override"
	SourceHorizon = "horizon_adjusted"
)

// Request narrows a resolution. Zero fields are not applied.
type Request struct {
	Segment     string // composite key
	CohortAxis  domain.Axis
	CohortValue string
	Horizon     string

	// CohortActive and HasSegmentData gate the proxy substitution used for
	// hypothetical tiers under an alternative customer mix.
	CohortActive    bool
	HasSegmentData  bool
	ProxyElasticity *float64
}

// Estimate is a point elasticity with its confidence band.
type Estimate struct {
	Value   float64 `json:"value"`
	CILower float64 `json:"ci_lower"`
	CIUpper float64 `json:"ci_upper"`
	Source  string  `json:"source"`
}

// Resolve walks proxy, base, segment override, cohort override and horizon
// multiplier in that order. A proxy value replaces base and overrides; the
// horizon multiplier applies either way. The band is always the tier's base
// half-width around the final value.
func Resolve(p domain.ElasticityParams, req Request) Estimate {
	value, source := p.BaseElasticity, SourceBase
	if req.CohortActive && !req.HasSegmentData && req.ProxyElasticity != nil {
		value, source = *req.ProxyElasticity, SourceProxy
	} else {
		if req.Segment != "" {
			if v, ok := p.Segments[req.Segment]; ok {
				value, source = v, SourceSegment
			}
		}
		if req.CohortAxis != "" && req.CohortValue != "" {
			if v, ok := p.CohortElasticity[req.CohortAxis][req.CohortValue]; ok {
				value, source = v, SourceCohort
			}
		}
	}
	if req.Horizon != "" {
		if m, ok := p.TimeHorizonAdjustment[req.Horizon]; ok {
			value *= m
			source = SourceHorizon
		}
	}
	return band(value, p.ConfidenceInterval, source)
}

func band(value, halfWidth float64, source string) Estimate {
	return Estimate{
		Value:   value,
		CILower: value - halfWidth,
		CIUpper: value + halfWidth,
		Source:  source,
	}
}
