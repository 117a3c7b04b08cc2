package domain

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ScenarioConfig is the price proposal carried by a scenario. It is either a
// PriceChange or a Promotion; both normalize to an effective new price before
// entering the simulator.
type ScenarioConfig interface {
	Kind() string
	EffectivePrice(currentPrice float64) (float64, error)
	isScenarioConfig()
}

const (
	KindPriceChange = "price_change"
	KindPromotion   = "promotion"
)

// PriceChange replaces the list price outright.
type PriceChange struct {
	NewPrice float64 `json:"new_price"`
}

func (PriceChange) Kind() string { return KindPriceChange }
func (PriceChange) isScenarioConfig() {}

// EffectivePrice returns the new list price.
func (c PriceChange) EffectivePrice(float64) (float64, error) {
	if !(c.NewPrice > 0) || math.IsInf(c.NewPrice, 0) {
		return 0, &InvalidInputError{Field: "new_price", Value: c.NewPrice}
	}
	return c.NewPrice, nil
}

// Promotion is a temporary discount. DiscountPct is in percent (20 = 20% off).
type Promotion struct {
	DiscountPct    float64 `json:"discount_pct"`
	DurationMonths int     `json:"duration_months"`
}

func (Promotion) Kind() string { return KindPromotion }
func (Promotion) isScenarioConfig() {}

// EffectivePrice applies the discount to the current price.
func (c Promotion) EffectivePrice(currentPrice float64) (float64, error) {
	if math.IsNaN(c.DiscountPct) || c.DiscountPct <= 0 || c.DiscountPct >= 100 {
		return 0, &InvalidInputError{Field: "discount_pct", Value: c.DiscountPct, Reason: "must be in (0, 100)"}
	}
	if c.DurationMonths <= 0 {
		return 0, &InvalidInputError{Field: "duration_months", Value: float64(c.DurationMonths), Reason: "must be positive"}
	}
	return currentPrice * (1 - c.DiscountPct/100), nil
}

// Constraints are the guard rails attached to a scenario. A nil flag is
// treated as satisfied so older scenario records are never blocked.
type Constraints struct {
	MinPrice          float64 `json:"min_price,omitempty" yaml:"min_price,omitempty"`
	MaxPrice          float64 `json:"max_price,omitempty" yaml:"max_price,omitempty"`
	PlatformCompliant *bool   `json:"platform_compliant,omitempty" yaml:"platform_compliant,omitempty"`
	FrequencyLimitOK  *bool   `json:"price_change_12mo_limit,omitempty" yaml:"price_change_12mo_limit,omitempty"`
	NoticePeriodOK    *bool   `json:"notice_period_30d,omitempty" yaml:"notice_period_30d,omitempty"`
}

// Met reports whether every compliance flag is satisfied.
func (c Constraints) Met() bool {
	return flagOK(c.PlatformCompliant) && flagOK(c.FrequencyLimitOK) && flagOK(c.NoticePeriodOK)
}

// PriceInRange reports whether price respects the optional min/max bounds.
func (c Constraints) PriceInRange(price float64) bool {
	if c.MinPrice > 0 && price < c.MinPrice {
		return false
	}
	if c.MaxPrice > 0 && price > c.MaxPrice {
		return false
	}
	return true
}

func flagOK(b *bool) bool { return b == nil || *b }

// Target narrows a simulation to one segment or to a cohort (every segment
// sharing one axis value).
type Target struct {
	Segment     *SegmentKey `json:"segment,omitempty" yaml:"segment,omitempty"`
	CohortAxis  Axis        `json:"cohort_axis,omitempty" yaml:"cohort_axis,omitempty"`
	CohortValue string      `json:"cohort_value,omitempty" yaml:"cohort_value,omitempty"`
}

// SegmentTarget targets a single segment.
func SegmentTarget(k SegmentKey) *Target { return &Target{Segment: &k} }

// CohortTarget targets all segments carrying value on axis.
func CohortTarget(a Axis, value string) *Target { return &Target{CohortAxis: a, CohortValue: value} }

// IsCohort reports whether the target is a cohort rather than a segment.
func (t Target) IsCohort() bool { return t.Segment == nil }

// Label is a short display form of the target.
func (t Target) Label() string {
	if t.Segment != nil {
		return t.Segment.String()
	}
	return string(t.CohortAxis) + "=" + t.CohortValue
}

// Matches reports whether a segment key falls inside the target.
func (t Target) Matches(k SegmentKey) bool {
	if t.Segment != nil {
		return *t.Segment == k
	}
	return k.Value(t.CohortAxis) == t.CohortValue
}

// Validate checks the target against the axis taxonomy.
func (t Target) Validate() error {
	if t.Segment != nil {
		return t.Segment.Validate()
	}
	if !IsAxisValue(t.CohortAxis, t.CohortValue) {
		return &InvalidInputError{
			Field:  "target",
			Reason: fmt.Sprintf("%q is not a valid %s value", t.CohortValue, t.CohortAxis),
		}
	}
	return nil
}

// Scenario is an immutable price or promotion proposal for one tier.
type Scenario struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Tier         TierID         `json:"tier"`
	CurrentPrice float64        `json:"current_price"`
	Config       ScenarioConfig `json:"config"`
	Constraints  Constraints    `json:"constraints"`
	Category     string         `json:"category,omitempty"`
	Target       *Target        `json:"target,omitempty"`
	Horizon      string         `json:"time_horizon,omitempty"`
}

// NewScenario builds a scenario with a fresh id and no constraints.
func NewScenario(name string, tier TierID, currentPrice float64, cfg ScenarioConfig) Scenario {
	return Scenario{
		ID:           uuid.NewString(),
		Name:         name,
		Tier:         tier,
		CurrentPrice: currentPrice,
		Config:       cfg,
	}
}

// IsPromotion reports whether the scenario carries a Promotion config.
func (s Scenario) IsPromotion() bool {
	_, ok := s.Config.(Promotion)
	return ok
}

// EffectiveNewPrice normalizes the config to a single new price.
func (s Scenario) EffectiveNewPrice() (float64, error) {
	if s.Config == nil {
		return 0, &InvalidInputError{Field: "config", Reason: "scenario has no price change or promotion"}
	}
	return s.Config.EffectivePrice(s.CurrentPrice)
}

// Validate checks the scenario fields that do not depend on reference data.
func (s Scenario) Validate() error {
	if s.Tier == "" {
		return &InvalidInputError{Field: "tier", Reason: "empty tier id"}
	}
	if !(s.CurrentPrice > 0) || math.IsInf(s.CurrentPrice, 0) {
		return &InvalidInputError{Field: "current_price", Value: s.CurrentPrice}
	}
	if _, err := s.EffectiveNewPrice(); err != nil {
		return err
	}
	if s.Target != nil {
		return s.Target.Validate()
	}
	return nil
}

// WithConfig returns an edited copy under a new id. The receiver is left
// untouched.
func (s Scenario) WithConfig(cfg ScenarioConfig) Scenario {
	c := s
	c.ID = uuid.NewString()
	c.Config = cfg
	if s.Target != nil {
		t := *s.Target
		if t.Segment != nil {
			k := *t.Segment
			t.Segment = &k
		}
		c.Target = &t
	}
	return c
}
