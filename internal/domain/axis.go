package domain

import (
	"fmt"
	"strings"
)

// Axis is one of the three behavioral dimensions that define a segment.
type Axis string

const (
	AxisAcquisition  Axis = "acquisition"  // visit-frequency cohort
	AxisEngagement   Axis = "engagement"   // party-composition cohort
	AxisMonetization Axis = "monetization" // price-sensitivity cohort
)

// AxisValue is a member of an axis with its display label and a qualitative
// elasticity descriptor.
type AxisValue struct {
	ID         string `json:"id" yaml:"id"`
	Label      string `json:"label" yaml:"label"`
	Elasticity string `json:"elasticity" yaml:"elasticity"`
}

// SegmentsPerTier is the size of the 5x5x5 axis cross product.
const SegmentsPerTier = 125

var taxonomy = map[Axis][]AxisValue{
	AxisAcquisition: {
		{ID: "first_visit", Label: "First Visit", Elasticity: "very high"},
		{ID: "occasional", Label: "Occasional", Elasticity: "high"},
		{ID: "regular", Label: "Regular", Elasticity: "medium"},
		{ID: "frequent", Label: "Frequent", Elasticity: "low"},
		{ID: "super_fan", Label: "Super Fan", Elasticity: "very low"},
	},
	AxisEngagement: {
		{ID: "solo", Label: "Solo", Elasticity: "high"},
		{ID: "couple", Label: "Couple", Elasticity: "medium"},
		{ID: "small_family", Label: "Small Family", Elasticity: "medium"},
		{ID: "large_family", Label: "Large Family", Elasticity: "high"},
		{ID: "group", Label: "Group", Elasticity: "low"},
	},
	AxisMonetization: {
		{ID: "deal_seeker", Label: "Deal Seeker", Elasticity: "very high"},
		{ID: "value_conscious", Label: "Value Conscious", Elasticity: "high"},
		{ID: "moderate", Label: "Moderate", Elasticity: "medium"},
		{ID: "premium", Label: "Premium", Elasticity: "low"},
		{ID: "price_insensitive", Label: "Price Insensitive", Elasticity: "very low"},
	},
}

// Axes returns the three axes in canonical order.
func Axes() []Axis {
	return []Axis{AxisAcquisition, AxisEngagement, AxisMonetization}
}

// AxisValues returns the fixed value set of an axis in canonical order.
func AxisValues(a Axis) []AxisValue {
	values := taxonomy[a]
	out := make([]AxisValue, len(values))
	copy(out, values)
	return out
}

// LookupAxisValue returns the taxonomy entry for a value on an axis.
func LookupAxisValue(a Axis, id string) (AxisValue, bool) {
	for _, v := range taxonomy[a] {
		if v.ID == id {
			return v, true
		}
	}
	return AxisValue{}, false
}

// IsAxisValue reports whether id is a member of the axis's value set.
func IsAxisValue(a Axis, id string) bool {
	_, ok := LookupAxisValue(a, id)
	return ok
}

// ParseAxis validates an axis name.
func ParseAxis(s string) (Axis, error) {
	a := Axis(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := taxonomy[a]; !ok {
		return "", &InvalidInputError{Field: "axis", Reason: fmt.Sprintf("unknown axis %q", s)}
	}
	return a, nil
}

// SegmentKey identifies a segment within a tier by one value per axis.
type SegmentKey struct {
	Acquisition  string `json:"acquisition" yaml:"acquisition"`
	Engagement   string `json:"engagement" yaml:"engagement"`
	Monetization string `json:"monetization" yaml:"monetization"`
}

// String renders the composite key "acquisition|engagement|monetization".
func (k SegmentKey) String() string {
	return k.Acquisition + "|" + k.Engagement + "|" + k.Monetization
}

// Value returns the component of the key on the given axis.
func (k SegmentKey) Value(a Axis) string {
	switch a {
	case AxisAcquisition:
		return k.Acquisition
	case AxisEngagement:
		return k.Engagement
	case AxisMonetization:
		return k.Monetization
	default:
		return ""
	}
}

// Validate checks every component against its axis value set.
func (k SegmentKey) Validate() error {
	for _, a := range Axes() {
		if !IsAxisValue(a, k.Value(a)) {
			return &InvalidInputError{
				Field:  "segment",
				Reason: fmt.Sprintf("%q is not a valid %s value in key %s", k.Value(a), a, k),
			}
		}
	}
	return nil
}

// ParseSegmentKey parses and validates a composite key.
func ParseSegmentKey(s string) (SegmentKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "|")
	if len(parts) != 3 {
		return SegmentKey{}, &InvalidInputError{
			Field:  "segment",
			Reason: fmt.Sprintf("composite key %q must have 3 components", s),
		}
	}
	k := SegmentKey{Acquisition: parts[0], Engagement: parts[1], Monetization: parts[2]}
	if err := k.Validate(); err != nil {
		return SegmentKey{}, err
	}
	return k, nil
}

// AllSegmentKeys enumerates the 125 keys of the axis cross product in
// taxonomy order.
func AllSegmentKeys() []SegmentKey {
	keys := make([]SegmentKey, 0, SegmentsPerTier)
	for _, a := range taxonomy[AxisAcquisition] {
		for _, e := range taxonomy[AxisEngagement] {
			for _, m := range taxonomy[AxisMonetization] {
				keys = append(keys, SegmentKey{Acquisition: a.ID, Engagement: e.ID, Monetization: m.ID})
			}
		}
	}
	return keys
}
