package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTier is matched by UnknownTierError
	ErrUnknownTier = errors.New("unknown tier")
	// ErrMissingBaseline is matched by MissingBaselineDataError
	ErrMissingBaseline = errors.New("missing baseline data")
	// ErrInvalidInput is matched by InvalidInputError
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoSavedResults is returned when a ranking is requested over nothing
	ErrNoSavedResults = errors.New("no saved simulation results to rank")
)

// UnknownTierError reports a tier id that is neither in the reference
// snapshot nor configured as a proxy tier.
type UnknownTierError struct {
	Tier TierID
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("unknown tier %q", e.Tier)
}

func (e *UnknownTierError) Is(target error) bool { return target == ErrUnknownTier }

// MissingBaselineDataError reports a tier with no observed snapshot and no
// proxy mapping to synthesize one from.
type MissingBaselineDataError struct {
	Tier   TierID
	Reason string
}

func (e *MissingBaselineDataError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("no baseline data for tier %q", e.Tier)
	}
	return fmt.Sprintf("no baseline data for tier %q: %s", e.Tier, e.Reason)
}

func (e *MissingBaselineDataError) Is(target error) bool { return target == ErrMissingBaseline }

// InvalidInputError reports a zero, negative or non-finite input to a
// forecast formula, or a malformed scenario field.
type InvalidInputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// DegradedLookupWarning records that an elasticity lookup fell past the exact
// segment hit. It is never returned as an error.
type DegradedLookupWarning struct {
	Tier   TierID  `json:"tier"`
	Key    string  `json:"key"`
	Axis   Axis    `json:"axis"`
	Level  int     `json:"level"`
	Reason string  `json:"reason"`
	Value  float64 `json:"value"`
}

func (w DegradedLookupWarning) String() string {
	return fmt.Sprintf("elasticity lookup degraded to level %d for %s/%s/%s: %s (using %.3f)",
		w.Level, w.Tier, w.Key, w.Axis, w.Reason, w.Value)
}
