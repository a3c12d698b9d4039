package model

import (
	"encoding/json"
	"fmt"
)

// Override modes as they appear on the wire.
const (
	ModeCapacityReduction = "capacity_reduction"
	ModeSpecialHours      = "special_hours"
	ModeSpecialOpening    = "special_opening"
)

// CapacityOverride is the type-specific payload describing how an
// exception modifies bookable capacity. Modeling it as a closed set of
// variants keeps invalid field combinations unrepresentable.
type CapacityOverride interface {
	Mode() string
}

// SlotWindow is one service window inside a special-hours or
// special-opening override.
type SlotWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

// CapacityReduction cuts bookable capacity by a percentage.
type CapacityReduction struct {
	Percent            int `json:"percent"`
	UnassignedCapacity int `json:"unassigned_capacity"`
}

func (CapacityReduction) Mode() string { return ModeCapacityReduction }

// MarshalJSON adds the mode discriminator.
func (c CapacityReduction) MarshalJSON() ([]byte, error) {
	type alias CapacityReduction
	return json.Marshal(struct {
		Mode string `json:"mode"`
		alias
	}{Mode: c.Mode(), alias: alias(c)})
}

// SpecialHours replaces the regular service windows for the day.
type SpecialHours struct {
	Label   string       `json:"label,omitempty"`
	Percent int          `json:"percent"`
	Slots   []SlotWindow `json:"slots"`
}

func (SpecialHours) Mode() string { return ModeSpecialHours }

// MarshalJSON adds the mode discriminator.
func (s SpecialHours) MarshalJSON() ([]byte, error) {
	type alias SpecialHours
	return json.Marshal(struct {
		Mode string `json:"mode"`
		alias
	}{Mode: s.Mode(), alias: alias(s)})
}

// SpecialOpening opens a one-off service with its own capacity.
type SpecialOpening struct {
	Label    string       `json:"label,omitempty"`
	MealKey  string       `json:"meal_key"`
	Capacity int          `json:"capacity"`
	Slots    []SlotWindow `json:"slots"`
}

func (SpecialOpening) Mode() string { return ModeSpecialOpening }

// MarshalJSON adds the mode discriminator.
func (s SpecialOpening) MarshalJSON() ([]byte, error) {
	type alias SpecialOpening
	return json.Marshal(struct {
		Mode string `json:"mode"`
		alias
	}{Mode: s.Mode(), alias: alias(s)})
}

// ReductionPercent reports the percentage carried by an override, for
// any variant that exposes one.
func ReductionPercent(o CapacityOverride) (int, bool) {
	switch v := o.(type) {
	case CapacityReduction:
		return v.Percent, true
	case *CapacityReduction:
		return v.Percent, true
	case SpecialHours:
		return v.Percent, true
	case *SpecialHours:
		return v.Percent, true
	}
	return 0, false
}

// UnmarshalOverride decodes a wire override into its concrete variant
// based on the mode discriminator.
func UnmarshalOverride(data []byte) (CapacityOverride, error) {
	var head struct {
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("capacity override: %w", err)
	}
	switch head.Mode {
	case ModeCapacityReduction:
		var v CapacityReduction
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("capacity override: %w", err)
		}
		return v, nil
	case ModeSpecialHours:
		var v SpecialHours
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("capacity override: %w", err)
		}
		return v, nil
	case ModeSpecialOpening:
		var v SpecialOpening
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("capacity override: %w", err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("capacity override: unknown mode %q", head.Mode)
}
