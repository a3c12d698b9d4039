package closures

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

// DefaultMaxDays caps the preview window when the caller configures no
// limit of its own. The day-by-day walk times the record count is the
// worst-case cost, so the cap is the throttle.
const DefaultMaxDays = 120

// Event is one expanded occurrence enriched with its record's context.
type Event struct {
	RecordID         int64                  `json:"id"`
	Scope            model.Scope            `json:"scope"`
	Type             model.Type             `json:"type"`
	Start            time.Time              `json:"start"`
	End              time.Time              `json:"end"`
	Note             string                 `json:"note"`
	Priority         int                    `json:"priority"`
	CapacityOverride model.CapacityOverride `json:"capacity_override,omitempty"`
	Active           bool                   `json:"active"`
}

// UnmarshalJSON decodes the capacity override into its concrete
// variant, so cached previews round-trip through JSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	aux := struct {
		*alias
		CapacityOverride json.RawMessage `json:"capacity_override,omitempty"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.CapacityOverride) > 0 && string(aux.CapacityOverride) != "null" {
		override, err := model.UnmarshalOverride(aux.CapacityOverride)
		if err != nil {
			return err
		}
		e.CapacityOverride = override
	}
	return nil
}

// ReductionStats aggregates the percent field across events whose
// override carries one.
type ReductionStats struct {
	Count int `json:"count"`
	Min   int `json:"min"`
	Max   int `json:"max"`
}

// Summary is the aggregate view over all events in a preview.
type Summary struct {
	TotalEvents       int                 `json:"total_events"`
	BlockedHours      float64             `json:"blocked_hours"`
	CapacityReduction ReductionStats      `json:"capacity_reduction"`
	SpecialHours      int                 `json:"special_hours"`
	ImpactedScopes    map[model.Scope]int `json:"impacted_scopes"`
}

// DateRange echoes the queried window back to the caller.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Preview is the merged, sorted and summarized expansion of a record
// set over a date range.
type Preview struct {
	Range   DateRange `json:"range"`
	Events  []Event   `json:"events"`
	Summary Summary   `json:"summary"`
}

// PreviewOptions tunes preview generation.
type PreviewOptions struct {
	// MaxDays rejects ranges longer than this many days; zero or
	// negative means DefaultMaxDays.
	MaxDays int
}

// GeneratePreview expands every record over the range, merges the
// occurrences into one prioritized event list and computes the summary.
// Both range checks fail before any expansion work runs; no partial
// result is ever returned. The computation is pure, so callers may
// cache results keyed by range and record set.
func GeneratePreview(rangeStart, rangeEnd time.Time, records []*model.ExceptionRecord, opts PreviewOptions) (*Preview, error) {
	if err := ValidateRange(rangeStart, rangeEnd, opts.MaxDays); err != nil {
		return nil, err
	}

	events := make([]Event, 0)
	for _, rec := range records {
		for _, occ := range Expand(rec, rangeStart, rangeEnd) {
			events = append(events, Event{
				RecordID:         rec.ID,
				Scope:            rec.Scope,
				Type:             rec.Type,
				Start:            occ.Start,
				End:              occ.End,
				Note:             rec.Note,
				Priority:         rec.Priority,
				CapacityOverride: rec.CapacityOverride,
				Active:           rec.Active,
			})
		}
	}

	// Stable sort keeps input record order for full ties, which makes
	// repeated previews over the same record set byte-identical.
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].Priority > events[j].Priority
	})

	return &Preview{
		Range:   DateRange{Start: rangeStart, End: rangeEnd},
		Events:  events,
		Summary: summarize(events),
	}, nil
}

// ValidateRange applies the preview range checks without doing any
// expansion work, so callers can reject a request before loading
// records. maxDays <= 0 means DefaultMaxDays.
func ValidateRange(rangeStart, rangeEnd time.Time, maxDays int) error {
	if rangeEnd.Before(rangeStart) {
		return &RangeError{Reason: "range end before start"}
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	if days := int(rangeEnd.Sub(rangeStart) / (24 * time.Hour)); days > maxDays {
		return &RangeError{Reason: fmt.Sprintf("range spans %d days, exceeding the maximum of %d", days, maxDays)}
	}
	return nil
}

func summarize(events []Event) Summary {
	s := Summary{
		TotalEvents:    len(events),
		ImpactedScopes: make(map[model.Scope]int),
	}
	for _, ev := range events {
		s.ImpactedScopes[ev.Scope]++

		// Only whole-restaurant full closures count as blocked time;
		// room or table closures still leave the facility bookable.
		if ev.Type == model.TypeFull && ev.Scope == model.ScopeRestaurant {
			s.BlockedHours += ev.End.Sub(ev.Start).Hours()
		}

		if ev.Type == model.TypeSpecialHours {
			s.SpecialHours++
		}

		if percent, ok := model.ReductionPercent(ev.CapacityOverride); ok {
			if s.CapacityReduction.Count == 0 || percent < s.CapacityReduction.Min {
				s.CapacityReduction.Min = percent
			}
			if s.CapacityReduction.Count == 0 || percent > s.CapacityReduction.Max {
				s.CapacityReduction.Max = percent
			}
			s.CapacityReduction.Count++
		}
	}
	return s
}
