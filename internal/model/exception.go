package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Scope is the entity level an exception applies to.
type Scope string

const (
	ScopeRestaurant Scope = "restaurant"
	ScopeRoom       Scope = "room"
	ScopeTable      Scope = "table"
)

// Valid reports whether the scope is one of the supported levels.
func (s Scope) Valid() bool {
	switch s {
	case ScopeRestaurant, ScopeRoom, ScopeTable:
		return true
	}
	return false
}

// Type is the kind of schedule exception.
type Type string

const (
	TypeFull              Type = "full"
	TypeCapacityReduction Type = "capacity_reduction"
	TypeSpecialHours      Type = "special_hours"
	TypeSpecialOpening    Type = "special_opening"
)

// Valid reports whether the type is one of the supported kinds.
func (t Type) Valid() bool {
	switch t {
	case TypeFull, TypeCapacityReduction, TypeSpecialHours, TypeSpecialOpening:
		return true
	}
	return false
}

// RecurrenceKind identifies how an exception repeats.
type RecurrenceKind string

const (
	RecurDaily   RecurrenceKind = "daily"
	RecurWeekly  RecurrenceKind = "weekly"
	RecurMonthly RecurrenceKind = "monthly"
)

// Valid reports whether the kind is supported.
func (k RecurrenceKind) Valid() bool {
	switch k {
	case RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}

// WeekOrdinal selects the Nth weekday occurrence within a month.
type WeekOrdinal string

const (
	WeekFirst  WeekOrdinal = "first"
	WeekSecond WeekOrdinal = "second"
	WeekThird  WeekOrdinal = "third"
	WeekFourth WeekOrdinal = "fourth"
	WeekLast   WeekOrdinal = "last"
)

// Index returns the 1-based occurrence number, or 0 for "last" and unknown values.
func (w WeekOrdinal) Index() int {
	switch w {
	case WeekFirst:
		return 1
	case WeekSecond:
		return 2
	case WeekThird:
		return 3
	case WeekFourth:
		return 4
	}
	return 0
}

// Valid reports whether the ordinal is one of the supported values.
func (w WeekOrdinal) Valid() bool {
	return w == WeekLast || w.Index() > 0
}

// Date is a calendar day with no time-of-day or zone attached.
// Recurrence bounds are day-granular, so comparisons go through Key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a strict YYYY-MM-DD literal.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// Key returns a sortable integer (YYYYMMDD) for day comparisons.
func (d Date) Key() int {
	return d.Year*10000 + int(d.Month)*100 + d.Day
}

// String formats the day as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Recurrence describes which calendar days an exception repeats on.
// Weekdays are ISO numbers (1=Monday .. 7=Sunday), normalized once at
// payload time; the matching loop never sees textual tokens.
type Recurrence struct {
	Kind        RecurrenceKind
	From        Date
	Until       Date
	Weekdays    []int
	MonthDays   []int
	WeekOfMonth WeekOrdinal
}

type recurrenceJSON struct {
	Type        string      `json:"type"`
	From        string      `json:"from,omitempty"`
	Until       string      `json:"until,omitempty"`
	Days        []int       `json:"days,omitempty"`
	MonthDays   []int       `json:"month_days,omitempty"`
	WeekOfMonth WeekOrdinal `json:"week_of_month,omitempty"`
}

// MarshalJSON emits the wire shape with day-granular bounds.
func (r Recurrence) MarshalJSON() ([]byte, error) {
	out := recurrenceJSON{
		Type:        string(r.Kind),
		Days:        r.Weekdays,
		MonthDays:   r.MonthDays,
		WeekOfMonth: r.WeekOfMonth,
	}
	if !r.From.IsZero() {
		out.From = r.From.String()
	}
	if !r.Until.IsZero() {
		out.Until = r.Until.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the wire shape. Bounds must be strict YYYY-MM-DD.
func (r *Recurrence) UnmarshalJSON(data []byte) error {
	var in recurrenceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := Recurrence{
		Kind:        RecurrenceKind(in.Type),
		Weekdays:    in.Days,
		MonthDays:   in.MonthDays,
		WeekOfMonth: in.WeekOfMonth,
	}
	if in.From != "" {
		d, err := ParseDate(in.From)
		if err != nil {
			return fmt.Errorf("recurrence from: %w", err)
		}
		out.From = d
	}
	if in.Until != "" {
		d, err := ParseDate(in.Until)
		if err != nil {
			return fmt.Errorf("recurrence until: %w", err)
		}
		out.Until = d
	}
	*r = out
	return nil
}

// ExceptionRecord is one schedule exception as stored and served.
type ExceptionRecord struct {
	ID               int64            `json:"id"`
	Scope            Scope            `json:"scope"`
	Type             Type             `json:"type"`
	StartAt          time.Time        `json:"start_at"`
	EndAt            time.Time        `json:"end_at"`
	RoomID           int64            `json:"room_id,omitempty"`
	TableID          int64            `json:"table_id,omitempty"`
	Note             string           `json:"note"`
	Active           bool             `json:"active"`
	Priority         int              `json:"priority"`
	Recurrence       *Recurrence      `json:"recurrence,omitempty"`
	CapacityOverride CapacityOverride `json:"capacity_override,omitempty"`
	CreatedAt        time.Time        `json:"created_at,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at,omitempty"`
}

// UnmarshalJSON decodes the capacity override into its concrete variant.
func (e *ExceptionRecord) UnmarshalJSON(data []byte) error {
	type alias ExceptionRecord
	aux := struct {
		*alias
		CapacityOverride json.RawMessage `json:"capacity_override,omitempty"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.CapacityOverride) > 0 && string(aux.CapacityOverride) != "null" {
		override, err := UnmarshalOverride(aux.CapacityOverride)
		if err != nil {
			return err
		}
		e.CapacityOverride = override
	}
	return nil
}

// Recurring reports whether the record carries a recurrence rule.
func (e *ExceptionRecord) Recurring() bool {
	return e.Recurrence != nil
}

// Occurrence is one concrete interval produced by expanding a record
// against a query window. It never extends outside that window.
type Occurrence struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
