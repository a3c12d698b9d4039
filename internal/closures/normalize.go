package closures

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

// Payload is a raw exception mutation as received from the transport.
// Nil pointers mean "not supplied"; on update those fields keep the
// existing record's values.
type Payload struct {
	Scope            *string            `json:"scope,omitempty"`
	Type             *string            `json:"type,omitempty"`
	StartAt          *string            `json:"start_at,omitempty"`
	EndAt            *string            `json:"end_at,omitempty"`
	RoomID           *int64             `json:"room_id,omitempty"`
	TableID          *int64             `json:"table_id,omitempty"`
	Note             *string            `json:"note,omitempty"`
	Active           *bool              `json:"active,omitempty"`
	Recurrence       *RecurrencePayload `json:"recurrence,omitempty"`
	CapacityOverride *OverridePayload   `json:"capacity_override,omitempty"`
}

// RecurrencePayload is the raw recurrence block of a mutation.
type RecurrencePayload struct {
	Type        string         `json:"type"`
	From        string         `json:"from,omitempty"`
	Until       string         `json:"until,omitempty"`
	Days        []WeekdayToken `json:"days,omitempty"`
	MonthDays   []int          `json:"month_days,omitempty"`
	WeekOfMonth string         `json:"week_of_month,omitempty"`
}

// WeekdayToken accepts a weekday as either a name ("mon", "monday") or
// an ISO number (1-7) in JSON.
type WeekdayToken string

// UnmarshalJSON keeps numeric tokens as their decimal text.
func (w *WeekdayToken) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*w = WeekdayToken(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("weekday token must be a name or a number")
	}
	*w = WeekdayToken(strconv.Itoa(n))
	return nil
}

// OverridePayload is the raw capacity override of a mutation. Which
// fields apply is decided by the record's type, not by the payload.
type OverridePayload struct {
	Percent            *int           `json:"percent,omitempty"`
	UnassignedCapacity *int           `json:"unassigned_capacity,omitempty"`
	Label              *string        `json:"label,omitempty"`
	MealKey            *string        `json:"meal_key,omitempty"`
	Capacity           *int           `json:"capacity,omitempty"`
	Slots              *[]SlotPayload `json:"slots,omitempty"`
}

// SlotPayload is one raw service window.
type SlotPayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

// Defaults carries the facility configuration the normalizer needs.
type Defaults struct {
	// Location is the facility timezone used for datetime literals that
	// carry no explicit UTC offset.
	Location *time.Location
	// ReductionPercent is the configured percentage applied when a
	// capacity reduction supplies none.
	ReductionPercent int
	// Scope and Type seed new records when the payload omits them.
	Scope model.Scope
	Type  model.Type
}

var weekdayNames = map[string]int{
	"mon": 1, "monday": 1,
	"tue": 2, "tues": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thur": 4, "thurs": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
	"sun": 7, "sunday": 7,
}

var dateBoundPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Normalize validates a raw mutation and produces a well-typed record.
// On update, fields absent from the payload keep the existing record's
// values; the existing record is never mutated.
func Normalize(p Payload, existing *model.ExceptionRecord, defaults Defaults) (*model.ExceptionRecord, error) {
	loc := defaults.Location
	if loc == nil {
		loc = time.UTC
	}

	rec := &model.ExceptionRecord{Active: true}
	if existing != nil {
		rec.ID = existing.ID
		rec.Note = existing.Note
		rec.Active = existing.Active
		rec.CreatedAt = existing.CreatedAt
	}

	rec.Scope = resolveScope(p.Scope, existing, defaults)
	rec.Type = resolveType(p.Type, existing, defaults)

	startAt, err := resolveDateTime(p.StartAt, existingStart(existing), "start_at", loc)
	if err != nil {
		return nil, err
	}
	endAt, err := resolveDateTime(p.EndAt, existingEnd(existing), "end_at", loc)
	if err != nil {
		return nil, err
	}
	if !endAt.After(startAt) {
		return nil, invalidf("end_at", "must be after start_at (%s is not after %s)",
			endAt.Format(time.RFC3339), startAt.Format(time.RFC3339))
	}
	rec.StartAt = startAt
	rec.EndAt = endAt

	if err := resolveTargets(rec, p, existing); err != nil {
		return nil, err
	}

	if p.Note != nil {
		rec.Note = *p.Note
	}
	if p.Active != nil {
		rec.Active = *p.Active
	}

	if p.Recurrence != nil {
		recur, err := normalizeRecurrence(*p.Recurrence)
		if err != nil {
			return nil, err
		}
		rec.Recurrence = recur
	} else if existing != nil && existing.Recurrence != nil {
		copied := *existing.Recurrence
		rec.Recurrence = &copied
	}

	override, err := normalizeOverride(rec.Type, p.CapacityOverride, existing, defaults)
	if err != nil {
		return nil, err
	}
	rec.CapacityOverride = override

	rec.Priority = Priority(rec.Scope, rec.Type)
	return rec, nil
}

func resolveScope(raw *string, existing *model.ExceptionRecord, defaults Defaults) model.Scope {
	if raw != nil {
		if s := model.Scope(strings.ToLower(strings.TrimSpace(*raw))); s.Valid() {
			return s
		}
		return model.ScopeRestaurant
	}
	if existing != nil && existing.Scope.Valid() {
		return existing.Scope
	}
	if defaults.Scope.Valid() {
		return defaults.Scope
	}
	return model.ScopeRestaurant
}

func resolveType(raw *string, existing *model.ExceptionRecord, defaults Defaults) model.Type {
	if raw != nil {
		if t := model.Type(strings.ToLower(strings.TrimSpace(*raw))); t.Valid() {
			return t
		}
		return model.TypeFull
	}
	if existing != nil && existing.Type.Valid() {
		return existing.Type
	}
	if defaults.Type.Valid() {
		return defaults.Type
	}
	return model.TypeFull
}

func existingStart(existing *model.ExceptionRecord) time.Time {
	if existing == nil {
		return time.Time{}
	}
	return existing.StartAt
}

func existingEnd(existing *model.ExceptionRecord) time.Time {
	if existing == nil {
		return time.Time{}
	}
	return existing.EndAt
}

func resolveDateTime(raw *string, fallback time.Time, field string, loc *time.Location) (time.Time, error) {
	if raw == nil {
		if fallback.IsZero() {
			return time.Time{}, invalidf(field, "is required")
		}
		return fallback, nil
	}
	t, err := parseDateTime(strings.TrimSpace(*raw), loc)
	if err != nil {
		return time.Time{}, invalidf(field, "%v", err)
	}
	return t, nil
}

// Layouts carrying an explicit UTC offset; such literals are absolute
// instants and must not be reinterpreted in the facility timezone.
var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q; expected ISO-8601", s)
}

func resolveTargets(rec *model.ExceptionRecord, p Payload, existing *model.ExceptionRecord) error {
	rec.RoomID = resolveID(p.RoomID, existing, func(e *model.ExceptionRecord) int64 { return e.RoomID })
	rec.TableID = resolveID(p.TableID, existing, func(e *model.ExceptionRecord) int64 { return e.TableID })

	if rec.Scope == model.ScopeRoom || rec.Scope == model.ScopeTable {
		if rec.RoomID <= 0 {
			return invalidf("room_id", "is required and must be positive for scope %q", rec.Scope)
		}
	}
	if rec.Scope == model.ScopeTable && rec.TableID <= 0 {
		return invalidf("table_id", "is required and must be positive for scope %q", rec.Scope)
	}
	return nil
}

func resolveID(raw *int64, existing *model.ExceptionRecord, get func(*model.ExceptionRecord) int64) int64 {
	if raw != nil {
		return *raw
	}
	if existing != nil {
		return get(existing)
	}
	return 0
}

func normalizeRecurrence(p RecurrencePayload) (*model.Recurrence, error) {
	kind := model.RecurrenceKind(strings.ToLower(strings.TrimSpace(p.Type)))
	if !kind.Valid() {
		return nil, invalidf("recurrence.type", "unsupported kind %q; expected daily, weekly or monthly", p.Type)
	}

	out := &model.Recurrence{Kind: kind}

	if p.From != "" {
		d, err := parseDateBound(p.From, "recurrence.from")
		if err != nil {
			return nil, err
		}
		out.From = d
	}
	if p.Until != "" {
		d, err := parseDateBound(p.Until, "recurrence.until")
		if err != nil {
			return nil, err
		}
		out.Until = d
	}

	switch kind {
	case model.RecurWeekly:
		if len(p.Days) == 0 {
			return nil, invalidf("recurrence.days", "weekly recurrence requires at least one weekday")
		}
		days, err := normalizeWeekdays(p.Days)
		if err != nil {
			return nil, err
		}
		out.Weekdays = days
	case model.RecurMonthly:
		if len(p.MonthDays) == 0 && p.WeekOfMonth == "" {
			return nil, invalidf("recurrence", "monthly recurrence requires month_days or week_of_month")
		}
		if len(p.MonthDays) > 0 {
			days, err := normalizeMonthDays(p.MonthDays)
			if err != nil {
				return nil, err
			}
			out.MonthDays = days
		} else {
			ordinal := model.WeekOrdinal(strings.ToLower(strings.TrimSpace(p.WeekOfMonth)))
			if !ordinal.Valid() {
				return nil, invalidf("recurrence.week_of_month", "unknown ordinal %q; expected first, second, third, fourth or last", p.WeekOfMonth)
			}
			out.WeekOfMonth = ordinal
		}
	}
	return out, nil
}

func parseDateBound(s, field string) (model.Date, error) {
	if !dateBoundPattern.MatchString(s) {
		return model.Date{}, invalidf(field, "invalid date %q; expected YYYY-MM-DD", s)
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, invalidf(field, "%v", err)
	}
	return d, nil
}

func normalizeWeekdays(tokens []WeekdayToken) ([]int, error) {
	seen := make(map[int]bool, len(tokens))
	for _, tok := range tokens {
		raw := strings.ToLower(strings.TrimSpace(string(tok)))
		iso, ok := weekdayNames[raw]
		if !ok {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 7 {
				return nil, invalidf("recurrence.days", "unknown weekday %q", string(tok))
			}
			iso = n
		}
		seen[iso] = true
	}
	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}

func normalizeMonthDays(raw []int) ([]int, error) {
	seen := make(map[int]bool, len(raw))
	for _, d := range raw {
		if d < 1 || d > 31 {
			return nil, invalidf("recurrence.month_days", "day of month %d out of range 1-31", d)
		}
		seen[d] = true
	}
	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}

func normalizeOverride(typ model.Type, p *OverridePayload, existing *model.ExceptionRecord, defaults Defaults) (model.CapacityOverride, error) {
	var prior model.CapacityOverride
	if existing != nil {
		prior = existing.CapacityOverride
	}

	switch typ {
	case model.TypeCapacityReduction:
		return buildReduction(p, prior, defaults), nil
	case model.TypeSpecialHours:
		return buildSpecialHours(p, prior, defaults), nil
	case model.TypeSpecialOpening:
		return buildSpecialOpening(p, prior)
	}
	// Full closures carry no override of their own; keep whatever the
	// record already had.
	return prior, nil
}

func buildReduction(p *OverridePayload, prior model.CapacityOverride, defaults Defaults) model.CapacityReduction {
	out := model.CapacityReduction{Percent: clampPercent(defaults.ReductionPercent)}
	if existing, ok := prior.(model.CapacityReduction); ok {
		out = existing
	}
	if p != nil {
		if p.Percent != nil {
			out.Percent = *p.Percent
		}
		if p.UnassignedCapacity != nil {
			out.UnassignedCapacity = *p.UnassignedCapacity
		}
	}
	out.Percent = clampPercent(out.Percent)
	if out.UnassignedCapacity < 0 {
		out.UnassignedCapacity = 0
	}
	return out
}

func buildSpecialHours(p *OverridePayload, prior model.CapacityOverride, defaults Defaults) model.SpecialHours {
	out := model.SpecialHours{Percent: clampPercent(defaults.ReductionPercent)}
	if existing, ok := prior.(model.SpecialHours); ok {
		out = existing
	}
	if p != nil {
		if p.Label != nil {
			out.Label = *p.Label
		}
		if p.Percent != nil {
			out.Percent = *p.Percent
		}
		if p.Slots != nil {
			out.Slots = filterSlots(*p.Slots)
		}
	}
	out.Percent = clampPercent(out.Percent)
	return out
}

func buildSpecialOpening(p *OverridePayload, prior model.CapacityOverride) (model.SpecialOpening, error) {
	out := model.SpecialOpening{Capacity: 1}
	if existing, ok := prior.(model.SpecialOpening); ok {
		out = existing
	}
	if p != nil {
		if p.Label != nil {
			out.Label = *p.Label
		}
		if p.MealKey != nil {
			out.MealKey = *p.MealKey
		}
		if p.Capacity != nil {
			if *p.Capacity < 1 {
				return out, invalidf("capacity_override.capacity", "must be at least 1, got %d", *p.Capacity)
			}
			out.Capacity = *p.Capacity
		}
		if p.Slots != nil {
			out.Slots = filterSlots(*p.Slots)
		}
	}
	if out.MealKey == "" && out.Label != "" {
		out.MealKey = mealKeyFor(out.Label)
	}
	return out, nil
}

func filterSlots(raw []SlotPayload) []model.SlotWindow {
	slots := make([]model.SlotWindow, 0, len(raw))
	for _, s := range raw {
		start := strings.TrimSpace(s.Start)
		end := strings.TrimSpace(s.End)
		if start == "" || end == "" {
			continue
		}
		slots = append(slots, model.SlotWindow{Start: start, End: end, Label: strings.TrimSpace(s.Label)})
	}
	return slots
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// mealKeyFor derives a stable meal key from a label: a slug plus a short
// digest so re-normalizing the same payload yields the same key.
func mealKeyFor(label string) string {
	slug := slugify(label)
	h := fnv.New32a()
	h.Write([]byte(label))
	if slug == "" {
		return fmt.Sprintf("opening-%08x", h.Sum32())
	}
	return fmt.Sprintf("%s-%08x", slug, h.Sum32())
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
