package closures

import (
	"time"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

// Expand produces the concrete occurrences of one record within the
// inclusive range [rangeStart, rangeEnd]. The caller guarantees
// rangeStart <= rangeEnd. The record is read-only and results are
// computed fresh on every call.
func Expand(rec *model.ExceptionRecord, rangeStart, rangeEnd time.Time) []model.Occurrence {
	if !rec.Recurring() {
		if rec.EndAt.Before(rangeStart) || rec.StartAt.After(rangeEnd) {
			return nil
		}
		return []model.Occurrence{clip(rec.StartAt, rec.EndAt, rangeStart, rangeEnd)}
	}

	loc := rec.StartAt.Location()
	// Walk calendar days, not fixed 24h steps, so 23/25-hour DST days
	// still get exactly one match attempt each.
	day := startOfDay(rangeStart.In(loc))
	last := startOfDay(rangeEnd.In(loc))

	anchor := rec.StartAt.Weekday()
	sh, sm, ss := rec.StartAt.Clock()
	eh, em, es := rec.EndAt.Clock()

	var occurrences []model.Occurrence
	for ; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !Matches(rec.Recurrence, day, anchor) {
			continue
		}

		y, m, d := day.Date()
		start := time.Date(y, m, d, sh, sm, ss, 0, loc)
		end := time.Date(y, m, d, eh, em, es, 0, loc)
		if !end.After(start) {
			// Overnight span: the closing time falls on the next day.
			end = end.AddDate(0, 0, 1)
		}

		if end.Before(rangeStart) || start.After(rangeEnd) {
			continue
		}
		occurrences = append(occurrences, clip(start, end, rangeStart, rangeEnd))
	}
	return occurrences
}

// Matches reports whether a recurrence rule applies on the given
// calendar day. The anchor weekday comes from the record's own start
// time and only matters for week-of-month rules. Malformed rules never
// match; corrupted historical data must degrade to "no occurrence"
// rather than break the preview pipeline.
func Matches(r *model.Recurrence, day time.Time, anchor time.Weekday) bool {
	if r == nil {
		return false
	}

	key := model.DateOf(day).Key()
	if !r.From.IsZero() && key < r.From.Key() {
		return false
	}
	if !r.Until.IsZero() && key > r.Until.Key() {
		return false
	}

	switch r.Kind {
	case model.RecurDaily:
		return true
	case model.RecurWeekly:
		return containsInt(r.Weekdays, isoWeekday(day.Weekday()))
	case model.RecurMonthly:
		if len(r.MonthDays) > 0 {
			return containsInt(r.MonthDays, day.Day())
		}
		if r.WeekOfMonth.Valid() {
			return matchesWeekOfMonth(r.WeekOfMonth, day, anchor)
		}
	}
	return false
}

func matchesWeekOfMonth(ordinal model.WeekOrdinal, day time.Time, anchor time.Weekday) bool {
	if day.Weekday() != anchor {
		return false
	}
	if ordinal == model.WeekLast {
		// Last occurrence iff a week later lands in the next month.
		return day.AddDate(0, 0, 7).Month() != day.Month()
	}
	nth := (day.Day()-1)/7 + 1
	return nth == ordinal.Index()
}

// isoWeekday converts Go's Sunday-based weekday to ISO 1-7.
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func clip(start, end, rangeStart, rangeEnd time.Time) model.Occurrence {
	if start.Before(rangeStart) {
		start = rangeStart
	}
	if end.After(rangeEnd) {
		end = rangeEnd
	}
	return model.Occurrence{Start: start, End: end}
}
