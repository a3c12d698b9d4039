package closures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }
func boolPtr(b bool) *bool    { return &b }

func testDefaults(t *testing.T) Defaults {
	t.Helper()
	return Defaults{Location: rome(t), ReductionPercent: 50}
}

func TestNormalizeCreate(t *testing.T) {
	defaults := testDefaults(t)

	rec, err := Normalize(Payload{
		Scope:   strPtr("restaurant"),
		Type:    strPtr("full"),
		StartAt: strPtr("2025-03-10T00:00:00"),
		EndAt:   strPtr("2025-03-10T23:59:00"),
		Note:    strPtr("deep cleaning"),
	}, nil, defaults)
	require.NoError(t, err)

	assert.Equal(t, model.ScopeRestaurant, rec.Scope)
	assert.Equal(t, model.TypeFull, rec.Type)
	assert.Equal(t, "deep cleaning", rec.Note)
	assert.True(t, rec.Active, "active defaults to true")
	assert.Equal(t, 330, rec.Priority)
	assert.Equal(t, "Europe/Rome", rec.StartAt.Location().String())
}

func TestNormalizeScopeAndTypeFallbacks(t *testing.T) {
	defaults := testDefaults(t)
	base := Payload{
		StartAt: strPtr("2025-03-10T10:00:00"),
		EndAt:   strPtr("2025-03-10T12:00:00"),
	}

	tests := []struct {
		name          string
		scope         *string
		typ           *string
		expectedScope model.Scope
		expectedType  model.Type
	}{
		{"missing both", nil, nil, model.ScopeRestaurant, model.TypeFull},
		{"unknown scope falls back to restaurant", strPtr("wing"), strPtr("full"), model.ScopeRestaurant, model.TypeFull},
		{"unknown type falls back to full", strPtr("restaurant"), strPtr("partial"), model.ScopeRestaurant, model.TypeFull},
		{"case and whitespace tolerated", strPtr(" Restaurant "), strPtr("SPECIAL_HOURS"), model.ScopeRestaurant, model.TypeSpecialHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.Scope = tt.scope
			p.Type = tt.typ
			rec, err := Normalize(p, nil, defaults)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedScope, rec.Scope)
			assert.Equal(t, tt.expectedType, rec.Type)
		})
	}
}

func TestNormalizeDateParsing(t *testing.T) {
	defaults := testDefaults(t)

	t.Run("offset literal stays an absolute instant", func(t *testing.T) {
		rec, err := Normalize(Payload{
			StartAt: strPtr("2025-03-10T12:00:00+05:00"),
			EndAt:   strPtr("2025-03-10T14:00:00+05:00"),
		}, nil, defaults)
		require.NoError(t, err)
		// +05:00 must not be reinterpreted as facility time.
		assert.True(t, rec.StartAt.Equal(time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)))
	})

	t.Run("no offset means facility timezone", func(t *testing.T) {
		rec, err := Normalize(Payload{
			StartAt: strPtr("2025-03-10T12:00:00"),
			EndAt:   strPtr("2025-03-10T14:00:00"),
		}, nil, defaults)
		require.NoError(t, err)
		assert.True(t, rec.StartAt.Equal(time.Date(2025, time.March, 10, 12, 0, 0, 0, rome(t))))
	})

	t.Run("garbage literal rejected", func(t *testing.T) {
		_, err := Normalize(Payload{
			StartAt: strPtr("next tuesday"),
			EndAt:   strPtr("2025-03-10T14:00:00"),
		}, nil, defaults)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "start_at", verr.Field)
	})

	t.Run("end not after start rejected", func(t *testing.T) {
		_, err := Normalize(Payload{
			StartAt: strPtr("2025-03-10T14:00:00"),
			EndAt:   strPtr("2025-03-10T14:00:00"),
		}, nil, defaults)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "end_at", verr.Field)
		assert.Contains(t, verr.Reason, "after start_at")
	})

	t.Run("missing dates on create rejected", func(t *testing.T) {
		_, err := Normalize(Payload{}, nil, defaults)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "start_at", verr.Field)
	})
}

func TestNormalizeTargets(t *testing.T) {
	defaults := testDefaults(t)
	base := Payload{
		StartAt: strPtr("2025-03-10T10:00:00"),
		EndAt:   strPtr("2025-03-10T12:00:00"),
	}

	tests := []struct {
		name    string
		scope   string
		roomID  *int64
		tableID *int64
		wantErr string
	}{
		{"restaurant needs no ids", "restaurant", nil, nil, ""},
		{"room scope requires room id", "room", nil, nil, "room_id"},
		{"room scope rejects non-positive room id", "room", int64Ptr(0), nil, "room_id"},
		{"room scope with room id ok", "room", int64Ptr(4), nil, ""},
		{"table scope requires table id", "table", int64Ptr(4), nil, "table_id"},
		{"table scope requires room id too", "table", nil, int64Ptr(12), "room_id"},
		{"table scope with both ids ok", "table", int64Ptr(4), int64Ptr(12), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.Scope = strPtr(tt.scope)
			p.RoomID = tt.roomID
			p.TableID = tt.tableID
			rec, err := Normalize(p, nil, defaults)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Field)
			assert.Nil(t, rec)
		})
	}
}

func TestNormalizePartialUpdate(t *testing.T) {
	defaults := testDefaults(t)
	existing, err := Normalize(Payload{
		Scope:   strPtr("room"),
		Type:    strPtr("capacity_reduction"),
		StartAt: strPtr("2025-03-10T10:00:00"),
		EndAt:   strPtr("2025-03-10T18:00:00"),
		RoomID:  int64Ptr(2),
		Note:    strPtr("painting works"),
		Recurrence: &RecurrencePayload{
			Type: "weekly",
			Days: []WeekdayToken{"mon"},
		},
		CapacityOverride: &OverridePayload{Percent: intPtr(40)},
	}, nil, defaults)
	require.NoError(t, err)
	existing.ID = 7

	updated, err := Normalize(Payload{
		Note:   strPtr("painting works, phase 2"),
		Active: boolPtr(false),
	}, existing, defaults)
	require.NoError(t, err)

	assert.Equal(t, int64(7), updated.ID)
	assert.Equal(t, model.ScopeRoom, updated.Scope)
	assert.Equal(t, model.TypeCapacityReduction, updated.Type)
	assert.Equal(t, int64(2), updated.RoomID)
	assert.True(t, updated.StartAt.Equal(existing.StartAt))
	assert.True(t, updated.EndAt.Equal(existing.EndAt))
	assert.Equal(t, "painting works, phase 2", updated.Note)
	assert.False(t, updated.Active)

	// Absent recurrence retains the existing rule as a copy.
	require.NotNil(t, updated.Recurrence)
	assert.Equal(t, []int{1}, updated.Recurrence.Weekdays)
	assert.NotSame(t, existing.Recurrence, updated.Recurrence)

	override, ok := updated.CapacityOverride.(model.CapacityReduction)
	require.True(t, ok)
	assert.Equal(t, 40, override.Percent)

	// The prior record is untouched.
	assert.Equal(t, "painting works", existing.Note)
	assert.True(t, existing.Active)
}

func TestNormalizeRecurrence(t *testing.T) {
	defaults := testDefaults(t)
	base := Payload{
		StartAt: strPtr("2025-03-10T10:00:00"),
		EndAt:   strPtr("2025-03-10T12:00:00"),
	}

	t.Run("weekday tokens normalize to sorted ISO numbers", func(t *testing.T) {
		p := base
		p.Recurrence = &RecurrencePayload{
			Type: "weekly",
			Days: []WeekdayToken{"Sunday", "mon", "3", "wed"},
		}
		rec, err := Normalize(p, nil, defaults)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3, 7}, rec.Recurrence.Weekdays)
	})

	t.Run("unsupported kind rejected", func(t *testing.T) {
		p := base
		p.Recurrence = &RecurrencePayload{Type: "yearly"}
		_, err := Normalize(p, nil, defaults)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "recurrence.type", verr.Field)
	})

	t.Run("weekly without days rejected", func(t *testing.T) {
		p := base
		p.Recurrence = &RecurrencePayload{Type: "weekly"}
		_, err := Normalize(p, nil, defaults)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "recurrence.days", verr.Field)
	})

	t.Run("loose date bound rejected", func(t *testing.T) {
		p := base
		p.Recurrence = &RecurrencePayload{Type: "daily", From: "2025/03/01"}
		_, err := Normalize(p, nil, defaults)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "recurrence.from", verr.Field)
	})

	t.Run("monthly needs a selector", func(t *testing.T) {
		p := base
		p.Recurrence = &RecurrencePayload{Type: "monthly"}
		_, err := Normalize(p, nil, defaults)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("monthly day out of range rejected", func(t *testing.T) {
		p := base
		p.Recurrence = &RecurrencePayload{Type: "monthly", MonthDays: []int{15, 32}}
		_, err := Normalize(p, nil, defaults)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "recurrence.month_days", verr.Field)
	})

	t.Run("monthly week ordinal accepted", func(t *testing.T) {
		p := base
		p.Recurrence = &RecurrencePayload{Type: "monthly", WeekOfMonth: "last"}
		rec, err := Normalize(p, nil, defaults)
		require.NoError(t, err)
		assert.Equal(t, model.WeekLast, rec.Recurrence.WeekOfMonth)
	})
}

func TestNormalizeCapacityOverride(t *testing.T) {
	defaults := testDefaults(t)
	base := Payload{
		StartAt: strPtr("2025-03-10T10:00:00"),
		EndAt:   strPtr("2025-03-10T12:00:00"),
	}

	t.Run("reduction falls back to configured default percent", func(t *testing.T) {
		p := base
		p.Type = strPtr("capacity_reduction")
		rec, err := Normalize(p, nil, defaults)
		require.NoError(t, err)
		override, ok := rec.CapacityOverride.(model.CapacityReduction)
		require.True(t, ok)
		assert.Equal(t, 50, override.Percent)
	})

	t.Run("reduction percent and unassigned capacity are clamped", func(t *testing.T) {
		p := base
		p.Type = strPtr("capacity_reduction")
		p.CapacityOverride = &OverridePayload{Percent: intPtr(150), UnassignedCapacity: intPtr(-3)}
		rec, err := Normalize(p, nil, defaults)
		require.NoError(t, err)
		override := rec.CapacityOverride.(model.CapacityReduction)
		assert.Equal(t, 100, override.Percent)
		assert.Equal(t, 0, override.UnassignedCapacity)
	})

	t.Run("special hours drops slots missing start or end", func(t *testing.T) {
		slots := []SlotPayload{
			{Start: "12:00", End: "15:00", Label: "lunch"},
			{Start: "", End: "23:00"},
			{Start: "19:00", End: ""},
			{Start: "19:00", End: "23:00"},
		}
		p := base
		p.Type = strPtr("special_hours")
		p.CapacityOverride = &OverridePayload{Label: strPtr("holiday hours"), Slots: &slots}
		rec, err := Normalize(p, nil, defaults)
		require.NoError(t, err)
		override := rec.CapacityOverride.(model.SpecialHours)
		require.Len(t, override.Slots, 2)
		assert.Equal(t, "lunch", override.Slots[0].Label)
	})

	t.Run("special hours keeps existing slots when payload omits them", func(t *testing.T) {
		slots := []SlotPayload{{Start: "12:00", End: "15:00"}}
		p := base
		p.Type = strPtr("special_hours")
		p.CapacityOverride = &OverridePayload{Slots: &slots}
		existing, err := Normalize(p, nil, defaults)
		require.NoError(t, err)

		update := base
		update.CapacityOverride = &OverridePayload{Percent: intPtr(25)}
		rec, err := Normalize(update, existing, defaults)
		require.NoError(t, err)
		override := rec.CapacityOverride.(model.SpecialHours)
		require.Len(t, override.Slots, 1)
		assert.Equal(t, 25, override.Percent)
	})

	t.Run("special opening synthesizes a stable meal key from the label", func(t *testing.T) {
		p := base
		p.Type = strPtr("special_opening")
		p.CapacityOverride = &OverridePayload{Label: strPtr("New Year's Eve Dinner"), Capacity: intPtr(80)}

		first, err := Normalize(p, nil, defaults)
		require.NoError(t, err)
		second, err := Normalize(p, nil, defaults)
		require.NoError(t, err)

		a := first.CapacityOverride.(model.SpecialOpening)
		b := second.CapacityOverride.(model.SpecialOpening)
		assert.NotEmpty(t, a.MealKey)
		assert.Equal(t, a.MealKey, b.MealKey, "same label must yield the same key")
		assert.Contains(t, a.MealKey, "new-year-s-eve-dinner")
		assert.Equal(t, 80, a.Capacity)
	})

	t.Run("supplied meal key wins over synthesis", func(t *testing.T) {
		p := base
		p.Type = strPtr("special_opening")
		p.CapacityOverride = &OverridePayload{Label: strPtr("NYE"), MealKey: strPtr("nye-dinner")}
		rec, err := Normalize(p, nil, defaults)
		require.NoError(t, err)
		assert.Equal(t, "nye-dinner", rec.CapacityOverride.(model.SpecialOpening).MealKey)
	})

	t.Run("special opening rejects out-of-range capacity", func(t *testing.T) {
		for _, capacity := range []int{0, -5} {
			p := base
			p.Type = strPtr("special_opening")
			p.CapacityOverride = &OverridePayload{Label: strPtr("brunch"), Capacity: intPtr(capacity)}
			_, err := Normalize(p, nil, defaults)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "capacity_override.capacity", verr.Field)
		}
	})

	t.Run("special opening capacity defaults to one when omitted", func(t *testing.T) {
		p := base
		p.Type = strPtr("special_opening")
		p.CapacityOverride = &OverridePayload{Label: strPtr("brunch")}
		rec, err := Normalize(p, nil, defaults)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.CapacityOverride.(model.SpecialOpening).Capacity)
	})

	t.Run("full closure keeps the existing override untouched", func(t *testing.T) {
		p := base
		p.Type = strPtr("capacity_reduction")
		p.CapacityOverride = &OverridePayload{Percent: intPtr(30)}
		existing, err := Normalize(p, nil, defaults)
		require.NoError(t, err)

		update := base
		update.Type = strPtr("full")
		rec, err := Normalize(update, existing, defaults)
		require.NoError(t, err)
		assert.Equal(t, existing.CapacityOverride, rec.CapacityOverride)
	})
}
