package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/closures"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

func TestWritePreview(t *testing.T) {
	start := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	preview := &closures.Preview{
		Range: closures.DateRange{
			Start: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		},
		Events: []closures.Event{
			{
				RecordID: 1,
				Scope:    model.ScopeRestaurant,
				Type:     model.TypeFull,
				Start:    start,
				End:      start.Add(5 * time.Hour),
				Priority: 330,
				Active:   true,
				Note:     "deep cleaning",
			},
			{
				RecordID:         2,
				Scope:            model.ScopeRoom,
				Type:             model.TypeCapacityReduction,
				Start:            start.AddDate(0, 0, 1),
				End:              start.AddDate(0, 0, 1).Add(3 * time.Hour),
				Priority:         210,
				Active:           true,
				CapacityOverride: model.CapacityReduction{Percent: 40},
			},
		},
		Summary: closures.Summary{
			TotalEvents:       2,
			BlockedHours:      5,
			CapacityReduction: closures.ReductionStats{Count: 1, Min: 40, Max: 40},
			ImpactedScopes:    map[model.Scope]int{model.ScopeRestaurant: 1, model.ScopeRoom: 1},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePreview(preview, &buf))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	header, err := file.GetCellValue("Events", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)

	note, err := file.GetCellValue("Events", "H2")
	require.NoError(t, err)
	assert.Equal(t, "deep cleaning", note)

	mode, err := file.GetCellValue("Events", "I3")
	require.NoError(t, err)
	assert.Equal(t, model.ModeCapacityReduction, mode)

	total, err := file.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
}
