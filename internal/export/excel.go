package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/closures"
	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

var eventColumns = []string{
	"ID", "Scope", "Type", "Start", "End", "Priority", "Active", "Note", "Override", "Percent", "Capacity",
}

// WritePreview renders a generated preview as an xlsx workbook with an
// events sheet and a summary sheet.
func WritePreview(preview *closures.Preview, w io.Writer) error {
	file := excelize.NewFile()
	defer file.Close()

	file.SetSheetName("Sheet1", "Events")
	if err := writeEvents(file, preview.Events); err != nil {
		return err
	}
	if _, err := file.NewSheet("Summary"); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(file, preview); err != nil {
		return err
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeEvents(file *excelize.File, events []closures.Event) error {
	for i, col := range eventColumns {
		if err := setCell(file, "Events", i+1, 1, col); err != nil {
			return err
		}
	}

	for row, ev := range events {
		override, percent, capacity := overrideCells(ev.CapacityOverride)
		values := []any{
			ev.RecordID,
			string(ev.Scope),
			string(ev.Type),
			ev.Start.Format(time.RFC3339),
			ev.End.Format(time.RFC3339),
			ev.Priority,
			ev.Active,
			ev.Note,
			override,
			percent,
			capacity,
		}
		for i, v := range values {
			if err := setCell(file, "Events", i+1, row+2, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeSummary(file *excelize.File, preview *closures.Preview) error {
	rows := [][2]any{
		{"Range start", preview.Range.Start.Format(time.RFC3339)},
		{"Range end", preview.Range.End.Format(time.RFC3339)},
		{"Total events", preview.Summary.TotalEvents},
		{"Blocked hours", preview.Summary.BlockedHours},
		{"Capacity reductions", preview.Summary.CapacityReduction.Count},
		{"Reduction min %", preview.Summary.CapacityReduction.Min},
		{"Reduction max %", preview.Summary.CapacityReduction.Max},
		{"Special hours events", preview.Summary.SpecialHours},
	}
	for _, scope := range []model.Scope{model.ScopeRestaurant, model.ScopeRoom, model.ScopeTable} {
		if count, ok := preview.Summary.ImpactedScopes[scope]; ok {
			rows = append(rows, [2]any{fmt.Sprintf("Impacted: %s", scope), count})
		}
	}

	for i, row := range rows {
		if err := setCell(file, "Summary", 1, i+1, row[0]); err != nil {
			return err
		}
		if err := setCell(file, "Summary", 2, i+1, row[1]); err != nil {
			return err
		}
	}
	return nil
}

func overrideCells(o model.CapacityOverride) (mode string, percent any, capacity any) {
	if o == nil {
		return "", nil, nil
	}
	mode = o.Mode()
	if p, ok := model.ReductionPercent(o); ok {
		percent = p
	}
	if opening, ok := o.(model.SpecialOpening); ok {
		capacity = opening.Capacity
	}
	return mode, percent, capacity
}

func setCell(file *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := file.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
	}
	return nil
}
