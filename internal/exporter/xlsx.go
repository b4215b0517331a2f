package exporter

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"attendancereport/internal/summary"
)

// SheetName is the worksheet the XLSX export writes to.
const SheetName = "Summary"

// WriteXLSX writes rows as a single-sheet workbook. Counts are numeric
// cells; the discount is rounded to one decimal.
func WriteXLSX(w io.Writer, rows []summary.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			r.Name,
			deref(r.Document),
			r.Presences,
			r.Lateness,
			r.Absences,
			math.Round(r.Discount*10) / 10,
			deref(r.LastMark),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
