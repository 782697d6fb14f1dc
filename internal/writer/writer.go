// =============================================================================
// Campaign Reconciler - Report Writer
// =============================================================================
//
// Writes the reconciled table as CSV or as a single-sheet XLSX workbook.
// Numbers are written as numeric cells in XLSX so that downstream pivot
// tables and formulas work without conversion; Null cells stay empty.
//
// =============================================================================

package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/campaign-reconciler/internal/table"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// DefaultSheet is the sheet name used when none is configured.
const DefaultSheet = "Raw Data"

// Options selects the output format.
type Options struct {
	// Format is FormatCSV or FormatXLSX.
	// Default: FormatXLSX
	Format string

	// Sheet names the XLSX worksheet.
	// Default: DefaultSheet
	Sheet string
}

// Extension returns the file extension for the format, with a leading dot.
func (o Options) Extension() string {
	if strings.EqualFold(o.Format, FormatCSV) {
		return ".csv"
	}
	return ".xlsx"
}

// Write saves t to path in the configured format.
func Write(path string, t *table.Table, opts Options) error {
	switch strings.ToLower(opts.Format) {
	case FormatCSV:
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if err := WriteCSV(file, t); err != nil {
			file.Close()
			return err
		}
		return file.Close()

	case FormatXLSX, "":
		sheet := opts.Sheet
		if sheet == "" {
			sheet = DefaultSheet
		}
		return WriteXLSX(path, sheet, t)

	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

// WriteCSV writes a header record followed by one record per row.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteXLSX writes t to a new workbook holding a single sheet.
func WriteXLSX(path, sheet string, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}

	header := make([]interface{}, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r := 0; r < t.Len(); r++ {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		row := cells(t.Row(r))
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func cells(values []table.Value) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		switch v.Kind() {
		case table.KindNumber:
			f, _ := v.Float()
			out[i] = f
		case table.KindText:
			out[i] = v.String()
		default:
			out[i] = nil
		}
	}
	return out
}
