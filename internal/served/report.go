// =============================================================================
// Campaign Reconciler - Served Report Loader
// =============================================================================
//
// The ad server exports its report as a CSV with a metadata preamble:
//
//   Report Name,Campaign Delivery
//   Date/Time Generated,"May 8, 2024 5:57:51 PM"
//   Date Range,3/1/2024 - 3/31/2024
//   ...
//   Report Fields
//   Site (DCM),Campaign,Placement,Impressions,Clicks,Media Cost
//   ...rows...
//   Grand Total:,,,1000,10,500
//
// Parse keeps the rows between the header and the footer and attaches the
// generation time and date range to the report rather than to each row.
//
// =============================================================================

package served

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/internal/csvparser"
	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// Preamble markers.
const (
	MarkerGenerated    = "Date/Time Generated"
	MarkerDateRange    = "Date Range"
	MarkerReportFields = "Report Fields"
)

// Report is a served report with its preamble metadata.
type Report struct {
	// Source is the file the report was read from.
	Source string

	// Table holds the body rows, footer removed.
	Table *table.Table

	// DateGenerated is when the report was run. Zero when the preamble has
	// no generation marker.
	DateGenerated time.Time

	// DateRange is the reporting period, start then end. Zero when the
	// preamble has no range marker.
	DateRange [2]time.Time
}

// PeriodEnd returns the last day of the reporting period.
func (r *Report) PeriodEnd() time.Time { return r.DateRange[1] }

// Load reads and parses a served report file.
func Load(path string, settings config.CSVSettings) (*Report, error) {
	records, err := csvparser.ReadFile(path, settings)
	if err != nil {
		return nil, err
	}

	report, err := Parse(records)
	if err != nil {
		if pe, ok := err.(*types.ParseError); ok {
			pe.Source = path
		}
		return nil, err
	}
	report.Source = path
	return report, nil
}

// Parse interprets the records of a served report export.
func Parse(records [][]string) (*Report, error) {
	report := &Report{}

	fieldsAt := -1
	for i, row := range records {
		if v, ok := markerValue(row, MarkerGenerated); ok {
			ts, err := ParseDate(v)
			if err != nil {
				return nil, &types.ParseError{Row: i + 1, Column: MarkerGenerated, Value: v, Message: "unreadable date", Err: err}
			}
			report.DateGenerated = ts
		}

		if v, ok := markerValue(row, MarkerDateRange); ok {
			rng, err := ParseDateRange(v)
			if err != nil {
				return nil, &types.ParseError{Row: i + 1, Column: MarkerDateRange, Value: v, Message: "unreadable date range", Err: err}
			}
			report.DateRange = rng
		}

		if hasCell(row, MarkerReportFields) {
			fieldsAt = i
			break
		}
	}

	if fieldsAt < 0 {
		return nil, &types.ParseError{Message: fmt.Sprintf("%q marker not found", MarkerReportFields)}
	}
	if fieldsAt+1 >= len(records) {
		return nil, &types.ParseError{Row: fieldsAt + 1, Message: "report has no header after the fields marker"}
	}

	header := records[fieldsAt+1]
	var body [][]string
	for _, row := range records[fieldsAt+2:] {
		if !csvparser.IsRowEmpty(row) {
			body = append(body, row)
		}
	}
	// the last row is the totals footer
	if len(body) > 0 {
		body = body[:len(body)-1]
	}

	report.Table = table.FromRecords(header, body)
	return report, nil
}

// ParseDate reads a natural-language date such as "May 8, 2024 5:57 PM" or
// "3/1/2024". Times without a zone are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	return dateparse.ParseIn(strings.TrimSpace(s), time.UTC)
}

// ParseDateRange reads "start - end". A bare hyphen is accepted when the
// dates themselves contain none.
func ParseDateRange(s string) ([2]time.Time, error) {
	parts := strings.Split(s, " - ")
	if len(parts) != 2 {
		parts = strings.Split(s, "-")
	}
	if len(parts) != 2 {
		return [2]time.Time{}, fmt.Errorf("expected two dates separated by a hyphen")
	}

	var out [2]time.Time
	for i, p := range parts {
		d, err := ParseDate(p)
		if err != nil {
			return [2]time.Time{}, err
		}
		out[i] = d
	}
	return out, nil
}

func markerValue(row []string, marker string) (string, bool) {
	for i, c := range row {
		if strings.TrimSpace(c) == marker {
			if i+1 < len(row) {
				return strings.TrimSpace(row[i+1]), true
			}
			return "", false
		}
	}
	return "", false
}

func hasCell(row []string, marker string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) == marker {
			return true
		}
	}
	return false
}
