// =============================================================================
// Campaign Reconciler - CSV Reader
// =============================================================================
//
// This module reads the CSV exports the reconciler consumes:
//   - the served report, whose preamble and footer are handled by the served
//     package, so it is read as raw records
//   - media plans, read as raw records and classified by the plan package
//   - programmatic spend exports saved as CSV, read as a table
//
// FEATURES:
//   - Configurable delimiter
//   - Multi-line headers merged into one header per column
//   - Configurable data start row
//   - UTF-8 (with or without BOM), UTF-16 and single-byte Windows encodings
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/internal/table"
)

// byteOrderMark is stripped from the first cell when a UTF-8 file carries one.
const byteOrderMark = "\ufeff"

// =============================================================================
// RAW RECORD READING
// =============================================================================

// ReadFile reads every record of a CSV file.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter and encoding settings.
//
// RETURNS:
//   - All records, including header and preamble rows.
//   - An error if the file cannot be opened or decoded.
func ReadFile(filePath string, settings config.CSVSettings) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	records, err := Read(file, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return records, nil
}

// Read reads every record from r.
func Read(r io.Reader, settings config.CSVSettings) ([][]string, error) {
	decoded, err := decode(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(bufio.NewReader(decoded))
	configureReader(csvReader, settings)

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], byteOrderMark)
	}
	return records, nil
}

// decode wraps r in a decoder for the configured encoding.
func decode(r io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return r, nil
	case "UTF-16", "UTF16":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		enc = charmap.ISO8859_1
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Ad platform exports have preamble and footer rows of varying width.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// =============================================================================
// TABULAR READING
// =============================================================================

// ReadTable reads a CSV file whose header starts on the first row.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings. HeaderRows header lines are merged and data
//     is read from DataStartRow.
//
// RETURNS:
//   - The file as a table. Empty rows are skipped.
//   - An error if the file cannot be read or has no header.
func ReadTable(filePath string, settings config.CSVSettings) (*table.Table, error) {
	records, err := ReadFile(filePath, settings)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: CSV file is empty", filePath)
	}
	return RecordsToTable(records, settings)
}

// RecordsToTable converts raw records to a table using the header settings.
func RecordsToTable(records [][]string, settings config.CSVSettings) (*table.Table, error) {
	headers, err := extractHeaders(records, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	start := settings.DataStartRow - 1
	if start < settings.HeaderRows {
		start = settings.HeaderRows
	}

	var body [][]string
	for i := start; i < len(records); i++ {
		if IsRowEmpty(records[i]) {
			continue
		}
		body = append(body, records[i])
	}
	return table.FromRecords(headers, body), nil
}

// extractHeaders extracts and merges header rows.
//
// MULTI-LINE HEADER HANDLING:
//   Some exports split a header across rows. Non-empty parts of each column
//   are joined with a space.
//
//   Example:
//   Row 1: "Media", "", "Placement", ""
//   Row 2: "Cost", "Spend", "ID", "Name"
//   Result: "Media Cost", "Spend", "Placement ID", "Name"
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	if settings.HeaderRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}

	if len(allRows) < settings.HeaderRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if settings.HeaderRows == 1 {
		return cleanHeaders(allRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < settings.HeaderRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < settings.HeaderRows; row++ {
			if col < len(allRows[row]) {
				value := strings.TrimSpace(allRows[row][col])
				if value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers), nil
}

// cleanHeaders trims header values, collapses inner whitespace runs to one
// space and names empty headers by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.Join(strings.Fields(header), " ")
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// IsRowEmpty checks if a row contains only empty values.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
