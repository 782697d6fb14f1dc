package plan

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// Semantic plan columns, as produced by NormalizeHeader.
const (
	colRate           = "rate"
	colCost           = "cost"
	colUnits          = "units"
	colSupplier       = "supplier"
	colUnitDimensions = "unit_dimensions"
	colName           = "name"
	colCampaignName   = "campaign_name"
	colStartDate      = "start_date"
	colEndDate        = "end_date"
)

// RequiredColumns lists the normalized header names a plan must carry.
var RequiredColumns = []string{
	colRate, colCost, colUnits, colSupplier, colUnitDimensions,
	colName, colCampaignName, colStartDate, colEndDate,
}

var (
	nonLetters = regexp.MustCompile(`[^a-zA-Z\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizeHeader turns a plan header cell into its lookup name: letters
// only, whitespace runs replaced by one underscore, lower case.
// "Unit Dimensions" becomes "unit_dimensions" and "Cost ($)" becomes "cost".
func NormalizeHeader(h string) string {
	h = nonLetters.ReplaceAllString(h, "")
	h = whitespace.ReplaceAllString(strings.TrimSpace(h), "_")
	return strings.ToLower(h)
}

// RowClass is the classification of one plan row. A row may be both a
// placement row and a package-placement row.
type RowClass struct {
	// Placement rows carry rate, cost, units and supplier.
	Placement bool

	// PackagePlacement rows carry units, supplier and cost but no unit
	// dimensions.
	PackagePlacement bool
}

// RawPlan is a media plan as read from disk: string rows plus an explicit
// header lookup.
type RawPlan struct {
	// Source names the file the plan came from, for error messages.
	Source string

	columns   map[string]int
	rows      [][]string
	overrides map[int]RowClass
}

// NewRawPlan builds a plan from CSV records. The first record is the header.
func NewRawPlan(records [][]string) (*RawPlan, error) {
	if len(records) == 0 {
		return nil, &types.ParseError{Message: "plan has no header row"}
	}

	p := &RawPlan{
		columns: make(map[string]int, len(records[0])),
		rows:    records[1:],
	}
	for i, h := range records[0] {
		p.columns[NormalizeHeader(h)] = i
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := p.columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &types.ParseError{
			Row:     1,
			Column:  strings.Join(missing, ", "),
			Message: "required plan column missing",
		}
	}
	return p, nil
}

// Len returns the number of data rows.
func (p *RawPlan) Len() int { return len(p.rows) }

// ColumnIndex returns the position of a normalized column name.
func (p *RawPlan) ColumnIndex(name string) (int, bool) {
	i, ok := p.columns[name]
	return i, ok
}

// Cell returns the trimmed cell of a data row. Short rows read as empty.
func (p *RawPlan) Cell(row int, column string) string {
	i, ok := p.ColumnIndex(column)
	if !ok || i >= len(p.rows[row]) {
		return ""
	}
	return strings.TrimSpace(p.rows[row][i])
}

// Override fixes the classification of a row, for plans whose layout the
// cell predicates get wrong.
func (p *RawPlan) Override(row int, class RowClass) {
	if p.overrides == nil {
		p.overrides = make(map[int]RowClass)
	}
	p.overrides[row] = class
}

// Classify returns the row's classification.
func (p *RawPlan) Classify(row int) RowClass {
	if c, ok := p.overrides[row]; ok {
		return c
	}
	has := func(col string) bool { return p.Cell(row, col) != "" }
	return RowClass{
		Placement:        has(colRate) && has(colCost) && has(colUnits) && has(colSupplier),
		PackagePlacement: has(colUnits) && has(colSupplier) && has(colCost) && !has(colUnitDimensions),
	}
}

// isBlank reports whether every cell of the row is empty.
func (p *RawPlan) isBlank(row int) bool {
	for _, c := range p.rows[row] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// fileRow converts a data row index to the 1-indexed line in the file.
func fileRow(row int) int { return row + 2 }
