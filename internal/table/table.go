// =============================================================================
// Campaign Reconciler - Tabular Data Model
// =============================================================================
//
// Table is the ordered, column-named structure every reconciliation step
// reads and produces. Columns keep their insertion order and cells are
// nullable, so a left join can leave unmatched cells empty instead of
// inventing zeroes.
//
// =============================================================================

package table

import (
	"fmt"
	"sort"
	"strings"
)

// keySeparator joins key parts. It cannot appear in CSV or XLSX text cells
// produced by the upstream platforms.
const keySeparator = "\x1f"

// Table is an ordered collection of rows sharing a column list.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates an empty table with the given columns. Repeated names are
// ignored.
func New(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// FromRecords builds a table from a header and string records. Blank cells
// become Null. Rows shorter than the header are padded and longer rows are
// truncated. Header names are trimmed with inner whitespace runs collapsed
// to one space. A name that is already taken gets the first free ".N"
// suffix, so every header cell keeps its own column.
func FromRecords(header []string, records [][]string) *Table {
	t := &Table{index: make(map[string]int, len(header))}
	suffix := make(map[string]int, len(header))
	for _, h := range header {
		base := strings.Join(strings.Fields(h), " ")
		name := base
		for t.HasColumn(name) {
			suffix[base]++
			name = fmt.Sprintf("%s.%d", base, suffix[base])
		}
		t.AddColumn(name)
	}

	t.rows = make([][]Value, 0, len(records))
	for _, rec := range records {
		row := make([]Value, len(t.columns))
		for i := range row {
			if i < len(rec) {
				row[i] = Text(strings.TrimSpace(rec[i]))
			}
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// MissingColumns returns the names that are not columns of t, in order.
func (t *Table) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// AddColumn appends a Null-filled column and returns its position. Adding an
// existing column returns the existing position.
func (t *Table) AddColumn(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.columns = append(t.columns, name)
	pos := len(t.columns) - 1
	t.index[name] = pos
	for r := range t.rows {
		t.rows[r] = append(t.rows[r], Null())
	}
	return pos
}

// AppendRow adds a row. Missing trailing values are Null.
func (t *Table) AppendRow(values ...Value) {
	row := make([]Value, len(t.columns))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Get returns a cell. Unknown columns read as Null.
func (t *Table) Get(row int, column string) Value {
	i, ok := t.index[column]
	if !ok {
		return Null()
	}
	return t.rows[row][i]
}

// Set writes a cell, adding the column when it does not exist yet.
func (t *Table) Set(row int, column string, v Value) {
	i := t.AddColumn(column)
	t.rows[row][i] = v
}

// Row returns a copy of the row cells in column order.
func (t *Table) Row(row int) []Value {
	out := make([]Value, len(t.columns))
	copy(out, t.rows[row])
	return out
}

// Column returns the cells of a column. Unknown columns yield nil.
func (t *Table) Column(name string) []Value {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return t.Select(t.allIndices())
}

// Select returns a new table holding the given rows in the given order.
func (t *Table) Select(indices []int) *Table {
	out := New(t.columns...)
	out.rows = make([][]Value, 0, len(indices))
	for _, i := range indices {
		out.AppendRow(t.rows[i]...)
	}
	return out
}

// Key returns a comparable tuple key for the row over the given columns.
func (t *Table) Key(row int, columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = t.Get(row, c).String()
	}
	return strings.Join(parts, keySeparator)
}

// SplitKey undoes Key, for messages.
func SplitKey(key string) []string {
	return strings.Split(key, keySeparator)
}

// SortStable orders rows by the given columns, keeping the input order of
// ties. Nulls sort last and columns the table does not have are skipped.
func (t *Table) SortStable(columns ...string) {
	var present []int
	for _, c := range columns {
		if i, ok := t.index[c]; ok {
			present = append(present, i)
		}
	}
	if len(present) == 0 {
		return
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		for _, i := range present {
			if c := compare(t.rows[a][i], t.rows[b][i]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// Distinct returns a table without exact duplicate rows. The first
// occurrence of each row is kept.
func (t *Table) Distinct() *Table {
	seen := make(map[string]bool, len(t.rows))
	var keep []int
	for r := range t.rows {
		k := t.Key(r, t.columns)
		// kinds matter: Text "1" and Number 1 are different rows
		for _, v := range t.rows[r] {
			k += keySeparator + fmt.Sprint(int(v.kind))
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		keep = append(keep, r)
	}
	return t.Select(keep)
}

// Records renders the table as a header record followed by one record per
// row.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Columns())
	for _, row := range t.rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = v.String()
		}
		out = append(out, rec)
	}
	return out
}

func (t *Table) allIndices() []int {
	out := make([]int, len(t.rows))
	for i := range out {
		out[i] = i
	}
	return out
}

// compare orders two cells: numbers numerically, everything else by text,
// nulls after any value.
func compare(a, b Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return 1
	case b.IsNull():
		return -1
	}
	if a.kind == KindNumber && b.kind == KindNumber {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}
	return strings.Compare(a.String(), b.String())
}
