// =============================================================================
// Campaign Reconciler - Programmatic Merge
// =============================================================================
//
// Programmatic platforms report spend per placement in their own exports.
// Each export names its placement key column differently, so the key column
// is located by content:
//
//   join on Placement ID -> a column of nine-digit IDs
//   join on Placement    -> a column of vendor placement names
//
// Spend is summed per key across all exports (the ledger), copied onto the
// matching served rows, redistributed over those rows and finally written
// into the served cost column.
//
// =============================================================================

package merge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// DefaultPlacementNamePattern matches vendor placement names made of at
// least four underscore-separated parts.
var DefaultPlacementNamePattern = regexp.MustCompile(types.DefaultPlacementNamePattern)

// Source is one programmatic export.
type Source struct {
	// Name identifies the export in messages, usually its file path.
	Name  string
	Table *table.Table
}

// ProgrammaticOptions configures WithProgrammatic.
type ProgrammaticOptions struct {
	// JoinOn must include Placement ID or Placement.
	JoinOn []string

	// SpendColumn names the spend column in the exports and the column
	// written to the served report. Defaults to Spend.
	SpendColumn string

	// CostColumn is the served column replaced by matched spend. Defaults
	// to Media Cost.
	CostColumn string

	// WeightBy, when set, weights the spend split by a served column such
	// as Impressions.
	WeightBy string

	// NamePattern recognizes vendor placement names. Defaults to
	// DefaultPlacementNamePattern.
	NamePattern *regexp.Regexp

	// Strategies overrides the key strategies chosen from JoinOn.
	Strategies []KeyStrategy
}

// DefaultProgrammaticOptions joins on the vendor placement name.
func DefaultProgrammaticOptions() ProgrammaticOptions {
	return ProgrammaticOptions{JoinOn: []string{types.ColumnPlacement}}
}

func (o ProgrammaticOptions) withDefaults() ProgrammaticOptions {
	if o.SpendColumn == "" {
		o.SpendColumn = types.ColumnSpend
	}
	if o.CostColumn == "" {
		o.CostColumn = types.ColumnMediaCost
	}
	if o.NamePattern == nil {
		o.NamePattern = DefaultPlacementNamePattern
	}
	return o
}

// keyColumn returns the join column whose source name is found by content,
// and the strategies used to find it.
func (o ProgrammaticOptions) keyColumn() (string, []KeyStrategy, error) {
	var key string
	var strategies []KeyStrategy
	switch {
	case contains(o.JoinOn, types.ColumnPlacementID):
		key, strategies = types.ColumnPlacementID, []KeyStrategy{NumericIDStrategy()}
	case contains(o.JoinOn, types.ColumnPlacement):
		key, strategies = types.ColumnPlacement, []KeyStrategy{VendorNameStrategy(o.NamePattern)}
	default:
		return "", nil, &types.ConfigurationError{
			Field:   "merge.programmatic_join_on",
			Message: fmt.Sprintf("must include %s or %s", types.ColumnPlacementID, types.ColumnPlacement),
		}
	}
	if len(o.Strategies) > 0 {
		strategies = o.Strategies
	}
	return key, strategies, nil
}

// =============================================================================
// SPEND LEDGER
// =============================================================================

// Ledger holds spend totals per normalized join key.
type Ledger struct {
	joinOn []string
	order  []string
	totals map[string]float64

	// per source, the keys it contributed
	sources []string
	keys    []map[string]bool
}

// Len returns the number of distinct keys.
func (l *Ledger) Len() int { return len(l.order) }

// Total returns the summed spend for a key.
func (l *Ledger) Total(key string) (float64, bool) {
	v, ok := l.totals[key]
	return v, ok
}

// Keys returns the keys in first-seen order.
func (l *Ledger) Keys() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// TotalSpend returns the spend across all keys.
func (l *Ledger) TotalSpend() float64 {
	var sum float64
	for _, k := range l.order {
		sum += l.totals[k]
	}
	return sum
}

// UnmatchedSources returns the sources none of whose keys occur in served.
func (l *Ledger) UnmatchedSources(served *table.Table) []string {
	present := make(map[string]bool, served.Len())
	for r := 0; r < served.Len(); r++ {
		present[JoinKey(served, r, l.joinOn, l.joinOn)] = true
	}

	var out []string
	for i, name := range l.sources {
		hit := false
		for k := range l.keys[i] {
			if present[k] {
				hit = true
				break
			}
		}
		if !hit {
			out = append(out, name)
		}
	}
	return out
}

// SpendLedger locates the key column of every source and sums spend per
// join key. Empty spend cells are skipped. Keys found in several sources
// are summed.
func SpendLedger(sources []Source, opts ProgrammaticOptions) (*Ledger, error) {
	opts = opts.withDefaults()
	key, strategies, err := opts.keyColumn()
	if err != nil {
		return nil, err
	}

	ledger := &Ledger{joinOn: opts.JoinOn, totals: make(map[string]float64)}

	for _, src := range sources {
		located, err := LocateKeyColumn(src.Table, src.Name, strategies...)
		if err != nil {
			return nil, err
		}

		columns := make([]string, len(opts.JoinOn))
		for i, c := range opts.JoinOn {
			columns[i] = c
			if c == key {
				columns[i] = located
			}
		}
		if missing := src.Table.MissingColumns(append(columns, opts.SpendColumn)...); len(missing) > 0 {
			return nil, &types.ConfigurationError{
				Field:   strings.Join(missing, ", "),
				Message: "column not present in programmatic source " + src.Name,
			}
		}

		seen := make(map[string]bool)
		for r := 0; r < src.Table.Len(); r++ {
			v := src.Table.Get(r, opts.SpendColumn)
			if v.IsNull() {
				continue
			}
			spend, err := v.Float()
			if err != nil {
				return nil, &types.ParseError{
					Source:  src.Name,
					Row:     r + 1,
					Column:  opts.SpendColumn,
					Value:   v.String(),
					Message: "spend is not numeric",
					Err:     err,
				}
			}

			k := JoinKey(src.Table, r, columns, opts.JoinOn)
			if _, ok := ledger.totals[k]; !ok {
				ledger.order = append(ledger.order, k)
			}
			ledger.totals[k] += spend
			seen[k] = true
		}
		ledger.sources = append(ledger.sources, src.Name)
		ledger.keys = append(ledger.keys, seen)
	}
	return ledger, nil
}

// =============================================================================
// MERGE
// =============================================================================

// WithProgrammatic merges programmatic spend into served. See ApplyLedger.
func WithProgrammatic(served *table.Table, sources []Source, opts ProgrammaticOptions) (*table.Table, error) {
	ledger, err := SpendLedger(sources, opts)
	if err != nil {
		return nil, err
	}
	return ApplyLedger(served, ledger, opts)
}

// ApplyLedger copies ledger spend onto the served rows whose join key it
// holds, splits it across the rows sharing a key and replaces the cost
// column of those rows with the split spend. Unmatched rows keep their cost
// and get an empty spend.
func ApplyLedger(served *table.Table, ledger *Ledger, opts ProgrammaticOptions) (*table.Table, error) {
	opts = opts.withDefaults()
	if _, _, err := opts.keyColumn(); err != nil {
		return nil, err
	}
	if missing := served.MissingColumns(opts.JoinOn...); len(missing) > 0 {
		return nil, &types.ConfigurationError{
			Field:   strings.Join(missing, ", "),
			Message: "join column not present in served report",
		}
	}
	if opts.WeightBy != "" && !served.HasColumn(opts.WeightBy) {
		return nil, &types.ConfigurationError{
			Field:   opts.WeightBy,
			Message: "weight column not present in served report",
		}
	}

	out := served.Clone()
	out.AddColumn(opts.SpendColumn)
	out.AddColumn(opts.CostColumn)

	var matched []int
	var keys []string
	for r := 0; r < out.Len(); r++ {
		k := JoinKey(out, r, opts.JoinOn, opts.JoinOn)
		total, ok := ledger.Total(k)
		if !ok {
			if opts.SpendColumn != opts.CostColumn {
				out.Set(r, opts.SpendColumn, table.Null())
			}
			continue
		}
		out.Set(r, opts.SpendColumn, table.Number(total))
		matched = append(matched, r)
		keys = append(keys, k)
	}

	if err := redistributeRows(out, matched, keys, []string{opts.SpendColumn}, opts.WeightBy); err != nil {
		return nil, err
	}
	for _, r := range matched {
		out.Set(r, opts.CostColumn, out.Get(r, opts.SpendColumn))
	}
	return out, nil
}
