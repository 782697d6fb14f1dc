// =============================================================================
// Campaign Reconciler - Redistributor
// =============================================================================
//
// When a join copies one source value onto several finer-grained rows, the
// value would be counted once per row. Redistribute splits it back so that
// each group of rows sharing a key sums to the source value again.
//
// MODES:
//   - Unweighted: value / number of rows in the group
//   - Weighted  : value * weight / sum(weight over the group)
//
// EXAMPLE:
//   Three rows share ("Camp A", "P1") and each carries Planned Units 900.
//   Unweighted, each row receives 300. Weighted by Impressions 100/200/600,
//   they receive 100, 200 and 600.
//
// =============================================================================

package redistribute

import (
	"errors"
	"strings"

	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// Options selects the grouping and the value being split.
type Options struct {
	// GroupBy lists the columns whose tuple defines a group. Required.
	GroupBy []string

	// Measure is the column holding the value to split.
	Measure string

	// WeightBy is an optional column of weights. When empty the split is
	// even.
	WeightBy string
}

// Redistribute returns one value per input row, in input order. Rows in the
// same group receive shares that sum to the group's measure value.
//
// ERRORS:
//   - ConfigurationError: empty GroupBy or an unknown column
//   - ParseError        : a Null or non-numeric measure or weight
//   - DivisionError     : a weighted group whose weights sum to zero
func Redistribute(t *table.Table, opts Options) ([]float64, error) {
	if err := validate(t, opts); err != nil {
		return nil, err
	}

	n := t.Len()
	keys := make([]string, n)
	measures := make([]float64, n)
	weights := make([]float64, n)
	counts := make(map[string]int)
	sums := make(map[string]float64)

	for r := 0; r < n; r++ {
		m, err := numeric(t, r, opts.Measure)
		if err != nil {
			return nil, err
		}
		measures[r] = m

		keys[r] = t.Key(r, opts.GroupBy)
		counts[keys[r]]++

		if opts.WeightBy != "" {
			w, err := numeric(t, r, opts.WeightBy)
			if err != nil {
				return nil, err
			}
			weights[r] = w
			sums[keys[r]] += w
		}
	}

	out := make([]float64, n)
	for r := 0; r < n; r++ {
		if opts.WeightBy == "" {
			out[r] = measures[r] / float64(counts[keys[r]])
			continue
		}
		total := sums[keys[r]]
		if total == 0 {
			return nil, &types.DivisionError{
				Group:  "(" + strings.Join(table.SplitKey(keys[r]), ", ") + ")",
				Column: opts.WeightBy,
			}
		}
		out[r] = measures[r] * weights[r] / total
	}
	return out, nil
}

// Apply redistributes opts.Measure and writes the shares into target, which
// may be the measure column itself.
func Apply(t *table.Table, opts Options, target string) error {
	shares, err := Redistribute(t, opts)
	if err != nil {
		return err
	}
	for r, v := range shares {
		t.Set(r, target, table.Number(v))
	}
	return nil
}

func validate(t *table.Table, opts Options) error {
	if len(opts.GroupBy) == 0 {
		return &types.ConfigurationError{Field: "group_by", Message: "at least one grouping column is required"}
	}
	if opts.Measure == "" {
		return &types.ConfigurationError{Field: "measure", Message: "a measure column is required"}
	}
	cols := append([]string{opts.Measure}, opts.GroupBy...)
	if opts.WeightBy != "" {
		cols = append(cols, opts.WeightBy)
	}
	if missing := t.MissingColumns(cols...); len(missing) > 0 {
		return &types.ConfigurationError{
			Field:   strings.Join(missing, ", "),
			Message: "column not present in table",
		}
	}
	return nil
}

func numeric(t *table.Table, row int, column string) (float64, error) {
	v := t.Get(row, column)
	f, err := v.Float()
	if err == nil {
		return f, nil
	}
	msg := "value is not numeric"
	if errors.Is(err, table.ErrNull) {
		msg = "value is empty"
	}
	return 0, &types.ParseError{Row: row + 1, Column: column, Value: v.String(), Message: msg}
}
