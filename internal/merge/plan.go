// =============================================================================
// Campaign Reconciler - Plan Merge
// =============================================================================
//
// WithPlan attaches plan columns to the served report. A served placement
// usually spans several rows (one per site, date or creative), so the plan
// values copied onto them are redistributed per join key afterwards.
//
// =============================================================================

package merge

import (
	"strings"

	"github.com/ginjaninja78/campaign-reconciler/internal/plan"
	"github.com/ginjaninja78/campaign-reconciler/internal/redistribute"
	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// groupKeyColumn holds the normalized join key while redistributing.
const groupKeyColumn = "\x00join_key"

// PlanOptions configures WithPlan.
type PlanOptions struct {
	// JoinOn must include Placement.
	JoinOn []string

	// SortBy orders the served rows before joining. Columns the report does
	// not have are skipped.
	SortBy []string

	// RedistributeMeasures lists the plan columns split across the served
	// rows of each join key.
	RedistributeMeasures []string
}

// DefaultPlanOptions joins on campaign and placement and splits planned
// units and cost.
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{
		JoinOn:               []string{types.ColumnCampaign, types.ColumnPlacement},
		SortBy:               []string{types.ColumnSiteDCM, types.ColumnPlacement},
		RedistributeMeasures: []string{types.ColumnPlannedUnits, types.ColumnPlannedCost},
	}
}

// WithPlan left-joins plan records onto served. Every served row is kept.
// A served row matching several distinct plan rows is repeated once per
// match. Rows without a match keep whatever values they already carry in
// the plan columns, so merging the same plan twice changes nothing.
func WithPlan(served *table.Table, records []types.PlacementRecord, opts PlanOptions) (*table.Table, error) {
	if !contains(opts.JoinOn, types.ColumnPlacement) {
		return nil, &types.ConfigurationError{
			Field:   "merge.plan_join_on",
			Message: "must include " + types.ColumnPlacement,
		}
	}
	if missing := served.MissingColumns(opts.JoinOn...); len(missing) > 0 {
		return nil, &types.ConfigurationError{
			Field:   strings.Join(missing, ", "),
			Message: "join column not present in served report",
		}
	}

	planTable := plan.ToTable(records).Distinct()
	if missing := planTable.MissingColumns(opts.JoinOn...); len(missing) > 0 {
		return nil, &types.ConfigurationError{
			Field:   strings.Join(missing, ", "),
			Message: "join column not present in plan",
		}
	}

	left := served.Clone()
	left.SortStable(opts.SortBy...)

	// plan rows by join key, in plan order
	index := make(map[string][]int)
	for r := 0; r < planTable.Len(); r++ {
		k := JoinKey(planTable, r, opts.JoinOn, opts.JoinOn)
		index[k] = append(index[k], r)
	}

	var carried []string
	for _, c := range planTable.Columns() {
		if !contains(opts.JoinOn, c) {
			carried = append(carried, c)
		}
	}

	out := table.New(left.Columns()...)
	for _, c := range carried {
		out.AddColumn(c)
	}

	var matched []int
	var keys []string
	for r := 0; r < left.Len(); r++ {
		k := JoinKey(left, r, opts.JoinOn, opts.JoinOn)
		hits := index[k]
		if len(hits) == 0 {
			out.AppendRow(left.Row(r)...)
			continue
		}
		for _, p := range hits {
			out.AppendRow(left.Row(r)...)
			row := out.Len() - 1
			for _, c := range carried {
				out.Set(row, c, planTable.Get(p, c))
			}
			matched = append(matched, row)
			keys = append(keys, k)
		}
	}

	if err := redistributeRows(out, matched, keys, opts.RedistributeMeasures, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// redistributeRows splits each measure across the given rows of t grouped by
// their join keys and writes the shares back in place.
func redistributeRows(t *table.Table, rows []int, keys []string, measures []string, weightBy string) error {
	if len(rows) == 0 || len(measures) == 0 {
		return nil
	}

	sub := t.Select(rows)
	for i, k := range keys {
		sub.Set(i, groupKeyColumn, table.Text(k))
	}

	for _, m := range measures {
		shares, err := redistribute.Redistribute(sub, redistribute.Options{
			GroupBy:  []string{groupKeyColumn},
			Measure:  m,
			WeightBy: weightBy,
		})
		if err != nil {
			// report the row of t, not of the subset
			if pe, ok := err.(*types.ParseError); ok && pe.Row > 0 {
				pe.Row = rows[pe.Row-1] + 1
			}
			return err
		}
		for i, v := range shares {
			t.Set(rows[i], m, table.Number(v))
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
