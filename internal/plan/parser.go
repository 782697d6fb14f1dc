// =============================================================================
// Campaign Reconciler - Media Plan Parser
// =============================================================================
//
// A media plan lists billable placements, but some placements are sold as a
// package: one row carries the package's aggregate units and cost, and the
// rows under it name the placements the package is delivered through.
//
// ROW KINDS:
//   - placement row        : rate, cost, units and supplier are filled in
//   - package-placement row: units, supplier and cost are filled in but the
//                            unit dimensions are not (the package line)
//   - any other row        : a placement delivered through the package above
//
// OUTPUT:
//   1. Placement rows that are not package lines, in file order.
//   2. For every package, in the order packages were first referenced, one
//      record per child. Each child gets the package rate, dates and
//      campaign, and an even share of the package units and cost.
//
// =============================================================================

package plan

import (
	"fmt"

	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// Parse converts a raw plan into placement records.
//
// RETURNS:
//   - The placement records, direct rows first, then package children.
//   - A ParseError for a malformed number or a child row with no placement
//     row above it.
func Parse(raw *RawPlan) ([]types.PlacementRecord, error) {
	var direct []types.PlacementRecord
	children := make(map[string][]int)
	var packages []string

	for r := 0; r < raw.Len(); r++ {
		if raw.isBlank(r) {
			continue
		}
		class := raw.Classify(r)

		if !class.Placement && !class.PackagePlacement {
			parent, err := raw.parentOf(r)
			if err != nil {
				return nil, err
			}
			name := raw.Cell(parent, colName)
			if _, seen := children[name]; !seen {
				packages = append(packages, name)
			}
			children[name] = append(children[name], r)
		}

		if class.Placement && !class.PackagePlacement {
			rec, err := raw.record(r)
			if err != nil {
				return nil, err
			}
			direct = append(direct, rec)
		}
	}

	out := direct
	for _, name := range packages {
		pkgRow, ok := raw.findByName(name)
		if !ok {
			return nil, &types.ParseError{Source: raw.Source, Column: colName, Value: name, Message: "package row not found"}
		}
		pkg, err := raw.record(pkgRow)
		if err != nil {
			return nil, err
		}

		kids := children[name]
		n := float64(len(kids))
		for _, c := range kids {
			out = append(out, types.PlacementRecord{
				CampaignName:  pkg.CampaignName,
				PlacementName: raw.Cell(c, colName),
				PlannedUnits:  pkg.PlannedUnits / n,
				PlannedCost:   pkg.PlannedCost / n,
				Rate:          pkg.Rate,
				StartDate:     pkg.StartDate,
				EndDate:       pkg.EndDate,
			})
		}
	}

	return out, nil
}

// parentOf scans upward from row for the nearest placement row.
func (p *RawPlan) parentOf(row int) (int, error) {
	for i := row - 1; i >= 0; i-- {
		if p.Classify(i).Placement {
			return i, nil
		}
	}
	return 0, &types.ParseError{
		Source:  p.Source,
		Row:     fileRow(row),
		Column:  colName,
		Value:   p.Cell(row, colName),
		Message: "no parent placement found",
	}
}

// findByName returns the first row whose name cell equals name.
func (p *RawPlan) findByName(name string) (int, bool) {
	for r := 0; r < p.Len(); r++ {
		if p.Cell(r, colName) == name {
			return r, true
		}
	}
	return 0, false
}

// record builds a PlacementRecord from a row's own cells.
func (p *RawPlan) record(row int) (types.PlacementRecord, error) {
	units, err := p.number(row, colUnits)
	if err != nil {
		return types.PlacementRecord{}, err
	}
	cost, err := p.number(row, colCost)
	if err != nil {
		return types.PlacementRecord{}, err
	}
	rate, err := p.number(row, colRate)
	if err != nil {
		return types.PlacementRecord{}, err
	}
	return types.PlacementRecord{
		CampaignName:  p.Cell(row, colCampaignName),
		PlacementName: p.Cell(row, colName),
		PlannedUnits:  units,
		PlannedCost:   cost,
		Rate:          rate,
		StartDate:     p.Cell(row, colStartDate),
		EndDate:       p.Cell(row, colEndDate),
	}, nil
}

func (p *RawPlan) number(row int, column string) (float64, error) {
	cell := p.Cell(row, column)
	f, err := table.ParseNumber(cell)
	if err != nil {
		return 0, &types.ParseError{
			Source:  p.Source,
			Row:     fileRow(row),
			Column:  column,
			Value:   cell,
			Message: "value is not numeric",
			Err:     err,
		}
	}
	return f, nil
}

// ToTable renders placement records as a plan table with the fixed plan
// columns.
func ToTable(records []types.PlacementRecord) *table.Table {
	t := table.New(types.PlanColumns...)
	for _, r := range records {
		t.AppendRow(
			table.Text(r.CampaignName),
			table.Text(r.PlacementName),
			table.Number(r.PlannedUnits),
			table.Number(r.PlannedCost),
			table.Number(r.Rate),
			table.Text(r.StartDate),
			table.Text(r.EndDate),
		)
	}
	return t
}

// Summary describes a parsed plan for logging.
func Summary(records []types.PlacementRecord) string {
	var units, cost float64
	for _, r := range records {
		units += r.PlannedUnits
		cost += r.PlannedCost
	}
	return fmt.Sprintf("%d placements, %.0f planned units, %.2f planned cost", len(records), units, cost)
}
