// Package pacing derives reporting columns from the merged plan data: the
// media type encoded in the placement name and the share of planned units
// committed to the reporting month.
package pacing

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// Stats counts the rows Apply could and could not compute a commitment for.
type Stats struct {
	Computed int
	Skipped  int
}

// Apply adds the Media Type and Monthly Commitment columns to t in place.
// Rows without usable plan dates or units get a Null commitment.
func Apply(t *table.Table, periodEnd time.Time) Stats {
	var stats Stats
	for r := 0; r < t.Len(); r++ {
		t.Set(r, types.ColumnMediaType, MediaType(t.Get(r, types.ColumnPlacement)))

		commit, ok := commitment(t, r, periodEnd)
		if !ok {
			t.Set(r, types.ColumnMonthlyCommit, table.Null())
			stats.Skipped++
			continue
		}
		t.Set(r, types.ColumnMonthlyCommit, table.Number(commit))
		stats.Computed++
	}
	return stats
}

// MediaType returns the placement name up to its first underscore.
func MediaType(placement table.Value) table.Value {
	if placement.IsNull() {
		return table.Null()
	}
	name := placement.String()
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[:i]
	}
	return table.Text(name)
}

func commitment(t *table.Table, row int, periodEnd time.Time) (float64, bool) {
	units, err := t.Get(row, types.ColumnPlannedUnits).Float()
	if err != nil {
		return 0, false
	}
	start, ok := date(t.Get(row, types.ColumnStartDate))
	if !ok {
		return 0, false
	}
	end, ok := date(t.Get(row, types.ColumnEndDate))
	if !ok {
		return 0, false
	}
	return Commitment(units, start, end, periodEnd)
}

// Commitment returns the planned units attributable to the month ending at
// periodEnd, rounded half to even:
//
//   - a flight inside one calendar month commits all units
//   - a flight ending before periodEnd commits the elapsed share of its last
//     month
//   - otherwise units are spread over the flight days, of which the days from
//     the start day to the period end day fall in the reporting month
//
// ok is false when the flight has no positive length.
func Commitment(units float64, start, end, periodEnd time.Time) (float64, bool) {
	var numerator, denominator float64

	switch {
	case start.Year() == end.Year() && start.Month() == end.Month():
		numerator, denominator = 1, 1

	case end.Before(periodEnd):
		numerator = float64(end.Day() - 1)
		denominator = float64(daysIn(end.Year(), end.Month()))

	default:
		days := periodEnd.Day() - start.Day()
		if days < 0 {
			days = 0
		}
		if limit := daysIn(periodEnd.Year(), periodEnd.Month()); days > limit {
			days = limit
		}
		numerator = float64(days)
		denominator = math.Floor(end.Sub(start).Hours() / 24)
	}

	if denominator <= 0 {
		return 0, false
	}
	return math.RoundToEven(numerator / denominator * units), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func date(v table.Value) (time.Time, bool) {
	if v.IsNull() {
		return time.Time{}, false
	}
	d, err := dateparse.ParseIn(strings.TrimSpace(v.String()), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
