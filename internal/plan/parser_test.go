package plan

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

var header = []string{
	"Campaign Name", "Name", "Supplier", "Unit Dimensions", "Units", "Rate", "Cost ($)", "Start Date", "End Date",
}

func packagePlan() [][]string {
	return [][]string{
		header,
		{"Spring", "SITEA_Display_300x250_Pros", "Site A", "300x250", "1,000", "5", "$5,000", "2024-03-01", "2024-03-31"},
		{"Spring", "PKG Sports", "Site B", "", "100", "5", "500", "2024-03-05", "2024-04-10"},
		{"Spring", "SITEB_Sports_300x250_A", "Site B", "300x250", "", "", "", "", ""},
		{"Spring", "SITEB_Sports_728x90_A", "Site B", "728x90", "", "", "", "", ""},
		{"", "", "", "", "", "", "", "", ""},
		{"Spring", "SITEB_Sports_160x600_A", "Site B", "160x600", "", "", "", "", ""},
		{"Spring", "SITEB_Sports_320x50_A", "Site B", "320x50", "", "", "", "", ""},
	}
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Unit Dimensions":   "unit_dimensions",
		"Cost ($)":          "cost",
		" Campaign   Name ": "campaign_name",
		"Start Date":        "start_date",
		"Name":              "name",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), in)
	}
}

func TestNewRawPlan(t *testing.T) {
	t.Run("missing columns", func(t *testing.T) {
		_, err := NewRawPlan([][]string{{"Name", "Units"}})

		var parseErr *types.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, parseErr.Column, "rate")
		assert.Contains(t, parseErr.Column, "unit_dimensions")
	})

	t.Run("no header", func(t *testing.T) {
		_, err := NewRawPlan(nil)
		assert.ErrorIs(t, err, types.ErrParse)
	})

	t.Run("classifies rows", func(t *testing.T) {
		raw, err := NewRawPlan(packagePlan())
		require.NoError(t, err)

		assert.Equal(t, RowClass{Placement: true}, raw.Classify(0))
		assert.Equal(t, RowClass{Placement: true, PackagePlacement: true}, raw.Classify(1))
		assert.Equal(t, RowClass{}, raw.Classify(2))
	})
}

func TestParsePackageExplosion(t *testing.T) {
	raw, err := NewRawPlan(packagePlan())
	require.NoError(t, err)

	records, err := Parse(raw)

	require.NoError(t, err)
	require.Len(t, records, 5)

	direct := records[0]
	assert.Equal(t, "SITEA_Display_300x250_Pros", direct.PlacementName)
	assert.Equal(t, 1000.0, direct.PlannedUnits)
	assert.Equal(t, 5000.0, direct.PlannedCost)

	var units, cost float64
	names := []string{}
	for _, child := range records[1:] {
		assert.InDelta(t, 25.0, child.PlannedUnits, 1e-9)
		assert.InDelta(t, 125.0, child.PlannedCost, 1e-9)
		assert.Equal(t, 5.0, child.Rate)
		assert.Equal(t, "Spring", child.CampaignName)
		assert.Equal(t, "2024-03-05", child.StartDate)
		assert.Equal(t, "2024-04-10", child.EndDate)
		units += child.PlannedUnits
		cost += child.PlannedCost
		names = append(names, child.PlacementName)
	}
	assert.InDelta(t, 100.0, units, 1e-9)
	assert.InDelta(t, 500.0, cost, 1e-9)
	assert.Equal(t, []string{
		"SITEB_Sports_300x250_A",
		"SITEB_Sports_728x90_A",
		"SITEB_Sports_160x600_A",
		"SITEB_Sports_320x50_A",
	}, names)
}

func TestParseUnevenPackageBalances(t *testing.T) {
	rows := [][]string{
		header,
		{"C", "PKG", "S", "", "1000", "1", "100", "", ""},
		{"C", "a", "S", "x", "", "", "", "", ""},
		{"C", "b", "S", "x", "", "", "", "", ""},
		{"C", "c", "S", "x", "", "", "", "", ""},
	}
	raw, err := NewRawPlan(rows)
	require.NoError(t, err)

	records, err := Parse(raw)
	require.NoError(t, err)

	var units, cost float64
	for _, r := range records {
		units += r.PlannedUnits
		cost += r.PlannedCost
	}
	assert.InDelta(t, 1000.0, units, 1e-9)
	assert.InDelta(t, 100.0, cost, 1e-9)
}

func TestParseErrors(t *testing.T) {
	t.Run("no parent placement", func(t *testing.T) {
		raw, err := NewRawPlan([][]string{
			header,
			{"C", "orphan", "S", "x", "", "", "", "", ""},
		})
		require.NoError(t, err)

		_, err = Parse(raw)

		var parseErr *types.ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, 2, parseErr.Row)
		assert.Contains(t, parseErr.Error(), "no parent placement found")
	})

	t.Run("malformed number", func(t *testing.T) {
		raw, err := NewRawPlan([][]string{
			header,
			{"C", "P", "S", "300x250", "lots", "1", "10", "", ""},
		})
		require.NoError(t, err)

		_, err = Parse(raw)

		var parseErr *types.ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, "units", parseErr.Column)
		assert.Equal(t, "lots", parseErr.Value)
	})
}

func TestOverride(t *testing.T) {
	raw, err := NewRawPlan(packagePlan())
	require.NoError(t, err)

	// Treat the package line as an ordinary placement.
	raw.Override(1, RowClass{Placement: true})

	records, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "PKG Sports", records[1].PlacementName)
	assert.Equal(t, 100.0, records[1].PlannedUnits)
	assert.Len(t, records, 6)
}

func TestToTableAndWriteCSV(t *testing.T) {
	records := []types.PlacementRecord{
		{CampaignName: "C", PlacementName: "P", PlannedUnits: 12.5, PlannedCost: 3, Rate: 0.24, StartDate: "1/1/2024", EndDate: "1/31/2024"},
	}

	tbl := ToTable(records)
	assert.Equal(t, types.PlanColumns, tbl.Columns())
	assert.Equal(t, "12.5", tbl.Get(0, types.ColumnPlannedUnits).String())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))
	assert.Equal(t,
		"Campaign,Placement,Planned Units,Planned Cost,Rate,Placement Start Date,Placement End Date\n"+
			"C,P,12.5,3,0.24,1/1/2024,1/31/2024\n",
		buf.String())
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, rows [][]string) string {
		var lines []string
		for _, r := range rows {
			lines = append(lines, `"`+strings.Join(r, `","`)+`"`)
		}
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
		return path
	}

	first := write("A Media Plan.csv", [][]string{header, {"C1", "P1", "S", "x", "10", "1", "10", "", ""}})
	second := write("B Media Plan.csv", [][]string{header, {"C2", "P2", "S", "x", "20", "1", "20", "", ""}})
	broken := write("C Media Plan.csv", [][]string{{"Name"}, {"P3"}})
	settings := config.Default().CSVSettings

	t.Run("concatenates in path order", func(t *testing.T) {
		for _, workers := range []int{1, 4} {
			records, err := ParseFiles([]string{second, first}, settings, workers)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "P2", records[0].PlacementName)
			assert.Equal(t, "P1", records[1].PlacementName)
		}
	})

	t.Run("reports the failing file", func(t *testing.T) {
		_, err := ParseFiles([]string{first, broken}, settings, 2)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "C Media Plan.csv")
		assert.ErrorIs(t, err, types.ErrParse)
	})
}
