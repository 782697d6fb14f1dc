package served

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

const export = `Campaign Delivery Report
Report Name,Campaign Delivery
Date/Time Generated,"May 8, 2024 5:57:51 PM"
Date Range,3/1/2024 - 3/31/2024

Report Fields
Site (DCM),Campaign,Placement,Impressions,Media Cost
Site A,Spring,SITEA_Display_300x250_Pros,"1,000",12.50
Site B,Spring,SITEB_Sports_300x250_A,500,
Grand Total:,,,"1,500",12.50
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, os.WriteFile(path, []byte(export), 0644))

	report, err := Load(path, config.Default().CSVSettings)

	require.NoError(t, err)
	assert.Equal(t, path, report.Source)
	assert.Equal(t, time.Date(2024, 5, 8, 17, 57, 51, 0, time.UTC), report.DateGenerated)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), report.DateRange[0])
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), report.PeriodEnd())

	tbl := report.Table
	assert.Equal(t, []string{"Site (DCM)", "Campaign", "Placement", "Impressions", "Media Cost"}, tbl.Columns())
	require.Equal(t, 2, tbl.Len(), "footer is dropped")
	assert.Equal(t, "SITEA_Display_300x250_Pros", tbl.Get(0, "Placement").String())
	assert.True(t, tbl.Get(1, "Media Cost").IsNull())
}

func TestParse(t *testing.T) {
	t.Run("missing marker", func(t *testing.T) {
		_, err := Parse([][]string{{"Placement"}, {"P1"}})

		assert.ErrorIs(t, err, types.ErrParse)
	})

	t.Run("header only", func(t *testing.T) {
		report, err := Parse([][]string{{"Report Fields"}, {"Placement", "Impressions"}})

		require.NoError(t, err)
		assert.Equal(t, 0, report.Table.Len())
		assert.True(t, report.DateGenerated.IsZero())
	})

	t.Run("marker is last row", func(t *testing.T) {
		_, err := Parse([][]string{{"Report Fields"}})

		assert.ErrorIs(t, err, types.ErrParse)
	})

	t.Run("bad date range", func(t *testing.T) {
		_, err := Parse([][]string{{"Date Range", "sometime"}, {"Report Fields"}, {"A"}})

		var parseErr *types.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, MarkerDateRange, parseErr.Column)
	})
}

func TestParseDateRange(t *testing.T) {
	cases := map[string][2]time.Time{
		"3/1/2024 - 3/31/2024": {
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		"2024-03-01 - 2024-03-31": {
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		"3/1/2024-3/15/2024": {
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDateRange(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := ParseDateRange("3/1/2024")
	assert.Error(t, err)
}
