package merge

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/campaign-reconciler/internal/types"
	"github.com/ginjaninja78/campaign-reconciler/internal/xlsxparser"
)

// writeStyledExport saves a DSP-style sheet whose ID and spend cells carry
// thousands-separator number formats.
func writeStyledExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dsp.xlsx")

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Line Item ID", "Spend"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{123456789, 1234.5}))

	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "A2", "A2", thousands))
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "B2", "B2", money))

	require.NoError(t, f.SaveAs(path))
	return path
}

func TestStyledWorkbookIDs(t *testing.T) {
	tbl, err := xlsxparser.ReadSheet(writeStyledExport(t), "")
	require.NoError(t, err)

	t.Run("numeric id column is located", func(t *testing.T) {
		col, err := LocateKeyColumn(tbl, "dsp.xlsx", NumericIDStrategy())

		require.NoError(t, err)
		assert.Equal(t, "Line Item ID", col)
		assert.Equal(t, "123456789", JoinKey(tbl, 0, []string{col}, []string{types.ColumnPlacementID}))
	})

	t.Run("spend reaches the served rows", func(t *testing.T) {
		sources := []Source{{Name: "dsp.xlsx", Table: tbl}}

		out, err := WithProgrammatic(servedForSpend(), sources, ProgrammaticOptions{JoinOn: []string{types.ColumnPlacementID}})

		require.NoError(t, err)
		assert.Equal(t, []string{"617.25", "617.25", ""}, texts(out, types.ColumnSpend))
	})
}

func TestTrimIntegerFraction(t *testing.T) {
	cases := map[string]string{
		"123456789":        "123456789",
		"123456789.0":      "123456789",
		"123,456,789":      "123456789",
		"123,456,789.00":   "123456789",
		"12,34":            "12,34",
		"SITEA_Display_01": "SITEA_Display_01",
	}
	for in, want := range cases {
		assert.Equal(t, want, trimIntegerFraction(in), in)
	}
}

func TestDefaultPlacementNamePattern(t *testing.T) {
	assert.Equal(t, types.DefaultPlacementNamePattern, DefaultPlacementNamePattern.String())
	assert.True(t, DefaultPlacementNamePattern.MatchString("SITEA_Display_300x250_Pros"))
	assert.False(t, DefaultPlacementNamePattern.MatchString("Spring"))
}
