package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/campaign-reconciler/internal/table"
)

func sample() *table.Table {
	t := table.New("Placement", "Spend", "Note")
	t.AppendRow(table.Text("P1"), table.Number(12.5), table.Null())
	t.AppendRow(table.Text("P2"), table.Null(), table.Text("a, b"))
	return t
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(&buf, sample()))

	assert.Equal(t, "Placement,Spend,Note\nP1,12.5,\nP2,,\"a, b\"\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	require.NoError(t, Write(path, sample(), Options{Format: FormatXLSX, Sheet: "Raw Data"}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Raw Data"}, f.GetSheetList())
	rows, err := f.GetRows("Raw Data")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Placement", "Spend", "Note"}, rows[0])
	assert.Equal(t, "12.5", rows[1][1])
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "out.csv")
		require.NoError(t, Write(path, sample(), Options{Format: "CSV"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "P1,12.5,")
	})

	t.Run("default sheet", func(t *testing.T) {
		path := filepath.Join(dir, "default.xlsx")
		require.NoError(t, Write(path, sample(), Options{}))

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())
	})

	t.Run("unknown format", func(t *testing.T) {
		err := Write(filepath.Join(dir, "out.json"), sample(), Options{Format: "json"})
		assert.Error(t, err)
	})
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".csv", Options{Format: "csv"}.Extension())
	assert.Equal(t, ".xlsx", Options{Format: "xlsx"}.Extension())
	assert.Equal(t, ".xlsx", Options{}.Extension())
}
