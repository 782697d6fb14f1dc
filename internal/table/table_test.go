package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1000", 1000},
		{"1,000", 1000},
		{"$1,234.50", 1234.5},
		{" 42 ", 42},
		{"€7", 7},
		{"-3.25", -3.25},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseNumber(tc.in)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}

	t.Run("empty is null", func(t *testing.T) {
		_, err := ParseNumber("  ")
		assert.ErrorIs(t, err, ErrNull)
	})

	t.Run("text is rejected", func(t *testing.T) {
		_, err := ParseNumber("n/a")
		assert.Error(t, err)
	})
}

func TestValue(t *testing.T) {
	t.Run("blank text is null", func(t *testing.T) {
		assert.True(t, Text("   ").IsNull())
		assert.False(t, Text("x").IsNull())
	})

	t.Run("numbers render without trailing zeros", func(t *testing.T) {
		assert.Equal(t, "2.5", Number(2.5).String())
		assert.Equal(t, "100", Number(100).String())
	})

	t.Run("float coerces text", func(t *testing.T) {
		f, err := Text("1,500").Float()
		require.NoError(t, err)
		assert.Equal(t, 1500.0, f)

		_, err = Null().Float()
		assert.ErrorIs(t, err, ErrNull)
	})

	t.Run("equality respects kind", func(t *testing.T) {
		assert.True(t, Number(1).Equal(Number(1)))
		assert.False(t, Number(1).Equal(Text("1")))
		assert.True(t, Null().Equal(Null()))
	})
}

func TestFromRecords(t *testing.T) {
	tbl := FromRecords(
		[]string{"Placement", " Impressions ", "Placement"},
		[][]string{
			{"P1", "10", "x"},
			{"P2", ""},
		},
	)

	assert.Equal(t, []string{"Placement", "Impressions", "Placement.1"}, tbl.Columns())
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "P1", tbl.Get(0, "Placement").String())
	assert.True(t, tbl.Get(1, "Impressions").IsNull())
	assert.True(t, tbl.Get(1, "Placement.1").IsNull())
	assert.True(t, tbl.Get(0, "missing").IsNull())
}

func TestFromRecordsHeaderNames(t *testing.T) {
	t.Run("renamed duplicate never displaces a later column", func(t *testing.T) {
		tbl := FromRecords(
			[]string{"Placement", "Placement", "Placement.1", "Spend"},
			[][]string{{"a", "b", "c", "10"}},
		)

		assert.Equal(t, []string{"Placement", "Placement.1", "Placement.1.1", "Spend"}, tbl.Columns())
		assert.Equal(t, "b", tbl.Get(0, "Placement.1").String())
		assert.Equal(t, "c", tbl.Get(0, "Placement.1.1").String())
		assert.Equal(t, "10", tbl.Get(0, "Spend").String())
	})

	t.Run("inner whitespace collapses", func(t *testing.T) {
		tbl := FromRecords([]string{" Media \t Cost ", "Site  (DCM)"}, nil)

		assert.Equal(t, []string{"Media Cost", "Site (DCM)"}, tbl.Columns())
	})
}

func TestAddColumnAndSet(t *testing.T) {
	tbl := New("A")
	tbl.AppendRow(Text("a1"))
	tbl.AppendRow(Text("a2"))

	pos := tbl.AddColumn("B")
	assert.Equal(t, 1, pos)
	assert.Equal(t, pos, tbl.AddColumn("B"))
	assert.True(t, tbl.Get(0, "B").IsNull())

	tbl.Set(1, "C", Number(3))
	assert.Equal(t, []string{"A", "B", "C"}, tbl.Columns())
	assert.Equal(t, "3", tbl.Get(1, "C").String())
	assert.True(t, tbl.Get(0, "C").IsNull())
	assert.Equal(t, []string{"D"}, tbl.MissingColumns("A", "C", "D"))
}

func TestSortStable(t *testing.T) {
	tbl := FromRecords([]string{"Site", "Placement", "Order"}, [][]string{
		{"B", "p2", "1"},
		{"A", "p9", "2"},
		{"", "p1", "3"},
		{"A", "p1", "4"},
		{"A", "p9", "5"},
	})

	tbl.SortStable("Site", "Placement", "NotAColumn")

	var order []string
	for r := 0; r < tbl.Len(); r++ {
		order = append(order, tbl.Get(r, "Order").String())
	}
	assert.Equal(t, []string{"4", "2", "5", "1", "3"}, order)
}

func TestDistinctAndSelect(t *testing.T) {
	tbl := New("K", "V")
	tbl.AppendRow(Text("a"), Number(1))
	tbl.AppendRow(Text("a"), Number(1))
	tbl.AppendRow(Text("a"), Text("1"))
	tbl.AppendRow(Text("b"), Null())

	d := tbl.Distinct()
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 4, tbl.Len(), "source is untouched")

	s := tbl.Select([]int{3, 0})
	assert.Equal(t, "b", s.Get(0, "K").String())
	assert.Equal(t, "a", s.Get(1, "K").String())
}

func TestCloneIsDeep(t *testing.T) {
	tbl := New("A")
	tbl.AppendRow(Text("x"))

	c := tbl.Clone()
	c.Set(0, "A", Text("y"))
	c.AddColumn("B")

	assert.Equal(t, "x", tbl.Get(0, "A").String())
	assert.False(t, tbl.HasColumn("B"))
}

func TestKeyAndRecords(t *testing.T) {
	tbl := New("Campaign", "Placement", "Units")
	tbl.AppendRow(Text("C"), Text("P"), Number(12.5))

	key := tbl.Key(0, []string{"Campaign", "Placement"})
	assert.Equal(t, []string{"C", "P"}, SplitKey(key))

	assert.Equal(t, [][]string{
		{"Campaign", "Placement", "Units"},
		{"C", "P", "12.5"},
	}, tbl.Records())
}
