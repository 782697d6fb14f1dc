package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/campaign-reconciler/internal/merge"
	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

var joinOn = []string{types.ColumnCampaign, types.ColumnPlacement}

func TestAuditPlan(t *testing.T) {
	served := table.FromRecords(
		[]string{"Campaign", "Placement", "Date"},
		[][]string{
			{"C", "P1", "2024-03-01"},
			{"C", "P1", "2024-03-02"},
			{"C", "P1", "2024-03-03"},
		},
	)
	records := []types.PlacementRecord{
		{CampaignName: "C", PlacementName: "P1", PlannedUnits: 100, PlannedCost: 10},
		{CampaignName: "C", PlacementName: "P7", PlannedUnits: 5, PlannedCost: 1},
	}
	measures := []string{types.ColumnPlannedUnits, types.ColumnPlannedCost}

	t.Run("balanced after merge", func(t *testing.T) {
		merged, err := merge.WithPlan(served, records, merge.DefaultPlanOptions())
		require.NoError(t, err)

		result := AuditPlan(merged, records, joinOn, measures)

		assert.True(t, result.IsValid)
		assert.Equal(t, 0, result.ErrorCount)
		assert.Equal(t, 2, result.WarningCount, "P7 has no served rows for either measure")
		assert.Equal(t, 4, result.KeysChecked)
		assert.Equal(t, "(C, P7)", result.Issues[0].Key)
		assert.Empty(t, result.Issues[0].Actual)
	})

	t.Run("fan-out without redistribution", func(t *testing.T) {
		merged := served.Clone()
		for r := 0; r < merged.Len(); r++ {
			merged.Set(r, types.ColumnPlannedUnits, table.Number(100))
		}

		result := AuditPlan(merged, records[:1], joinOn, []string{types.ColumnPlannedUnits})

		require.False(t, result.IsValid)
		require.Len(t, result.Issues, 1)
		issue := result.Issues[0]
		assert.Equal(t, SeverityError, issue.Severity)
		assert.Equal(t, "300", issue.Actual)
		assert.Equal(t, "100", issue.Expected)
		assert.Contains(t, issue.Error(), "key (C, P1) totals 300, expected 100")
	})

	t.Run("thirds balance within tolerance", func(t *testing.T) {
		merged := served.Clone()
		for r := 0; r < merged.Len(); r++ {
			merged.Set(r, types.ColumnPlannedUnits, table.Number(100.0/3))
		}

		result := AuditPlan(merged, records[:1], joinOn, []string{types.ColumnPlannedUnits})

		assert.True(t, result.IsValid)
		assert.Empty(t, result.Issues)
	})
}

func TestAuditSpend(t *testing.T) {
	served := table.FromRecords(
		[]string{"Placement ID", "Media Cost"},
		[][]string{{"123456789", "1"}, {"123456789", "1"}},
	)
	source := merge.Source{
		Name: "dsp.xlsx",
		Table: table.FromRecords([]string{"ID", "Spend"}, [][]string{
			{"123456789", "10"},
			{"555555555", "4"},
		}),
	}
	opts := merge.ProgrammaticOptions{JoinOn: []string{types.ColumnPlacementID}}

	ledger, err := merge.SpendLedger([]merge.Source{source}, opts)
	require.NoError(t, err)
	merged, err := merge.ApplyLedger(served, ledger, opts)
	require.NoError(t, err)

	result := AuditSpend(merged, ledger, opts.JoinOn, types.ColumnSpend)

	assert.True(t, result.IsValid)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, SeverityWarning, result.Issues[0].Severity)
	assert.Equal(t, "(555555555)", result.Issues[0].Key)
	assert.Equal(t, "4", result.Issues[0].Expected)
}

func TestResultMerge(t *testing.T) {
	a := NewResult()
	a.add(&Issue{Severity: SeverityWarning})
	a.KeysChecked = 2
	b := NewResult()
	b.add(&Issue{Severity: SeverityError})
	b.KeysChecked = 3

	a.Merge(b)

	assert.False(t, a.IsValid)
	assert.Equal(t, 1, a.ErrorCount)
	assert.Equal(t, 1, a.WarningCount)
	assert.Equal(t, 5, a.KeysChecked)
}

func TestWriteErrorLog(t *testing.T) {
	result := NewResult()
	result.add(&Issue{Severity: SeverityError, Check: "plan", Key: "(C, P1)", Measure: "Planned Units", Expected: "1", Actual: "2"})
	path := filepath.Join(t.TempDir(), "audit.log")

	require.NoError(t, WriteErrorLog(result, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "errors: 1, warnings: 0")
	assert.Contains(t, string(data), "1. [ERROR] plan Planned Units: key (C, P1) totals 2, expected 1")
}

func TestFormatIssuesEmpty(t *testing.T) {
	assert.Equal(t, "All keys balance.", FormatIssues(nil))
}
