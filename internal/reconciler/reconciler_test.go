package reconciler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/internal/csvparser"
	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
	"github.com/ginjaninja78/campaign-reconciler/internal/writer"
)

const servedExport = `Campaign Delivery Report
Date/Time Generated,"Apr 2, 2024 9:00:00 AM"
Date Range,3/1/2024 - 3/31/2024

Report Fields
Site (DCM),Campaign,Placement,Placement ID,Impressions,Media Cost
Site B,Spring,SITEB_Sports_728x90_A,987654321,500,4
Site A,Spring,SITEA_Display_300x250_Pros,123456789,"1,000",12.50
Site A,Spring,SITEA_Display_300x250_Pros,123456789,3000,12.50
Grand Total:,,,,"4,500",29
`

const planHeader = `"Campaign Name","Name","Supplier","Unit Dimensions","Units","Rate","Cost ($)","Start Date","End Date"`

// recordingLogger keeps warnings for assertions.
type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Debug(msg string, args ...interface{}) {}
func (l *recordingLogger) Info(msg string, args ...interface{})  {}
func (l *recordingLogger) Error(msg string, args ...interface{}) {}
func (l *recordingLogger) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(msg, args...))
}

type fixture struct {
	cfg  *config.Config
	root string
}

func newFixture(t *testing.T, planRows ...string) fixture {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.ServedReport = filepath.Join(root, "served.csv")
	cfg.PlanDir = filepath.Join(root, "plans")
	cfg.ProgrammaticDir = filepath.Join(root, "programmatic")
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.OutputFormat = "csv"
	cfg.OutputNameFormat = "reconciled_{month}"

	require.NoError(t, os.WriteFile(cfg.ServedReport, []byte(servedExport), 0644))
	require.NoError(t, os.MkdirAll(cfg.PlanDir, 0755))
	require.NoError(t, os.MkdirAll(cfg.ProgrammaticDir, 0755))

	if len(planRows) > 0 {
		plan := planHeader + "\n" + strings.Join(planRows, "\n") + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(cfg.PlanDir, "Spring Media Plan.csv"), []byte(plan), 0644))
	}

	spend := table.New("Date", "Placement Name", "Spend")
	spend.AppendRow(table.Text("3/1/2024"), table.Text("SITEA_Display_300x250_Pros"), table.Number(30))
	require.NoError(t, writer.WriteXLSX(filepath.Join(cfg.ProgrammaticDir, "dsp.xlsx"), "Raw Data", spend))

	return fixture{cfg: cfg, root: root}
}

const sitePlanRow = `"Spring","SITEA_Display_300x250_Pros","Site A","300x250","1,000","5","$5,000","3/1/2024","3/31/2024"`

func TestRun(t *testing.T) {
	fx := newFixture(t, sitePlanRow)
	fx.cfg.SQLitePath = filepath.Join(fx.root, "db", "runs.db")
	logger := &recordingLogger{}

	result := New(fx.cfg, logger).Run(context.Background())

	require.NoError(t, result.Error)
	require.True(t, result.Success)
	assert.Equal(t, filepath.Join(fx.cfg.OutputDir, "reconciled_March.csv"), result.OutputFile)
	assert.FileExists(t, fx.cfg.SQLitePath)
	assert.Empty(t, logger.warnings)

	assert.Equal(t, 3, result.Stats.ServedRows)
	assert.Equal(t, 1, result.Stats.PlanPlacements)
	assert.Equal(t, 1, result.Stats.SpendKeys)
	assert.Equal(t, 3, result.Stats.OutputRows)
	assert.Equal(t, 2, result.Stats.Commitments)
	assert.True(t, result.Audit.IsValid)

	out, err := csvparser.ReadTable(result.OutputFile, fx.cfg.CSVSettings)
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	column := func(name string) []string {
		vals := make([]string, out.Len())
		for r := range vals {
			vals[r] = out.Get(r, name).String()
		}
		return vals
	}
	assert.Equal(t, []string{"Site A", "Site A", "Site B"}, column(types.ColumnSiteDCM))
	assert.Equal(t, []string{"500", "500", ""}, column(types.ColumnPlannedUnits))
	assert.Equal(t, []string{"2500", "2500", ""}, column(types.ColumnPlannedCost))
	assert.Equal(t, []string{"15", "15", ""}, column(types.ColumnSpend))
	assert.Equal(t, []string{"15", "15", "4"}, column(types.ColumnMediaCost))
	assert.Equal(t, []string{"SITEA", "SITEA", "SITEB"}, column(types.ColumnMediaType))
	assert.Equal(t, []string{"500", "500", ""}, column(types.ColumnMonthlyCommit))

	summaries, err := filepath.Glob(filepath.Join(fx.cfg.OutputDir, "run_summary_*.txt"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestRunDryRun(t *testing.T) {
	fx := newFixture(t, sitePlanRow)

	rec := New(fx.cfg, NewSlogLogger(io.Discard, "debug"))
	rec.DryRun = true
	result := rec.Run(context.Background())

	require.True(t, result.Success)
	assert.Empty(t, result.OutputFile)
	assert.Equal(t, 3, result.Table.Len())
	assert.NoDirExists(t, fx.cfg.OutputDir)
}

func TestRunFailures(t *testing.T) {
	t.Run("no plan files", func(t *testing.T) {
		fx := newFixture(t)

		result := New(fx.cfg, &recordingLogger{}).Run(context.Background())

		require.False(t, result.Success)
		assert.Contains(t, result.Error.Error(), "no plan files")
		logs, err := filepath.Glob(filepath.Join(fx.cfg.OutputDir, "error_log_*.txt"))
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	})

	t.Run("malformed plan", func(t *testing.T) {
		fx := newFixture(t, `"Spring","SITEA_Display_300x250_Pros","Site A","300x250","lots","5","5","",""`)

		result := New(fx.cfg, &recordingLogger{}).Run(context.Background())

		require.False(t, result.Success)
		assert.ErrorIs(t, result.Error, types.ErrParse)
	})

	t.Run("audit errors stop the run", func(t *testing.T) {
		// two plan lines for the same placement fan out and cannot balance
		fx := newFixture(t,
			sitePlanRow,
			`"Spring","SITEA_Display_300x250_Pros","Site A","728x90","200","5","1000","3/1/2024","3/31/2024"`,
		)
		stop := false
		fx.cfg.ContinueOnError = &stop

		result := New(fx.cfg, &recordingLogger{}).Run(context.Background())

		require.False(t, result.Success)
		assert.Contains(t, result.Error.Error(), "balance audit failed")
		assert.Positive(t, result.Stats.AuditErrors)
	})

	t.Run("canceled", func(t *testing.T) {
		fx := newFixture(t, sitePlanRow)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := New(fx.cfg, &recordingLogger{}).Run(ctx)

		assert.ErrorIs(t, result.Error, context.Canceled)
	})
}

func TestRunWarnsOnUnmatchedProgrammatic(t *testing.T) {
	fx := newFixture(t, sitePlanRow)
	other := table.New("Placement Name", "Spend")
	other.AppendRow(table.Text("SITEZ_Video_640x480_X"), table.Number(9))
	require.NoError(t, writer.WriteXLSX(filepath.Join(fx.cfg.ProgrammaticDir, "other.xlsx"), "Raw Data", other))
	logger := &recordingLogger{}

	result := New(fx.cfg, logger).Run(context.Background())

	require.True(t, result.Success)
	joined := strings.Join(logger.warnings, "\n")
	assert.Contains(t, joined, "other.xlsx matched no served rows")
	assert.Contains(t, joined, "has no served rows")
}
