// =============================================================================
// Campaign Reconciler - Reconciliation Pipeline
// =============================================================================
//
// This module orchestrates one reconciliation run, from the raw exports to
// the reconciled report.
//
// PIPELINE:
//   1. Load the served report (preamble and footer removed)
//   2. Discover and parse the media plans, exploding packages
//   3. Merge the plan into the served rows and redistribute plan measures
//   4. Discover and load programmatic reports, merge their spend
//   5. Audit that every join key still balances
//   6. Add pacing columns (media type, monthly commitment)
//   7. Write the output file, and optionally the SQLite copy
//   8. Write the run summary
//
// CONCURRENCY:
//   Plan files and programmatic reports are read in parallel, bounded by
//   max_concurrency. Merging is sequential.
//
// =============================================================================

package reconciler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/internal/merge"
	"github.com/ginjaninja78/campaign-reconciler/internal/pacing"
	"github.com/ginjaninja78/campaign-reconciler/internal/plan"
	"github.com/ginjaninja78/campaign-reconciler/internal/served"
	"github.com/ginjaninja78/campaign-reconciler/internal/store"
	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
	"github.com/ginjaninja78/campaign-reconciler/internal/validation"
	"github.com/ginjaninja78/campaign-reconciler/internal/writer"
	"github.com/ginjaninja78/campaign-reconciler/internal/xlsxparser"
	"github.com/ginjaninja78/campaign-reconciler/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of a run.
type Result struct {
	// RunID identifies the run in logs, file names and SQLite.
	RunID string

	// OutputFile is the path to the reconciled report.
	// This is empty if the run failed or was a dry run.
	OutputFile string

	// SQLitePath is set when the rows were also stored in SQLite.
	SQLitePath string

	// Table is the reconciled table. Nil if the run failed.
	Table *table.Table

	// Audit holds the balance audit of both merges.
	Audit *validation.Result

	// Success indicates whether the run completed.
	Success bool

	// Error contains the error if the run failed.
	Error error

	// Stats contains run statistics.
	Stats Stats
}

// Stats contains statistics about a run.
type Stats struct {
	ServedRows     int
	PlanFiles      int
	PlanPlacements int

	ProgrammaticFiles int
	SpendKeys         int

	OutputRows    int
	AuditErrors   int
	AuditWarnings int
	Commitments   int

	ProcessingTime time.Duration
}

// =============================================================================
// RECONCILER STRUCTURE
// =============================================================================

// Reconciler runs the pipeline for one configuration.
type Reconciler struct {
	cfg    *config.Config
	logger Logger
	loader *xlsxparser.Loader
	files  *utils.FileManager

	// DryRun runs every step but writes nothing.
	DryRun bool
}

// New creates a Reconciler. A nil logger logs to stdout at the configured
// level.
func New(cfg *config.Config, logger Logger) *Reconciler {
	if logger == nil {
		logger = NewSlogLogger(os.Stdout, cfg.LogLevel)
	}
	return &Reconciler{
		cfg:    cfg,
		logger: logger,
		loader: xlsxparser.NewLoader(cfg.ProgrammaticSheet, cfg.CSVSettings),
		files:  utils.NewFileManager(cfg.OutputDir),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline. It stops at the first failing step; the
// returned Result then carries the error and no report is written.
func (r *Reconciler) Run(ctx context.Context) Result {
	startTime := time.Now()
	info := store.NewRunInfo(r.cfg.ServedReport, time.Time{}, [2]time.Time{})
	result := Result{RunID: info.ID.String()}
	summary := utils.RunSummary{RunID: result.RunID, StartTime: startTime, ServedReport: r.cfg.ServedReport}

	fail := func(err error) Result {
		result.Error = err
		result.Stats.ProcessingTime = time.Since(startTime)
		r.logger.Error("Run %s failed: %v", result.RunID, err)
		if !r.DryRun {
			r.writeFailureLogs(summary, err)
		}
		return result
	}

	// =========================================================================
	// STEP 1: SERVED REPORT
	// =========================================================================

	r.logger.Info("Run %s: loading served report %s", result.RunID, r.cfg.ServedReport)

	report, err := served.Load(r.cfg.ServedReport, r.cfg.CSVSettings)
	if err != nil {
		return fail(fmt.Errorf("failed to load served report: %w", err))
	}
	info.Generated = report.DateGenerated
	info.RangeStart, info.RangeEnd = report.DateRange[0], report.DateRange[1]
	result.Stats.ServedRows = report.Table.Len()
	summary.ServedRows = report.Table.Len()
	r.logger.Debug("Served report has %d rows, period ending %s", report.Table.Len(), report.PeriodEnd().Format("2006-01-02"))

	// =========================================================================
	// STEP 2: MEDIA PLANS
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	planFiles, err := utils.DiscoverFiles(r.cfg.PlanDir, r.cfg.PlanPattern)
	if err != nil {
		return fail(err)
	}
	if len(planFiles) == 0 {
		return fail(fmt.Errorf("no plan files matching %q in %s", r.cfg.PlanPattern, r.cfg.PlanDir))
	}
	summary.PlanFiles = planFiles
	result.Stats.PlanFiles = len(planFiles)

	records, err := plan.ParseFiles(planFiles, r.cfg.CSVSettings, r.cfg.MaxConcurrency)
	if err != nil {
		return fail(err)
	}
	result.Stats.PlanPlacements = len(records)
	summary.PlanPlacements = len(records)
	r.logger.Info("Parsed %d plan file(s): %s", len(planFiles), plan.Summary(records))

	// =========================================================================
	// STEP 3: PLAN MERGE
	// =========================================================================

	planOpts := merge.PlanOptions{
		JoinOn:               r.cfg.Merge.PlanJoinOn,
		SortBy:               r.cfg.Merge.SortBy,
		RedistributeMeasures: r.cfg.Merge.RedistributePlanMeasures,
	}
	merged, err := merge.WithPlan(report.Table, records, planOpts)
	if err != nil {
		return fail(fmt.Errorf("failed to merge plan: %w", err))
	}
	audit := validation.AuditPlan(merged, records, planOpts.JoinOn, planOpts.RedistributeMeasures)
	r.logger.Debug("Plan merge produced %d rows", merged.Len())

	// =========================================================================
	// STEP 4: PROGRAMMATIC SPEND
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	merged, spendAudit, err := r.mergeProgrammatic(merged, &result, &summary)
	if err != nil {
		return fail(err)
	}
	if spendAudit != nil {
		audit.Merge(spendAudit)
	}

	// =========================================================================
	// STEP 5: BALANCE AUDIT
	// =========================================================================

	result.Audit = audit
	result.Stats.AuditErrors = audit.ErrorCount
	result.Stats.AuditWarnings = audit.WarningCount
	summary.AuditErrors, summary.AuditWarnings = audit.ErrorCount, audit.WarningCount

	for _, issue := range audit.Issues {
		r.logger.Warn("Audit: %s", issue.Error())
	}
	if len(audit.Issues) > 0 && !r.DryRun {
		if err := r.files.EnsureDirectories(); err == nil {
			logPath := r.files.OutputPath(fmt.Sprintf("audit_%s.log", result.RunID))
			if err := validation.WriteErrorLog(audit, logPath); err != nil {
				r.logger.Warn("Failed to write audit log: %v", err)
			}
		}
	}
	if !audit.IsValid && !r.cfg.ShouldContinueOnError() {
		return fail(fmt.Errorf("balance audit failed with %d error(s)", audit.ErrorCount))
	}

	// =========================================================================
	// STEP 6: PACING
	// =========================================================================

	if r.cfg.PacingEnabled() {
		if report.PeriodEnd().IsZero() {
			r.logger.Warn("Served report has no date range; skipping pacing")
		} else {
			stats := pacing.Apply(merged, report.PeriodEnd())
			result.Stats.Commitments = stats.Computed
			summary.CommitmentsFound = stats.Computed
			r.logger.Debug("Pacing computed %d commitment(s), skipped %d", stats.Computed, stats.Skipped)
		}
	}

	result.Table = merged
	result.Stats.OutputRows = merged.Len()
	summary.OutputRows = merged.Len()

	if r.DryRun {
		r.logger.Info("Dry run: %d rows reconciled, nothing written", merged.Len())
		result.Success = true
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	// =========================================================================
	// STEP 7: OUTPUT
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	sqliteDir := ""
	if r.cfg.SQLitePath != "" {
		sqliteDir = filepath.Dir(r.cfg.SQLitePath)
	}
	if err := r.files.EnsureDirectories(sqliteDir); err != nil {
		return fail(err)
	}

	outOpts := writer.Options{Format: r.cfg.OutputFormat, Sheet: r.cfg.OutputSheet}
	params := map[string]string{}
	if !report.PeriodEnd().IsZero() {
		params["month"] = report.PeriodEnd().Month().String()
	}
	outputPath := r.files.OutputPath(utils.GenerateOutputFileName(r.cfg.OutputNameFormat, params, outOpts.Extension()))
	if err := writer.Write(outputPath, merged, outOpts); err != nil {
		return fail(fmt.Errorf("failed to write output: %w", err))
	}
	result.OutputFile = outputPath
	summary.OutputFile = outputPath
	r.logger.Info("Wrote %d rows to %s", merged.Len(), outputPath)

	if r.cfg.SQLitePath != "" {
		if err := store.SaveRun(ctx, r.cfg.SQLitePath, r.cfg.SQLiteTable, info, merged); err != nil {
			return fail(fmt.Errorf("failed to save run to SQLite: %w", err))
		}
		result.SQLitePath = r.cfg.SQLitePath
		r.logger.Info("Stored run in %s (table %s)", r.cfg.SQLitePath, r.cfg.SQLiteTable)
	}

	// =========================================================================
	// STEP 8: SUMMARY
	// =========================================================================

	summary.EndTime = time.Now()
	if _, err := utils.WriteSummaryLog(summary, r.cfg.OutputDir); err != nil {
		r.logger.Warn("Failed to write run summary: %v", err)
	}

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)
	return result
}

// mergeProgrammatic merges the spend of every discovered programmatic
// report. It returns merged unchanged, with a nil audit, when there are no
// reports.
func (r *Reconciler) mergeProgrammatic(merged *table.Table, result *Result, summary *utils.RunSummary) (*table.Table, *validation.Result, error) {
	files, err := utils.DiscoverFiles(r.cfg.ProgrammaticDir, r.cfg.ProgrammaticPattern)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		r.logger.Info("No programmatic reports in %s; skipping spend merge", r.cfg.ProgrammaticDir)
		return merged, nil, nil
	}
	summary.ProgrammaticFiles = files
	result.Stats.ProgrammaticFiles = len(files)

	tables, err := r.loader.LoadAll(files, r.cfg.MaxConcurrency)
	if err != nil {
		return nil, nil, err
	}
	sources := make([]merge.Source, len(files))
	for i, f := range files {
		sources[i] = merge.Source{Name: f, Table: tables[i]}
	}

	pattern, err := regexp.Compile(r.cfg.Merge.PlacementNamePattern)
	if err != nil {
		return nil, nil, &types.ConfigurationError{Field: "merge.placement_name_pattern", Message: err.Error()}
	}
	opts := merge.ProgrammaticOptions{
		JoinOn:      r.cfg.Merge.ProgrammaticJoinOn,
		SpendColumn: r.cfg.Merge.SpendColumn,
		CostColumn:  r.cfg.Merge.CostColumn,
		WeightBy:    r.cfg.Merge.SpendWeightBy,
		NamePattern: pattern,
	}

	ledger, err := merge.SpendLedger(sources, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read programmatic spend: %w", err)
	}
	for _, name := range ledger.UnmatchedSources(merged) {
		r.logger.Warn("Programmatic report %s matched no served rows", name)
	}

	out, err := merge.ApplyLedger(merged, ledger, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to merge programmatic spend: %w", err)
	}
	result.Stats.SpendKeys = ledger.Len()
	summary.SpendKeys = ledger.Len()
	r.logger.Info("Merged spend for %d key(s) from %d report(s), %.2f total", ledger.Len(), len(files), ledger.TotalSpend())

	return out, validation.AuditSpend(out, ledger, opts.JoinOn, opts.SpendColumn), nil
}

// writeFailureLogs records a failed run in the output directory.
func (r *Reconciler) writeFailureLogs(summary utils.RunSummary, err error) {
	if dirErr := r.files.EnsureDirectories(); dirErr != nil {
		r.logger.Warn("Failed to create output directory: %v", dirErr)
		return
	}

	entry := utils.ErrorLogEntry{
		Timestamp:    time.Now(),
		ErrorType:    errorType(err),
		ErrorMessage: err.Error(),
	}
	var parseErr *types.ParseError
	if errors.As(err, &parseErr) {
		entry.Source = parseErr.Source
		entry.RowNumber = parseErr.Row
		entry.Column = parseErr.Column
		entry.Value = parseErr.Value
	}
	if _, logErr := utils.WriteErrorLog([]utils.ErrorLogEntry{entry}, r.cfg.OutputDir); logErr != nil {
		r.logger.Warn("Failed to write error log: %v", logErr)
	}

	summary.EndTime = time.Now()
	summary.Failed = true
	summary.ErrorMessage = err.Error()
	if _, logErr := utils.WriteSummaryLog(summary, r.cfg.OutputDir); logErr != nil {
		r.logger.Warn("Failed to write run summary: %v", logErr)
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, types.ErrParse):
		return "parse"
	case errors.Is(err, types.ErrConfiguration):
		return "configuration"
	case errors.Is(err, types.ErrAmbiguousColumn):
		return "ambiguous_column"
	case errors.Is(err, types.ErrDivision):
		return "division"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "io"
	}
}
