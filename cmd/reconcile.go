// =============================================================================
// Campaign Reconciler - Reconcile Command
// =============================================================================
//
// This file defines the 'reconcile' command, which runs the full pipeline for
// one served report.
//
// COMMAND USAGE:
//   reconciler reconcile [flags]
//
// FLAGS:
//   --served   : Served report to reconcile (overrides served_report)
//   --format   : Output format, xlsx or csv (overrides output_format)
//   --sqlite   : Also store the rows in this SQLite file
//   --dry-run  : Run every step but write nothing
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/internal/reconciler"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
	"github.com/ginjaninja78/campaign-reconciler/internal/writer"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	servedPath   string
	outputFormat string
	sqlitePath   string
	dryRun       bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile the served report with media plans and programmatic spend",
	Long: `The reconcile command loads the served report, explodes and merges every
media plan found in plan_dir, merges the spend of every programmatic report
found in programmatic_dir, audits that each join key still balances, and
writes the reconciled table to output_dir.

On failure an error log and a run summary are written to output_dir and the
command exits with a non-zero status.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyOverrides(cfg); err != nil {
			return err
		}
		return runReconcile(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&servedPath, "served", "", "Served report to reconcile")
	reconcileCmd.Flags().StringVar(&outputFormat, "format", "", "Output format (xlsx or csv)")
	reconcileCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Also store the reconciled rows in this SQLite file")
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run every step but write nothing")
}

// applyOverrides copies command-line flags over the loaded configuration.
func applyOverrides(cfg *config.Config) error {
	if servedPath != "" {
		cfg.ServedReport = servedPath
	}
	if sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if outputFormat != "" {
		f := strings.ToLower(outputFormat)
		if f != writer.FormatCSV && f != writer.FormatXLSX {
			return &types.ConfigurationError{Field: "output_format", Message: fmt.Sprintf("unsupported format %q (want xlsx or csv)", outputFormat)}
		}
		cfg.OutputFormat = f
	}
	return nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runReconcile(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()

	logWriter := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logWriter = io.MultiWriter(os.Stdout, f)
	}
	logger := reconciler.NewSlogLogger(logWriter, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintln(out, "=== Campaign Reconciler ===")

	rec := reconciler.New(cfg, logger)
	rec.DryRun = dryRun
	result := rec.Run(ctx)

	if !result.Success {
		fmt.Fprintf(out, "  ✗ %s: %v\n", filepath.Base(cfg.ServedReport), result.Error)
		fmt.Fprintln(out, "\nThe error has been logged to the output directory.")
		return result.Error
	}

	switch {
	case dryRun:
		fmt.Fprintf(out, "  ✓ %s (dry run, nothing written)\n", filepath.Base(cfg.ServedReport))
	default:
		fmt.Fprintf(out, "  ✓ %s -> %s\n", filepath.Base(cfg.ServedReport), result.OutputFile)
	}
	if result.SQLitePath != "" {
		fmt.Fprintf(out, "  ✓ stored in %s\n", result.SQLitePath)
	}

	s := result.Stats
	fmt.Fprintln(out, "\n=== Reconciliation Complete ===")
	fmt.Fprintf(out, "Run ID:             %s\n", result.RunID)
	fmt.Fprintf(out, "Served rows:        %d\n", s.ServedRows)
	fmt.Fprintf(out, "Plan files:         %d (%d placements)\n", s.PlanFiles, s.PlanPlacements)
	fmt.Fprintf(out, "Programmatic files: %d (%d keys)\n", s.ProgrammaticFiles, s.SpendKeys)
	fmt.Fprintf(out, "Output rows:        %d\n", s.OutputRows)
	fmt.Fprintf(out, "Commitments:        %d\n", s.Commitments)
	fmt.Fprintf(out, "Audit:              %d error(s), %d warning(s)\n", s.AuditErrors, s.AuditWarnings)
	fmt.Fprintf(out, "Time elapsed:       %s\n", s.ProcessingTime)

	return nil
}
