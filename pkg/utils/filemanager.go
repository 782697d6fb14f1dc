// =============================================================================
// Campaign Reconciler - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for a reconciliation run:
//   - Input discovery (plan files, programmatic reports)
//   - Output directory management
//   - Output file naming
//   - Error and summary log generation
//
// Discovery is an explicit call made once per run; nothing is cached at
// package level.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a run.
type FileManager struct {
	// OutputDir is the directory where the reconciled report and logs are
	// placed.
	OutputDir string
}

// NewFileManager creates a new FileManager writing to outputDir.
func NewFileManager(outputDir string) *FileManager {
	return &FileManager{OutputDir: outputDir}
}

// EnsureDirectories creates the output directory and any extra directories
// if they don't exist. Empty entries are ignored.
func (fm *FileManager) EnsureDirectories(extra ...string) error {
	dirs := append([]string{fm.OutputDir}, extra...)

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// OutputPath joins a file name onto the output directory.
func (fm *FileManager) OutputPath(name string) string {
	return filepath.Join(fm.OutputDir, name)
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverFiles returns the regular files in dir matching the glob pattern,
// sorted by path. A missing directory yields no files.
//
// EXAMPLE:
//   DiscoverFiles("./inputs/plans", "*Media Plan*.csv")
func DiscoverFiles(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var result []string
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		// skip Excel lock files such as "~$plan.xlsx"
		if !info.IsDir() && !strings.HasPrefix(filepath.Base(file), "~$") {
			result = append(result, file)
		}
	}
	sort.Strings(result)

	return result, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//   - params: Extra placeholder values, e.g. {"month": "March"}.
//   - ext:    The extension to enforce, with its leading dot.
//
// EXAMPLE:
//   format: "reconciled_{date}_{uuid}"
//   ext:    ".xlsx"
//   output: "reconciled_20240408_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xlsx"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	Source       string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	Column       string
	Value        string
}

// WriteErrorLog writes error entries to a log file in outputDir and returns
// its path. Nothing is written for an empty list.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	header := fmt.Sprintf("Campaign Reconciler - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))
	writer.WriteString(header)

	for i, entry := range entries {
		entryStr := fmt.Sprintf("Error #%d\n"+
			"  Timestamp:  %s\n"+
			"  Source:     %s\n"+
			"  Error Type: %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Source,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.RowNumber > 0 {
			entryStr += fmt.Sprintf("  Row Number: %d\n", entry.RowNumber)
		}
		if entry.Column != "" {
			entryStr += fmt.Sprintf("  Column:     %s\n", entry.Column)
		}
		if entry.Value != "" {
			entryStr += fmt.Sprintf("  Value:      %s\n", entry.Value)
		}

		entryStr += "\n"
		writer.WriteString(entryStr)
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a reconciliation run.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	ServedReport      string
	PlanFiles         []string
	ProgrammaticFiles []string
	OutputFile        string

	ServedRows       int
	PlanPlacements   int
	OutputRows       int
	SpendKeys        int
	AuditErrors      int
	AuditWarnings    int
	CommitmentsFound int

	Failed       bool
	ErrorMessage string
}

// WriteSummaryLog writes a run summary to a log file in outputDir and
// returns its path.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("run_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	status := "SUCCESS"
	if summary.Failed {
		status = "FAILED"
	}
	duration := summary.EndTime.Sub(summary.StartTime)
	header := fmt.Sprintf("Campaign Reconciler - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Status:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Served Rows:        %d\n"+
		"  Plan Placements:    %d\n"+
		"  Spend Keys:         %d\n"+
		"  Output Rows:        %d\n"+
		"  Commitments:        %d\n"+
		"  Audit Errors:       %d\n"+
		"  Audit Warnings:     %d\n\n",
		summary.RunID,
		status,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.ServedRows,
		summary.PlanPlacements,
		summary.SpendKeys,
		summary.OutputRows,
		summary.CommitmentsFound,
		summary.AuditErrors,
		summary.AuditWarnings)
	writer.WriteString(header)

	writer.WriteString("Inputs:\n")
	writer.WriteString("--------------------------------------------------------------------------------\n")
	writer.WriteString(fmt.Sprintf("  Served report: %s\n", summary.ServedReport))
	for _, p := range summary.PlanFiles {
		writer.WriteString(fmt.Sprintf("  Plan:          %s\n", p))
	}
	for _, p := range summary.ProgrammaticFiles {
		writer.WriteString(fmt.Sprintf("  Programmatic:  %s\n", p))
	}
	writer.WriteString("\n")

	if summary.OutputFile != "" {
		writer.WriteString(fmt.Sprintf("Output: %s\n\n", summary.OutputFile))
	}
	if summary.Failed {
		writer.WriteString(fmt.Sprintf("Error: %s\n\n", summary.ErrorMessage))
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
