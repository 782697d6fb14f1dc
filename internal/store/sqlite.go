// Package store persists reconciled reports to a SQLite database so that
// runs can be queried after the output workbook has been handed off.
//
// Each run adds a row to report_runs and replaces the result table with the
// latest reconciled rows, tagged with the run ID.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/campaign-reconciler/internal/table"
)

// RunsTable holds one row per saved run.
const RunsTable = "report_runs"

// RunIDColumn is prepended to the result table.
const RunIDColumn = "run_id"

// RunInfo describes one reconciliation run.
type RunInfo struct {
	ID         uuid.UUID
	Generated  time.Time
	RangeStart time.Time
	RangeEnd   time.Time

	// Source is the served report the run started from.
	Source string
}

// NewRunInfo returns a RunInfo with a fresh random ID.
func NewRunInfo(source string, generated time.Time, dateRange [2]time.Time) RunInfo {
	return RunInfo{
		ID:         uuid.New(),
		Generated:  generated,
		RangeStart: dateRange[0],
		RangeEnd:   dateRange[1],
		Source:     source,
	}
}

// SaveRun records info and writes t to tableName in the database at path,
// inside a single transaction.
func SaveRun(ctx context.Context, path, tableName string, info RunInfo, t *table.Table) error {
	if tableName == "" || strings.EqualFold(tableName, RunsTable) {
		return fmt.Errorf("invalid result table name %q", tableName)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, info, t.Len()); err != nil {
		return err
	}
	if err := replaceTable(ctx, tx, tableName, info.ID, t); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, info RunInfo, rows int) error {
	create := `CREATE TABLE IF NOT EXISTS "` + RunsTable + `" (
		"id" TEXT PRIMARY KEY,
		"generated_at" TEXT,
		"range_start" TEXT,
		"range_end" TEXT,
		"source" TEXT,
		"row_count" INTEGER,
		"saved_at" TEXT
	)`
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create %s: %w", RunsTable, err)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO "`+RunsTable+`" ("id","generated_at","range_start","range_end","source","row_count","saved_at") VALUES (?,?,?,?,?,?,?)`,
		info.ID.String(),
		timeValue(info.Generated),
		timeValue(info.RangeStart),
		timeValue(info.RangeEnd),
		info.Source,
		rows,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// quoteIdent quotes an SQL identifier, doubling embedded double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func replaceTable(ctx context.Context, tx *sql.Tx, name string, runID uuid.UUID, t *table.Table) error {
	cols := t.Columns()

	defs := []string{quoteIdent(RunIDColumn) + " TEXT"}
	qCols := []string{quoteIdent(RunIDColumn)}
	for _, c := range cols {
		defs = append(defs, quoteIdent(c)+" "+columnType(t.Column(c)))
		qCols = append(qCols, quoteIdent(c))
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(name)); err != nil {
		return fmt.Errorf("failed to drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(name), strings.Join(defs, ","))); err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(qCols)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, quoteIdent(name), strings.Join(qCols, ","), ph))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for r := 0; r < t.Len(); r++ {
		args := make([]any, 0, len(qCols))
		args = append(args, runID.String())
		for _, v := range t.Row(r) {
			args = append(args, sqliteValue(v))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", r+1, err)
		}
	}
	return nil
}

// columnType is REAL when every non-empty cell is a number, TEXT otherwise.
func columnType(values []table.Value) string {
	numeric := false
	for _, v := range values {
		switch v.Kind() {
		case table.KindText:
			return "TEXT"
		case table.KindNumber:
			numeric = true
		}
	}
	if numeric {
		return "REAL"
	}
	return "TEXT"
}

func sqliteValue(v table.Value) any {
	switch v.Kind() {
	case table.KindNumber:
		f, _ := v.Float()
		return f
	case table.KindText:
		return v.String()
	default:
		return nil
	}
}

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
