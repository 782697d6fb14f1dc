// =============================================================================
// Campaign Reconciler - Balance Audit
// =============================================================================
//
// Redistribution must not create or lose volume: after a merge, the rows of
// every join key must add up to what the source said for that key. The audit
// recomputes those totals with exact decimal arithmetic and reports every
// key that does not balance.
//
// CHECKS:
//   - Plan   : sum of each plan measure over the merged rows of a key equals
//              the plan value for that key
//   - Spend  : sum of spend over the merged rows of a key equals the ledger
//              total for that key
//
// SEVERITY:
//   - error   : the key is present on both sides and the totals differ
//   - warning : the source has a key the served report does not, so its
//               volume is missing from the output
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/campaign-reconciler/internal/merge"
	"github.com/ginjaninja78/campaign-reconciler/internal/plan"
	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Tolerance is the largest absolute difference treated as balanced.
const Tolerance = "0.000001"

// =============================================================================
// ISSUES
// =============================================================================

// Issue is one key whose totals do not balance.
type Issue struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Check names the audit that raised the issue ("plan" or "spend").
	Check string

	// Key is the printable join key, e.g. "(Spring, P1)".
	Key string

	// Measure is the audited column.
	Measure string

	// Expected is the source total. Actual is the merged total, empty when
	// the key has no merged rows.
	Expected string
	Actual   string
}

// Error implements the error interface.
func (i *Issue) Error() string {
	if i.Actual == "" {
		return fmt.Sprintf("[%s] %s %s: key %s has no served rows (expected %s)",
			strings.ToUpper(i.Severity), i.Check, i.Measure, i.Key, i.Expected)
	}
	return fmt.Sprintf("[%s] %s %s: key %s totals %s, expected %s",
		strings.ToUpper(i.Severity), i.Check, i.Measure, i.Key, i.Actual, i.Expected)
}

// Result collects the issues of one or more audits.
type Result struct {
	// IsValid is true when no issue has error severity.
	IsValid bool

	Issues       []*Issue
	ErrorCount   int
	WarningCount int

	// KeysChecked counts the keys compared, across audits.
	KeysChecked int
}

// NewResult returns an empty, valid result.
func NewResult() *Result {
	return &Result{IsValid: true}
}

func (r *Result) add(issue *Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
		return
	}
	r.WarningCount++
}

// Merge appends the issues of other.
func (r *Result) Merge(other *Result) {
	for _, issue := range other.Issues {
		r.add(issue)
	}
	r.KeysChecked += other.KeysChecked
}

// =============================================================================
// AUDITS
// =============================================================================

// AuditPlan checks that the plan measures of merged balance against records
// per join key. Distinct plan records sharing a key are summed.
func AuditPlan(merged *table.Table, records []types.PlacementRecord, joinOn, measures []string) *Result {
	planTable := plan.ToTable(records).Distinct()

	result := NewResult()
	for _, m := range measures {
		expected, order := totalsByKey(planTable, joinOn, m)
		actual, _ := totalsByKey(merged, joinOn, m)
		compare(result, "plan", m, order, expected, actual)
	}
	return result
}

// AuditSpend checks that the spend column of merged balances against the
// ledger per join key.
func AuditSpend(merged *table.Table, ledger *merge.Ledger, joinOn []string, spendColumn string) *Result {
	expected := make(map[string]amount, ledger.Len())
	order := ledger.Keys()
	for _, k := range order {
		total, _ := ledger.Total(k)
		expected[k] = amountOf(total)
	}
	actual, _ := totalsByKey(merged, joinOn, spendColumn)

	result := NewResult()
	compare(result, "spend", spendColumn, order, expected, actual)
	return result
}

// totalsByKey sums the numeric cells of column per normalized join key.
// Null and non-numeric cells are skipped; keys with no numeric cell are
// absent from the map.
func totalsByKey(t *table.Table, joinOn []string, column string) (map[string]amount, []string) {
	totals := make(map[string]amount)
	var order []string
	if !t.HasColumn(column) || len(t.MissingColumns(joinOn...)) > 0 {
		return totals, order
	}
	for r := 0; r < t.Len(); r++ {
		f, err := t.Get(r, column).Float()
		if err != nil {
			continue
		}
		k := merge.JoinKey(t, r, joinOn, joinOn)
		sum, ok := totals[k]
		if !ok {
			order = append(order, k)
		}
		totals[k] = sum.Add(amountOf(f))
	}
	return totals, order
}

func compare(result *Result, check, measure string, order []string, expected, actual map[string]amount) {
	tolerance, _ := newAmount(Tolerance)

	for _, k := range order {
		result.KeysChecked++
		want := expected[k]
		got, ok := actual[k]
		if !ok {
			result.add(&Issue{
				Severity: SeverityWarning,
				Check:    check,
				Key:      printable(k),
				Measure:  measure,
				Expected: want.String(),
			})
			continue
		}
		if got.Sub(want).Abs().Cmp(tolerance) > 0 {
			result.add(&Issue{
				Severity: SeverityError,
				Check:    check,
				Key:      printable(k),
				Measure:  measure,
				Expected: want.String(),
				Actual:   got.String(),
			})
		}
	}
}

func printable(key string) string {
	return "(" + strings.Join(table.SplitKey(key), ", ") + ")"
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatIssues formats audit issues for display or logging.
func FormatIssues(issues []*Issue) string {
	if len(issues) == 0 {
		return "All keys balance."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Audit completed with %d issue(s):\n\n", len(issues)))
	for i, issue := range issues {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Error()))
	}
	return builder.String()
}

// WriteErrorLog writes the audit result to filePath.
func WriteErrorLog(result *Result, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Balance audit - %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(writer, "Keys checked: %d, errors: %d, warnings: %d\n\n",
		result.KeysChecked, result.ErrorCount, result.WarningCount)
	writer.WriteString(FormatIssues(result.Issues))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
