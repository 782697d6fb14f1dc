package merge

import (
	"regexp"
	"sort"

	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// KeyStrategy decides whether a column can serve as the placement key of a
// programmatic source.
type KeyStrategy interface {
	// Name identifies the strategy in error messages.
	Name() string

	// Qualifies reports whether the column values can be the key.
	Qualifies(values []table.Value) bool
}

// PatternStrategy qualifies a non-empty column whose every value matches a
// regular expression.
type PatternStrategy struct {
	Label   string
	Pattern *regexp.Regexp

	// Normalize, when set, is applied to each value before matching.
	Normalize func(string) string
}

// Name implements KeyStrategy.
func (s PatternStrategy) Name() string { return s.Label }

// Qualifies implements KeyStrategy.
func (s PatternStrategy) Qualifies(values []table.Value) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if v.IsNull() {
			return false
		}
		text := v.String()
		if s.Normalize != nil {
			text = s.Normalize(text)
		}
		if !s.Pattern.MatchString(text) {
			return false
		}
	}
	return true
}

var placementIDPattern = regexp.MustCompile(`^\d{9}$`)

// NumericIDStrategy matches nine-digit placement IDs. Spreadsheet values
// such as "123456789.0" and "123,456,789" are accepted.
func NumericIDStrategy() KeyStrategy {
	return PatternStrategy{Label: "numeric-id", Pattern: placementIDPattern, Normalize: trimIntegerFraction}
}

// VendorNameStrategy matches vendor placement names against pattern.
func VendorNameStrategy(pattern *regexp.Regexp) KeyStrategy {
	return PatternStrategy{Label: "vendor-name", Pattern: pattern}
}

// LocateKeyColumn returns the single column of t that any of the strategies
// qualifies. Zero columns, or several distinct columns (whether found by
// one strategy or by different ones), is an AmbiguousColumnError.
func LocateKeyColumn(t *table.Table, source string, strategies ...KeyStrategy) (string, error) {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name()
	}

	found := make(map[string]bool)
	for _, col := range t.Columns() {
		values := t.Column(col)
		for _, s := range strategies {
			if s.Qualifies(values) {
				found[col] = true
				break
			}
		}
	}

	if len(found) == 1 {
		for col := range found {
			return col, nil
		}
	}

	candidates := make([]string, 0, len(found))
	for col := range found {
		candidates = append(candidates, col)
	}
	sort.Strings(candidates)
	return "", &types.AmbiguousColumnError{Source: source, Strategies: names, Candidates: candidates}
}
