package merge

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/ginjaninja78/campaign-reconciler/internal/table"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

var (
	integerFraction = regexp.MustCompile(`^(\d+)\.0+$`)
	groupedInteger  = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.0+)?$`)
)

// trimIntegerFraction turns "123456789.0" into "123456789". Spreadsheet
// display forms with thousands separators, such as "123,456,789", lose
// the separators too.
func trimIntegerFraction(s string) string {
	if groupedInteger.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	if m := integerFraction.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// normalizeKeyPart makes join values from different exports comparable.
// Values are trimmed and whole numbers lose a zero fraction. Date columns
// are reduced to the calendar day.
func normalizeKeyPart(column string, v table.Value) string {
	s := strings.TrimSpace(v.String())
	if s == "" {
		return ""
	}
	if strings.EqualFold(column, types.ColumnDate) {
		if d, err := dateparse.ParseIn(s, time.UTC); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return trimIntegerFraction(s)
}

// JoinKey builds the normalized join key of a row. keyColumns are read from
// t and named by joinOn for normalization; the two differ when a source
// names its placement key column differently.
func JoinKey(t *table.Table, row int, keyColumns, joinOn []string) string {
	parts := make([]string, len(keyColumns))
	for i, c := range keyColumns {
		parts[i] = normalizeKeyPart(joinOn[i], t.Get(row, c))
	}
	return strings.Join(parts, "\x1f")
}
