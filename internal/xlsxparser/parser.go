// =============================================================================
// Campaign Reconciler - Programmatic Workbook Loader
// =============================================================================
//
// Programmatic platforms deliver spend as XLSX workbooks (sometimes CSV).
// Every workbook has one sheet of interest whose first non-empty row is the
// header:
//
//   | Date     | Line Item ID | Placement Name             | Impressions | Spend |
//   |----------|--------------|----------------------------|-------------|-------|
//   | 3/1/2024 | 123456789    | SITEA_Display_300x250_Pros | 1000        | 12.50 |
//
// Loader caches the parsed tables by path so that a workbook shared by
// several runs in one process is only read once. The cache belongs to the
// Loader value; there is no package-level state.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/internal/csvparser"
	"github.com/ginjaninja78/campaign-reconciler/internal/table"
)

// ReadSheet reads one worksheet as a table. An empty sheet name selects the
// first sheet. Rows before the first non-empty row and empty rows inside the
// body are skipped.
func ReadSheet(path, sheet string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	} else if !hasSheet(f, sheet) {
		return nil, fmt.Errorf("sheet %q not found (sheets: %s)", sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var header []string
	var body [][]string
	for _, row := range rows {
		if csvparser.IsRowEmpty(row) {
			continue
		}
		if header == nil {
			header = row
			continue
		}
		body = append(body, row)
	}
	if header == nil {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	return table.FromRecords(header, body), nil
}

func hasSheet(f *excelize.File, name string) bool {
	for _, s := range f.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

// =============================================================================
// LOADER
// =============================================================================

// Loader reads programmatic sources and caches them by path.
type Loader struct {
	// Sheet is the worksheet read from each workbook. Empty selects the
	// first sheet.
	Sheet string

	// CSV configures how .csv sources are read.
	CSV config.CSVSettings

	mu    sync.Mutex
	cache map[string]*table.Table
}

// NewLoader returns a Loader with an empty cache.
func NewLoader(sheet string, csv config.CSVSettings) *Loader {
	return &Loader{Sheet: sheet, CSV: csv, cache: make(map[string]*table.Table)}
}

// Load returns the table for path, reading it on first use. Callers must not
// modify the returned table.
func (l *Loader) Load(path string) (*table.Table, error) {
	l.mu.Lock()
	if t, ok := l.cache[path]; ok {
		l.mu.Unlock()
		return t, nil
	}
	l.mu.Unlock()

	var t *table.Table
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		t, err = csvparser.ReadTable(path, l.CSV)
	} else {
		t, err = ReadSheet(path, l.Sheet)
	}
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache == nil {
		l.cache = make(map[string]*table.Table)
	}
	if cached, ok := l.cache[path]; ok {
		return cached, nil
	}
	l.cache[path] = t
	return t, nil
}

// Cached reports how many sources are held in the cache.
func (l *Loader) Cached() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

type loadResult struct {
	index int
	table *table.Table
	err   error
}

// LoadAll loads paths concurrently, at most maxConcurrency at a time, and
// returns the tables in path order. The first failing path, in path order,
// is reported.
func (l *Loader) LoadAll(paths []string, maxConcurrency int) ([]*table.Table, error) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	var wg sync.WaitGroup
	results := make(chan loadResult, len(paths))
	sem := make(chan struct{}, maxConcurrency)

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			t, err := l.Load(path)
			results <- loadResult{index: index, table: t, err: err}
		}(i, path)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]loadResult, len(paths))
	for res := range results {
		ordered[res.index] = res
	}

	tables := make([]*table.Table, len(paths))
	for i, res := range ordered {
		if res.err != nil {
			return nil, fmt.Errorf("failed to load programmatic report %s: %w", paths[i], res.err)
		}
		tables[i] = res.table
	}
	return tables, nil
}
