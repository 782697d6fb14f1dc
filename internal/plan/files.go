package plan

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/internal/csvparser"
	"github.com/ginjaninja78/campaign-reconciler/internal/types"
)

// ParseFile reads and parses one plan CSV.
func ParseFile(path string, settings config.CSVSettings) ([]types.PlacementRecord, error) {
	records, err := csvparser.ReadFile(path, settings)
	if err != nil {
		return nil, err
	}

	raw, err := NewRawPlan(records)
	if err != nil {
		return nil, withSource(err, path)
	}
	raw.Source = path

	return Parse(raw)
}

// fileResult carries one worker's output back to ParseFiles.
type fileResult struct {
	index   int
	records []types.PlacementRecord
	err     error
}

// ParseFiles parses plan files concurrently, at most maxConcurrency at a
// time. Records are concatenated in path order once every file is done. The
// first failing path, in path order, is reported.
func ParseFiles(paths []string, settings config.CSVSettings, maxConcurrency int) ([]types.PlacementRecord, error) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	var wg sync.WaitGroup
	results := make(chan fileResult, len(paths))
	sem := make(chan struct{}, maxConcurrency)

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			records, err := ParseFile(path, settings)
			results <- fileResult{index: index, records: records, err: err}
		}(i, path)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]fileResult, len(paths))
	for res := range results {
		ordered[res.index] = res
	}

	var all []types.PlacementRecord
	for i, res := range ordered {
		if res.err != nil {
			return nil, fmt.Errorf("failed to parse plan %s: %w", paths[i], res.err)
		}
		all = append(all, res.records...)
	}
	return all, nil
}

// WriteCSV saves placement records with the plan column header.
func WriteCSV(w io.Writer, records []types.PlacementRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(types.PlanColumns); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.CampaignName,
			r.PlacementName,
			strconv.FormatFloat(r.PlannedUnits, 'f', -1, 64),
			strconv.FormatFloat(r.PlannedCost, 'f', -1, 64),
			strconv.FormatFloat(r.Rate, 'f', -1, 64),
			r.StartDate,
			r.EndDate,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func withSource(err error, path string) error {
	if pe, ok := err.(*types.ParseError); ok {
		pe.Source = path
	}
	return err
}
