package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/preprocess"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/rs/zerolog/log"
)

// Analyzer is the external statistics/constraints engine. It consumes the
// filtered dataset of one run and produces the violations and statistics
// documents. The analysis algorithms themselves live outside this module.
type Analyzer interface {
	Analyze(ctx context.Context, datasetPath string, batch *preprocess.FilteredBatch) (*ViolationsReport, *StatisticsReport, error)
}

// Window is the capture interval one monitoring run covers.
type Window struct {
	From time.Time
	To   time.Time
}

// Result summarizes one monitoring run.
type Result struct {
	Window            Window
	CapturedRecords   int
	Included          int
	ExcludedTest      int
	ExcludedMalformed int
	DatasetPath       string
	Violations        *ViolationsReport
	Statistics        *StatisticsReport
}

// Runner executes monitoring runs for one endpoint: read the capture window,
// apply the preprocessing filter, hand the filtered dataset to the analysis
// engine. Runs hold no state between invocations.
type Runner struct {
	endpointName string
	store        *capture.Store
	preprocessor *preprocess.Preprocessor
	analyzer     Analyzer
	outputRoot   string
}

func NewRunner(endpointName string, store *capture.Store, preprocessor *preprocess.Preprocessor, analyzer Analyzer, outputRoot string) (*Runner, error) {
	if endpointName == "" {
		return nil, fmt.Errorf("endpoint name is empty")
	}
	if store == nil {
		return nil, fmt.Errorf("capture store is nil")
	}
	if preprocessor == nil {
		return nil, fmt.Errorf("preprocessor is nil")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is nil")
	}
	if outputRoot == "" {
		return nil, fmt.Errorf("output root is empty")
	}
	return &Runner{
		endpointName: endpointName,
		store:        store,
		preprocessor: preprocessor,
		analyzer:     analyzer,
		outputRoot:   outputRoot,
	}, nil
}

// Run executes one monitoring pass over the window. An empty capture window
// is a normal path: the run completes with zero records and an empty dataset.
func (r *Runner) Run(ctx context.Context, window Window) (*Result, error) {
	start := time.Now()
	tags := []string{"endpoint:" + r.endpointName}

	records, err := r.store.ReadWindow(r.endpointName, window.From, window.To)
	if err != nil {
		metric.Incr("monitor_run_error", append(tags, "stage:read"))
		return nil, fmt.Errorf("failed to read capture window: %w", err)
	}

	batch, err := r.preprocessor.Filter(records)
	if err != nil {
		metric.Incr("monitor_run_error", append(tags, "stage:preprocess"))
		return nil, fmt.Errorf("preprocessing failed: %w", err)
	}

	datasetPath, err := r.writeDataset(window, batch)
	if err != nil {
		metric.Incr("monitor_run_error", append(tags, "stage:dataset"))
		return nil, err
	}

	violations, statistics, err := r.analyzer.Analyze(ctx, datasetPath, batch)
	if err != nil {
		metric.Incr("monitor_run_error", append(tags, "stage:analyze"))
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	metric.Count("monitor_records_included", int64(batch.Included), tags)
	metric.Count("monitor_records_excluded_test", int64(batch.ExcludedTest), tags)
	metric.Count("monitor_records_excluded_malformed", int64(batch.ExcludedMalformed), tags)
	metric.Timing("monitor_run_duration", time.Since(start), tags)

	log.Info().
		Str("endpoint", r.endpointName).
		Time("from", window.From).Time("to", window.To).
		Int("captured", len(records)).
		Int("included", batch.Included).
		Int("excludedTest", batch.ExcludedTest).
		Int("excludedMalformed", batch.ExcludedMalformed).
		Msg("Monitoring run completed")

	return &Result{
		Window:            window,
		CapturedRecords:   len(records),
		Included:          batch.Included,
		ExcludedTest:      batch.ExcludedTest,
		ExcludedMalformed: batch.ExcludedMalformed,
		DatasetPath:       datasetPath,
		Violations:        violations,
		Statistics:        statistics,
	}, nil
}

// writeDataset materializes the filtered batch as the CSV dataset the
// analysis engine reads, one file per run window.
func (r *Runner) writeDataset(window Window, batch *preprocess.FilteredBatch) (string, error) {
	dir := filepath.Join(r.outputRoot, r.endpointName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create dataset directory: %w", err)
	}

	name := fmt.Sprintf("filtered-%s-%s.csv",
		window.From.UTC().Format("20060102T150405"), window.To.UTC().Format("20060102T150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer f.Close()

	if err := batch.WriteCSV(f); err != nil {
		return "", fmt.Errorf("failed to write dataset file: %w", err)
	}
	return path, nil
}
