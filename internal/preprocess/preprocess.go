package preprocess

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Meesho/BharatMLStack/vigil/internal/baseline"
	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
)

// FilteredBatch is the classifier output for one monitoring run: the payloads
// of all included records, in capture order, stripped of classification
// metadata and shaped exactly like the baseline dataset.
type FilteredBatch struct {
	Columns []string
	Rows    [][]string

	Included          int
	ExcludedTest      int
	ExcludedMalformed int
}

// Preprocessor applies a classification policy to captured batches. It holds
// no per-batch state and is safe to invoke concurrently across independent
// batches.
type Preprocessor struct {
	schema baseline.Schema
	policy Policy
}

// NewPreprocessor validates the filtering rule against the baseline schema.
// Schema problems are design-time contract violations, caught here rather
// than per record.
func NewPreprocessor(schema baseline.Schema, policy Policy) (*Preprocessor, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid baseline schema: %w", err)
	}
	if policy == nil {
		policy = TestIndicatorPolicy{}
	}
	return &Preprocessor{schema: schema, policy: policy}, nil
}

// Filter partitions the batch into analyze/exclude and emits the analyze
// subset. The partition is stable: included records keep their relative
// capture order. An empty input batch yields an empty batch, not an error.
//
// An included record whose payload does not line up with the baseline schema
// fails the whole batch: the downstream engine compares columns by position,
// so emitting it would corrupt every statistic computed after it.
func (p *Preprocessor) Filter(records []capture.Record) (*FilteredBatch, error) {
	batch := &FilteredBatch{
		Columns: p.schema.Columns,
		Rows:    make([][]string, 0, len(records)),
	}

	for _, rec := range records {
		switch p.policy.Evaluate(rec) {
		case Include:
			if err := p.schema.Matches(rec.Input); err != nil {
				return nil, fmt.Errorf("record %s does not match baseline schema: %w", rec.EventID, err)
			}
			row, err := rec.Input.CSVRow()
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", rec.EventID, err)
			}
			batch.Rows = append(batch.Rows, row)
			batch.Included++
		case ExcludeTest:
			batch.ExcludedTest++
		case ExcludeMalformed:
			batch.ExcludedMalformed++
		}
	}
	return batch, nil
}

// WriteCSV emits the batch as data rows in column order, no header. The
// downstream engine matches columns against the baseline by position.
func (b *FilteredBatch) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	for _, row := range b.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write filtered row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush filtered batch: %w", err)
	}
	return nil
}
