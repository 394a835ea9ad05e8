package baseline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
)

// Schema is the ordered column list of the baseline dataset. The downstream
// constraints engine compares by position, not by name, so count and order
// are both part of the contract.
type Schema struct {
	Columns []string
}

// FromPayload builds a schema from a template payload's feature order.
func FromPayload(p capture.Payload) Schema {
	return Schema{Columns: p.Names()}
}

// Load reads the header row of the baseline dataset CSV.
func Load(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to open baseline dataset: %w", err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err == io.EOF {
		return Schema{}, fmt.Errorf("baseline dataset %s is empty", path)
	}
	if err != nil {
		return Schema{}, fmt.Errorf("failed to read baseline header: %w", err)
	}
	return Schema{Columns: header}, nil
}

// Validate rejects schemas that cannot anchor a monitoring run.
func (s Schema) Validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("baseline schema has no columns")
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, col := range s.Columns {
		if col == "" {
			return fmt.Errorf("baseline schema has an empty column name")
		}
		if _, dup := seen[col]; dup {
			return fmt.Errorf("baseline schema has duplicate column %s", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

// Matches checks a payload against the schema by position: same column count,
// same name at every index.
func (s Schema) Matches(p capture.Payload) error {
	if len(p) != len(s.Columns) {
		return fmt.Errorf("payload has %d features, baseline schema has %d columns", len(p), len(s.Columns))
	}
	for i, f := range p {
		if f.Name != s.Columns[i] {
			return fmt.Errorf("payload feature %q at position %d, baseline schema expects %q", f.Name, i, s.Columns[i])
		}
	}
	return nil
}
