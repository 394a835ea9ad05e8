package baseline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		wantErr bool
	}{
		{name: "valid", columns: []string{"a", "b", "c"}},
		{name: "empty schema", columns: nil, wantErr: true},
		{name: "empty column name", columns: []string{"a", ""}, wantErr: true},
		{name: "duplicate column", columns: []string{"a", "b", "a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Schema{Columns: tt.columns}.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchema_Matches(t *testing.T) {
	schema := Schema{Columns: []string{"tenure_months", "monthly_charges"}}

	t.Run("ExactMatch", func(t *testing.T) {
		p := capture.Payload{
			{Name: "tenure_months", Value: 12},
			{Name: "monthly_charges", Value: 70.35},
		}
		assert.NoError(t, schema.Matches(p))
	})

	t.Run("WrongColumnCount", func(t *testing.T) {
		p := capture.Payload{{Name: "tenure_months", Value: 12}}
		assert.Error(t, schema.Matches(p))
	})

	t.Run("WrongOrder", func(t *testing.T) {
		p := capture.Payload{
			{Name: "monthly_charges", Value: 70.35},
			{Name: "tenure_months", Value: 12},
		}
		assert.Error(t, schema.Matches(p))
	})
}

func TestFromPayload(t *testing.T) {
	p := capture.Payload{{Name: "a", Value: 1}, {Name: "b", Value: 2}}
	assert.Equal(t, []string{"a", "b"}, FromPayload(p).Columns)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("ReadsHeaderRow", func(t *testing.T) {
		path := filepath.Join(dir, "baseline.csv")
		require.NoError(t, os.WriteFile(path, []byte("tenure_months,monthly_charges,contract\n12,70.35,monthly\n"), 0o644))

		schema, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"tenure_months", "monthly_charges", "contract"}, schema.Columns)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.csv"))
		assert.Error(t, err)
	})
}
