package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine writes canned report files next to the dataset it is given, the
// way the real analysis engine does.
func fakeEngine(t *testing.T, violationsDoc string) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "engine.sh")
	content := `#!/bin/sh
dataset="$1"
dir=$(dirname "$dataset")
cat > "$dir/violations.json" <<'JSON'
` + violationsDoc + `
JSON
rows=$(wc -l < "$dataset")
printf '{"dataset": {"item_count": %d}}' "$rows" > "$dir/statistics.json"
`
	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))
	return script
}

func writeDatasetFile(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filtered.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

func TestExecAnalyzer_ReadsEngineReports(t *testing.T) {
	engine := fakeEngine(t, `{"violations": [{"feature_name": "monthly_charges", "constraint_check_type": "baseline_drift_check", "description": "drift"}]}`)
	dataset := writeDatasetFile(t, "12,70.35,month-to-month\n12,70.35,month-to-month\n")

	a, err := NewExecAnalyzer(engine)
	require.NoError(t, err)

	violations, statistics, err := a.Analyze(context.Background(), dataset, nil)
	require.NoError(t, err)
	require.Len(t, violations.Violations, 1)
	assert.Equal(t, "monthly_charges", violations.Violations[0].FeatureName)
	assert.Equal(t, int64(2), statistics.Dataset.ItemCount)
}

func TestExecAnalyzer_EngineFailure(t *testing.T) {
	a, err := NewExecAnalyzer("false")
	require.NoError(t, err)

	_, _, err = a.Analyze(context.Background(), writeDatasetFile(t, ""), nil)
	assert.ErrorContains(t, err, "analysis engine failed")
}

func TestExecAnalyzer_MissingReports(t *testing.T) {
	// engine exits cleanly but writes nothing
	a, err := NewExecAnalyzer("true")
	require.NoError(t, err)

	_, _, err = a.Analyze(context.Background(), writeDatasetFile(t, ""), nil)
	assert.ErrorContains(t, err, "violations.json")
}

func TestNewExecAnalyzer_RequiresCommand(t *testing.T) {
	_, err := NewExecAnalyzer("")
	assert.Error(t, err)
}
