package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Meesho/BharatMLStack/vigil/internal/preprocess"
	"github.com/rs/zerolog/log"
)

const (
	violationsFileName = "violations.json"
	statisticsFileName = "statistics.json"
)

// ExecAnalyzer invokes the external statistics and constraint-validation
// engine as a subprocess. The engine receives the dataset path as its last
// argument and is expected to write violations.json and statistics.json next
// to the dataset.
type ExecAnalyzer struct {
	command string
	args    []string
}

func NewExecAnalyzer(command string, args ...string) (*ExecAnalyzer, error) {
	if command == "" {
		return nil, fmt.Errorf("analyzer command is empty")
	}
	return &ExecAnalyzer{command: command, args: args}, nil
}

func (a *ExecAnalyzer) Analyze(ctx context.Context, datasetPath string, _ *preprocess.FilteredBatch) (*ViolationsReport, *StatisticsReport, error) {
	cmd := exec.CommandContext(ctx, a.command, append(a.args, datasetPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, nil, fmt.Errorf("analysis engine failed: %w: %s", err, out)
	}

	reportDir := filepath.Dir(datasetPath)
	violations, err := decodeReportFile(filepath.Join(reportDir, violationsFileName), DecodeViolationsReport)
	if err != nil {
		return nil, nil, err
	}
	statistics, err := decodeReportFile(filepath.Join(reportDir, statisticsFileName), DecodeStatisticsReport)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Int("violations", len(violations.Violations)).Msgf("Analysis engine finished for %s", datasetPath)
	return violations, statistics, nil
}

func decodeReportFile[T any](path string, decode func(io.Reader) (*T, error)) (*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer f.Close()
	report, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return report, nil
}
