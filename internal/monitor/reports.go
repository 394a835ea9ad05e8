package monitor

import (
	"encoding/json"
	"fmt"
	"io"
)

// Violation is one constraint breach reported by the external analysis
// engine.
type Violation struct {
	FeatureName         string `json:"feature_name"`
	ConstraintCheckType string `json:"constraint_check_type"`
	Description         string `json:"description"`
}

// ViolationsReport is the violations document produced per monitoring run.
// An empty list means no constraint was breached.
type ViolationsReport struct {
	Violations []Violation `json:"violations"`
}

// StatisticsReport is the statistics document produced per monitoring run.
// Only the record count is contractual for this core; the engine adds more.
type StatisticsReport struct {
	Dataset struct {
		ItemCount int64 `json:"item_count"`
	} `json:"dataset"`
}

// DecodeViolationsReport parses a violations document emitted by the
// analysis engine.
func DecodeViolationsReport(r io.Reader) (*ViolationsReport, error) {
	var report ViolationsReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode violations report: %w", err)
	}
	return &report, nil
}

// DecodeStatisticsReport parses a statistics document emitted by the
// analysis engine.
func DecodeStatisticsReport(r io.Reader) (*StatisticsReport, error) {
	var report StatisticsReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode statistics report: %w", err)
	}
	return &report, nil
}
