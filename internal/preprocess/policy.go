package preprocess

import (
	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/metadata"
	"github.com/rs/zerolog/log"
)

// Decision is the per-record outcome of a classification policy.
type Decision int

const (
	// Include marks genuine production traffic that feeds the statistics
	// engine.
	Include Decision = iota
	// ExcludeTest marks synthetic/test traffic flagged by its metadata.
	ExcludeTest
	// ExcludeMalformed marks records whose metadata is missing or
	// unparseable. The protection goal is to never let unvetted traffic
	// pollute statistics, so malformed always means exclude.
	ExcludeMalformed
)

func (d Decision) String() string {
	switch d {
	case Include:
		return "include"
	case ExcludeTest:
		return "exclude-test"
	case ExcludeMalformed:
		return "exclude-malformed"
	default:
		return "unknown"
	}
}

// Policy decides per captured record whether it enters the filtered batch.
// Policies must be stateless: the same record always yields the same
// decision, and a policy may be shared across concurrent monitoring runs.
type Policy interface {
	Evaluate(rec capture.Record) Decision
}

// TestIndicatorPolicy is the default policy: the testIndicator attribute is
// the single authoritative signal. Records fail closed, so anything the
// metadata codec cannot vouch for is excluded.
type TestIndicatorPolicy struct{}

func (TestIndicatorPolicy) Evaluate(rec capture.Record) Decision {
	meta, err := metadata.Decode(rec.CustomAttributes)
	if err != nil {
		log.Warn().Err(err).Str("eventId", rec.EventID).
			Msg("Capture record has missing or malformed classification metadata, excluding")
		return ExcludeMalformed
	}

	switch meta.TestIndicator {
	case metadata.TestIndicatorFalse:
		return Include
	case metadata.TestIndicatorTrue:
		return ExcludeTest
	default:
		log.Warn().Str("eventId", rec.EventID).Str("testIndicator", meta.TestIndicator).
			Msg("Capture record has unparseable testIndicator, excluding")
		return ExcludeMalformed
	}
}
