package capture

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Feature is one named value of an inference payload. Order matters: the
// downstream engine compares columns by position, so payloads are ordered
// sequences, not maps.
type Feature struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Payload is the model-visible feature vector of one inference request, in
// submission order. It never contains classification metadata.
type Payload []Feature

// Clone returns a copy that can be mutated without touching the original.
// Values are copied shallowly; generators treat feature values as immutable.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	copy(out, p)
	return out
}

// Names returns the feature names in payload order.
func (p Payload) Names() []string {
	names := make([]string, len(p))
	for i, f := range p {
		names[i] = f.Name
	}
	return names
}

// CSVRow renders the feature values as one CSV row in payload order.
func (p Payload) CSVRow() ([]string, error) {
	row := make([]string, len(p))
	for i, f := range p {
		cell, err := cast.ToStringE(f.Value)
		if err != nil {
			return nil, fmt.Errorf("feature %s is not representable as a CSV cell: %w", f.Name, err)
		}
		row[i] = cell
	}
	return row, nil
}

// Record is the persisted union of one inference request, its out-of-band
// custom attributes, and the model response. Written once by the gateway's
// capture pipeline, immutable thereafter.
type Record struct {
	EventID          string          `json:"eventId"`
	EndpointName     string          `json:"endpointName"`
	InferenceTime    time.Time       `json:"inferenceTime"`
	CustomAttributes string          `json:"customAttributes,omitempty"`
	Input            Payload         `json:"input"`
	Output           json.RawMessage `json:"output,omitempty"`
}
