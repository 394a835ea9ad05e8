package generator

import (
	"fmt"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
)

// Mutation overrides one feature of the template payload before dispatch.
// A non-empty Field selects the feature by name; otherwise Index selects it
// by position. Used to construct deliberately out-of-distribution requests
// for drift-trigger testing.
type Mutation struct {
	Field string      `json:"field,omitempty"`
	Index int         `json:"index,omitempty"`
	Value interface{} `json:"value"`
}

// ApplyMutations returns a mutated copy of the template. The template itself
// is never modified. Mutations apply in sequence, so when two entries target
// the same feature the later one wins. Unspecified features keep their
// template values; an empty mutation list returns a plain copy.
func ApplyMutations(template capture.Payload, mutations []Mutation) (capture.Payload, error) {
	payload := template.Clone()
	for i, m := range mutations {
		idx, err := resolveIndex(payload, m)
		if err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i, err)
		}
		payload[idx].Value = m.Value
	}
	return payload, nil
}

func resolveIndex(payload capture.Payload, m Mutation) (int, error) {
	if m.Field != "" {
		for i, f := range payload {
			if f.Name == m.Field {
				return i, nil
			}
		}
		return 0, fmt.Errorf("no feature named %q in template payload", m.Field)
	}
	if m.Index < 0 || m.Index >= len(payload) {
		return 0, fmt.Errorf("feature index %d out of range for payload of %d features", m.Index, len(payload))
	}
	return m.Index, nil
}
