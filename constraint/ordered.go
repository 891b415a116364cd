package constraint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSpec is returned when a select-spec or property-constraint JSON
// value is structurally invalid.
var ErrInvalidSpec = errors.New("invalid select spec")

// OrderedField is one key/value pair of a JSON object, in the order it was
// written.
type OrderedField struct {
	Key   string
	Value json.RawMessage
}

// DecodeOrderedObject decodes a JSON object into its fields, preserving
// source key order. Go's encoding/json normally loses key order by decoding
// into a map; KAON depends on it for the left-to-right clause dependency rule
// in spec.md §4.3 ("Clauses within one object combine in written order") and
// for the Cartesian fan-out order of a `modify`/`finalize` rule's keys.
func DecodeOrderedObject(data []byte) ([]OrderedField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidSpec)
	}

	var fields []OrderedField

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}

		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected a string key", ErrInvalidSpec)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}

		fields = append(fields, OrderedField{Key: key, Value: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	return fields, nil
}
