package constraint

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SpecKind discriminates the recursive shape of a [Spec].
type SpecKind int

const (
	// KindPredicate is a property-constraint object, applied to every
	// entry it is given.
	KindPredicate SpecKind = iota
	// KindAnd concatenates the results of its sub-specs.
	KindAnd
	// KindJoint natural-joins the results of its sub-specs.
	KindJoint
)

// Spec is a select specification: a tagged sum of
// Object(PropertyConstraints) | And(Spec[]) | Joint(Spec[]) (spec.md §9).
type Spec struct {
	Kind      SpecKind
	Predicate *Predicate
	Subspecs  []*Spec
}

// UnmarshalJSON decodes a select spec: a JSON object is a predicate; a JSON
// array whose first element is "and" or "joint" is that combinator applied
// to the remaining elements (each itself a select spec), recursively.
func (s *Spec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty select spec", ErrInvalidSpec)
	}

	switch trimmed[0] {
	case '{':
		pred, err := ParsePredicate(data)
		if err != nil {
			return err
		}

		s.Kind = KindPredicate
		s.Predicate = pred

		return nil

	case '[':
		return s.unmarshalCombinator(data)

	default:
		return fmt.Errorf("%w: select spec must be an object or an array", ErrInvalidSpec)
	}
}

func (s *Spec) unmarshalCombinator(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}

	if len(raw) < 3 {
		return fmt.Errorf("%w: and/joint requires a combinator name and at least two sub-specs", ErrInvalidSpec)
	}

	var head string
	if err := json.Unmarshal(raw[0], &head); err != nil {
		return fmt.Errorf("%w: expected a combinator name as the first element", ErrInvalidSpec)
	}

	switch head {
	case "and":
		s.Kind = KindAnd
	case "joint":
		s.Kind = KindJoint
	default:
		return fmt.Errorf("%w: unknown combinator %q", ErrInvalidSpec, head)
	}

	s.Subspecs = make([]*Spec, 0, len(raw)-1)

	for _, sub := range raw[1:] {
		var subSpec Spec
		if err := json.Unmarshal(sub, &subSpec); err != nil {
			return err
		}

		s.Subspecs = append(s.Subspecs, &subSpec)
	}

	return nil
}
