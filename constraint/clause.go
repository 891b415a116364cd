// Package constraint implements KAON's predicate/constraint evaluator and
// set combinators (spec.md §4.3, §4.4's "set combinators" block).
package constraint

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.kaon.run/kaon/value"
)

// ClauseKind identifies which row of spec.md §4.3's table a [Clause] is.
type ClauseKind int

const (
	// ClauseEquals is the bare PropertyValue-literal / list-of-literals
	// form: exact-match, or any-of membership, required.
	ClauseEquals ClauseKind = iota
	// ClauseInterpolate is `{interpolate: pv}`.
	ClauseInterpolate
	// ClausePresent is `{in: null}`, or an object with no clause keys.
	ClausePresent
	// ClauseAbsent is `{in: []}`.
	ClauseAbsent
	// ClauseInSet is `{in: [pv,...]}`.
	ClauseInSet
	// ClauseCopyTo is `{copy-to: name}`.
	ClauseCopyTo
	// ClauseMoveTo is `{move-to: name}`.
	ClauseMoveTo
	// ClauseMoveToDelete is `{move-to: null}`.
	ClauseMoveToDelete
	// ClauseMatchingRe is `{matching-re: pv}`.
	ClauseMatchingRe
)

// Clause is one rule bound to one property, in the position it appeared in
// its source JSON object. See spec.md §4.3's table and §9's "ordered list of
// (PropertyName, Clause) pairs" design note.
type Clause struct {
	Property string
	Kind     ClauseKind
	// Template holds the pv argument of interpolate/matching-re clauses.
	Template string
	// Name holds the target property of copy-to/move-to clauses.
	Name string
	// Set holds the rendered allowed values of ClauseEquals/ClauseInSet.
	Set []string
}

// ParsePredicate decodes a property-constraint object (spec.md §4.3's
// "select specification" object form) into the flat, ordered list of clauses
// it denotes: for each property key in written order, its constraint value's
// own clause keys (if any) are expanded in written order at that point.
func ParsePredicate(data []byte) (*Predicate, error) {
	fields, err := DecodeOrderedObject(data)
	if err != nil {
		return nil, err
	}

	pred := &Predicate{}

	for _, f := range fields {
		clauses, err := parsePropertyConstraint(f.Key, f.Value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", f.Key, err)
		}

		pred.Clauses = append(pred.Clauses, clauses...)
	}

	return pred, nil
}

// parsePropertyConstraint decodes the constraint bound to a single property.
func parsePropertyConstraint(prop string, raw json.RawMessage) ([]Clause, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty constraint", ErrInvalidSpec)
	}

	switch trimmed[0] {
	case '{':
		return parseClauseObject(prop, raw)
	default:
		var lit value.Literal
		if err := json.Unmarshal(raw, &lit); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
		}

		values := lit.Values()
		set := make([]string, len(values))

		for i, v := range values {
			set[i] = v.Render()
		}

		return []Clause{{
			Property: prop,
			Kind:     ClauseEquals,
			Set:      set,
		}}, nil
	}
}

// parseClauseObject decodes the object form of a property constraint: zero
// or more of interpolate/in/copy-to/move-to/matching-re, in written order.
func parseClauseObject(prop string, raw json.RawMessage) ([]Clause, error) {
	fields, err := DecodeOrderedObject(raw)
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return []Clause{{Property: prop, Kind: ClausePresent}}, nil
	}

	clauses := make([]Clause, 0, len(fields))

	for _, f := range fields {
		switch f.Key {
		case "interpolate":
			var tmpl string
			if err := json.Unmarshal(f.Value, &tmpl); err != nil {
				return nil, fmt.Errorf("%w: interpolate must be a string", ErrInvalidSpec)
			}

			clauses = append(clauses, Clause{Property: prop, Kind: ClauseInterpolate, Template: tmpl})

		case "in":
			clause, err := parseInClause(prop, f.Value)
			if err != nil {
				return nil, err
			}

			clauses = append(clauses, clause)

		case "copy-to":
			var name string
			if err := json.Unmarshal(f.Value, &name); err != nil {
				return nil, fmt.Errorf("%w: copy-to must be a string", ErrInvalidSpec)
			}

			clauses = append(clauses, Clause{Property: prop, Kind: ClauseCopyTo, Name: name})

		case "move-to":
			if bytes.Equal(bytes.TrimSpace(f.Value), []byte("null")) {
				clauses = append(clauses, Clause{Property: prop, Kind: ClauseMoveToDelete})

				continue
			}

			var name string
			if err := json.Unmarshal(f.Value, &name); err != nil {
				return nil, fmt.Errorf("%w: move-to must be a string or null", ErrInvalidSpec)
			}

			clauses = append(clauses, Clause{Property: prop, Kind: ClauseMoveTo, Name: name})

		case "matching-re":
			var tmpl string
			if err := json.Unmarshal(f.Value, &tmpl); err != nil {
				return nil, fmt.Errorf("%w: matching-re must be a string", ErrInvalidSpec)
			}

			clauses = append(clauses, Clause{Property: prop, Kind: ClauseMatchingRe, Template: tmpl})

		default:
			return nil, fmt.Errorf("%w: unexpected key %q", ErrInvalidSpec, f.Key)
		}
	}

	return clauses, nil
}

func parseInClause(prop string, raw json.RawMessage) (Clause, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Clause{Property: prop, Kind: ClausePresent}, nil
	}

	var lit value.Literal
	if err := json.Unmarshal(raw, &lit); err != nil {
		return Clause{}, fmt.Errorf("%w: in must be null or an array", ErrInvalidSpec)
	}

	values := lit.Values()
	if len(values) == 0 {
		return Clause{Property: prop, Kind: ClauseAbsent}, nil
	}

	set := make([]string, len(values))
	for i, v := range values {
		set[i] = v.Render()
	}

	return Clause{Property: prop, Kind: ClauseInSet, Set: set}, nil
}

// Predicate is the flat, ordered clause list produced by one select-spec
// object (spec.md §9's design note).
type Predicate struct {
	Clauses []Clause
}
