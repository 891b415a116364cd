package value

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidLiteral is returned when a JSON value cannot be decoded as a
// PropertyValue literal.
var ErrInvalidLiteral = errors.New("invalid property value literal")

// UnmarshalJSON decodes a PropertyValue literal: a JSON string becomes a
// [Plain] value; a single-key JSON object whose key is "broken-line" or
// "multiple-lines" and whose value is an array of strings becomes a
// [Composite]; anything else is an error.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Plain(s)

		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidLiteral, data)
	}

	if len(obj) != 1 {
		return fmt.Errorf("%w: composite value must have exactly one key: %s", ErrInvalidLiteral, data)
	}

	for key, raw := range obj {
		join := Join(key)
		if join != BrokenLine && join != MultipleLines {
			return fmt.Errorf("%w: unknown composite kind %q", ErrInvalidLiteral, key)
		}

		var parts []string
		if err := json.Unmarshal(raw, &parts); err != nil {
			return fmt.Errorf("%w: composite parts must be an array of strings: %w", ErrInvalidLiteral, err)
		}

		*v = NewComposite(join, parts...)
	}

	return nil
}

// MarshalJSON renders a plain value as a JSON string and a composite value as
// a single-key object of its [Join] kind to its parts.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.composite == nil {
		return json.Marshal(v.plain)
	}

	return json.Marshal(map[string][]string{string(v.composite.Join): v.composite.Parts})
}

// Literal is a PropertyValue literal as it appears in schema JSON: either a
// single [Value] or a [List] (an any-of set / fan-out). UnmarshalJSON decides
// which based on whether the JSON is an array.
type Literal struct {
	List   List
	Single Value
	isList bool
}

// IsList reports whether the literal decoded as a list.
func (l Literal) IsList() bool {
	return l.isList
}

// Values returns the literal as a slice: a one-element slice for a single
// value, or the full list otherwise.
func (l Literal) Values() []Value {
	if l.isList {
		return l.List
	}

	return []Value{l.Single}
}

// UnmarshalJSON decodes a JSON array as a [List] and anything else as a
// single [Value].
func (l *Literal) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		list := make(List, len(raw))

		for i, item := range raw {
			var v Value
			if err := json.Unmarshal(item, &v); err != nil {
				return err
			}

			list[i] = v
		}

		l.List = list
		l.isList = true

		return nil
	}

	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	l.Single = v
	l.isList = false

	return nil
}
