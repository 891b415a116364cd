// Package schema loads and runs a KAON schema file: an ordered list of
// actions applied in sequence against a shared entry store (spec.md §4.5,
// §6's "Schema file (JSON)").
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.kaon.run/kaon/action"
)

// SchemaError reports a structural or type violation found while loading a
// schema file, with a JSON-path-like locator (spec.md §7's SchemaError,
// grounded on original_source/kaon.py's show_error(check_value, msg, path)).
type SchemaError struct {
	Path string
	Msg  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("error in path `%s`: %s", e.Path, e.Msg)
}

// ErrReadSchema wraps an unreadable schema file (spec.md §7's IOError).
var ErrReadSchema = errors.New("read schema")

// Schema is an ordered list of actions, read from one or more files and
// concatenated in the order given (original_source/kaon.py's
// get_schema_from_json).
type Schema struct {
	Actions []action.Action
}

// Decode parses one schema file's JSON array of action objects.
func Decode(data []byte) (Schema, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Schema{}, &SchemaError{Path: "/", Msg: "unexpected type, it should be an array"}
	}

	var actions []action.Action
	if err := json.Unmarshal(data, &actions); err != nil {
		return Schema{}, &SchemaError{Path: "/", Msg: err.Error()}
	}

	return Schema{Actions: actions}, nil
}

// Concat appends other's actions after s's, preserving the order files were
// given on the command line.
func (s Schema) Concat(other Schema) Schema {
	out := make([]action.Action, 0, len(s.Actions)+len(other.Actions))
	out = append(out, s.Actions...)
	out = append(out, other.Actions...)

	return Schema{Actions: out}
}
