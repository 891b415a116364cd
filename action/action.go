// Package action implements the schema's unit of work (spec.md §4.4): an
// Action decodes one element of a schema file and, once applied, runs its
// select/modify/execute/finalize/identity-merge phases against an
// [entry.Store].
package action

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.kaon.run/kaon/constraint"
	"go.kaon.run/kaon/value"
)

// Sentinel errors surfaced by schema loading and action execution.
var (
	ErrInvalidAction   = errors.New("invalid action")
	ErrMissingIdentity = errors.New("missing placeholder in id")
	ErrExecuteArity    = errors.New("execute: wrong number of fields")
	ErrExecuteProcess  = errors.New("execute: command failed")
)

// ShowAfterPhase names a point at which an action emits a debug trace.
type ShowAfterPhase string

const (
	ShowAfterSelect   ShowAfterPhase = "select"
	ShowAfterModify   ShowAfterPhase = "modify"
	ShowAfterExecute  ShowAfterPhase = "execute"
	ShowAfterFinalize ShowAfterPhase = "finalize"
	ShowAfterUpdated  ShowAfterPhase = "updated-entries"
)

// Action is one element of a schema file (spec.md §6's "Schema file (JSON)").
type Action struct {
	Name        string
	Description json.RawMessage
	Select      *constraint.Spec
	Modify      ModifyPhase
	Execute     ExecutePhase
	Finalize    ModifyPhase
	ShowAfter   []ShowAfterPhase
	ID          string
	HasID       bool
}

var allowedActionKeys = map[string]struct{}{
	"name": {}, "description": {}, "select": {}, "modify": {},
	"execute": {}, "finalize": {}, "show-after": {}, "id": {},
}

// UnmarshalJSON decodes an action object, rejecting any key outside the set
// recognized by spec.md §6.
func (a *Action) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}

	for key := range fields {
		if _, ok := allowedActionKeys[key]; !ok {
			return fmt.Errorf("%w: unexpected key %q", ErrInvalidAction, key)
		}
	}

	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &a.Name); err != nil {
			return fmt.Errorf("%w: name must be a string", ErrInvalidAction)
		}
	}

	if raw, ok := fields["description"]; ok {
		a.Description = raw
	}

	if raw, ok := fields["select"]; ok {
		a.Select = &constraint.Spec{}
		if err := json.Unmarshal(raw, a.Select); err != nil {
			return fmt.Errorf("select: %w", err)
		}
	}

	if raw, ok := fields["modify"]; ok {
		if err := json.Unmarshal(raw, &a.Modify); err != nil {
			return fmt.Errorf("modify: %w", err)
		}
	}

	if raw, ok := fields["execute"]; ok {
		if err := json.Unmarshal(raw, &a.Execute); err != nil {
			return fmt.Errorf("execute: %w", err)
		}
	}

	if raw, ok := fields["finalize"]; ok {
		if err := json.Unmarshal(raw, &a.Finalize); err != nil {
			return fmt.Errorf("finalize: %w", err)
		}
	}

	if raw, ok := fields["show-after"]; ok {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return fmt.Errorf("%w: show-after must be a list of strings", ErrInvalidAction)
		}

		for _, n := range names {
			a.ShowAfter = append(a.ShowAfter, ShowAfterPhase(n))
		}
	}

	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &a.ID); err != nil {
			return fmt.Errorf("%w: id must be a string", ErrInvalidAction)
		}

		a.HasID = true
	}

	return nil
}

// ModifyRule is one `{property: PropertyValue-or-list}` rule object, in
// source field order, with each key's fan-out values already rendered.
type ModifyRule struct {
	// Fields holds, per key in written order, the property name and its
	// rendered fan-out values (len 1 for a scalar PropertyValue).
	Fields []ModifyField
}

// ModifyField is one key of a modify/finalize rule object.
type ModifyField struct {
	Property string
	Values   []string
}

func (r *ModifyRule) UnmarshalJSON(data []byte) error {
	fields, err := constraint.DecodeOrderedObject(data)
	if err != nil {
		return err
	}

	r.Fields = make([]ModifyField, 0, len(fields))

	for _, f := range fields {
		var lit value.Literal
		if err := json.Unmarshal(f.Value, &lit); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAction, err)
		}

		values := lit.Values()
		rendered := make([]string, len(values))

		for i, v := range values {
			rendered[i] = v.Render()
		}

		r.Fields = append(r.Fields, ModifyField{Property: f.Key, Values: rendered})
	}

	return nil
}

// ModifyPhase is a `modify`/`finalize` value: one rule, or a list of rules
// applied in order (spec.md §4.4 step 3).
type ModifyPhase struct {
	Rules []ModifyRule
}

func (p *ModifyPhase) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '[' {
		return json.Unmarshal(data, &p.Rules)
	}

	var rule ModifyRule
	if err := json.Unmarshal(data, &rule); err != nil {
		return err
	}

	p.Rules = []ModifyRule{rule}

	return nil
}

// ExecuteItem is one `{command, return-properties, split?}` object (spec.md
// §4.4 step 4).
type ExecuteItem struct {
	Command          string
	ReturnProperties []string `json:"return-properties"`
	Split            *string
}

func (it *ExecuteItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Command          string   `json:"command"`
		ReturnProperties []string `json:"return-properties"`
		Split            *string  `json:"split"`
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}

	it.Command = raw.Command
	it.ReturnProperties = raw.ReturnProperties
	it.Split = raw.Split

	return nil
}

// ExecutePhase is an `execute` value: one item, or a list of items applied
// in order.
type ExecutePhase struct {
	Items []ExecuteItem
}

func (p *ExecutePhase) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '[' {
		return json.Unmarshal(data, &p.Items)
	}

	var item ExecuteItem
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}

	p.Items = []ExecuteItem{item}

	return nil
}
