// Package schemadoc builds [jsonschema.Schema] descriptions of KAON's own
// input file formats (the schema file and the constraints file), so the
// `kaon describe` subcommand can print a JSON Schema a user or another tool
// can validate against, instead of only prose documentation.
package schemadoc

import "github.com/google/jsonschema-go/jsonschema"

// falseSchema returns a schema that validates nothing (the JSON Schema
// `false` literal, expressed as {"not": {}}).
func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func stringSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}

func stringOrListSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			stringSchema(),
			{Type: "array", Items: stringSchema()},
		},
	}
}

func modifyRuleSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: stringOrListSchema(),
	}
}

func modifyPhaseSchema() *jsonschema.Schema {
	rule := modifyRuleSchema()

	return &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			rule,
			{Type: "array", Items: rule},
		},
	}
}

func clauseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			stringOrListSchema(),
			{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"interpolate": stringSchema(),
					"in":          {},
					"copy-to":     stringSchema(),
					"move-to":     {},
					"matching-re": stringSchema(),
				},
				AdditionalProperties: falseSchema(),
			},
		},
	}
}

func selectSpecSchema() *jsonschema.Schema {
	predicate := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: clauseSchema(),
	}

	// and/joint are [String, SelectSpec, SelectSpec, ...]; jsonschema-go has
	// no fixed-prefix-then-repeat primitive, so this is described loosely as
	// an array of at least three items, each either a string (the combinator
	// name) or a predicate object. Nested and/joint arrays are not described.
	combinator := &jsonschema.Schema{
		Type:     "array",
		MinItems: jsonschema.Ptr(3),
		Items: &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{stringSchema(), predicate},
		},
	}

	return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{predicate, combinator}}
}

func executeItemSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"command":           stringSchema(),
			"return-properties": {Type: "array", Items: stringSchema()},
			"split":             stringSchema(),
		},
		Required:             []string{"command", "return-properties"},
		AdditionalProperties: falseSchema(),
	}
}

func executePhaseSchema() *jsonschema.Schema {
	item := executeItemSchema()

	return &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			item,
			{Type: "array", Items: item},
		},
	}
}

func actionSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":        stringSchema(),
			"description": {},
			"select":      selectSpecSchema(),
			"modify":      modifyPhaseSchema(),
			"execute":     executePhaseSchema(),
			"finalize":    modifyPhaseSchema(),
			"show-after": {
				Type: "array",
				Items: &jsonschema.Schema{
					Enum: []any{"select", "modify", "execute", "finalize", "updated-entries"},
				},
			},
			"id": stringSchema(),
		},
		AdditionalProperties: falseSchema(),
	}
}

// SchemaFile describes a KAON schema file: a top-level array of actions.
func SchemaFile() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:  "array",
		Items: actionSchema(),
	}
}

// ConstraintsFile describes a KAON constraints file: a top-level array of
// property-name -> string-or-list-of-strings objects.
func ConstraintsFile() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "array",
		Items: &jsonschema.Schema{
			Type:                 "object",
			AdditionalProperties: stringOrListSchema(),
		},
	}
}
