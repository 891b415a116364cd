// Package cliconfig discovers the dynamic CLI surface a loaded schema
// contributes: every `option-name`/`option-doc` property adds a `--<name>`
// flag that narrows the CLI view, and every `variable-name`/`variable-doc`
// property adds a `--<name>` flag that feeds the interpolation environment
// (spec.md §6's "Dynamically generated flags", grounded on
// original_source/kaon.py's get_options_from_schema/get_variables_from_schema).
package cliconfig

import (
	"sort"

	"go.kaon.run/kaon/action"
	"go.kaon.run/kaon/entry"
	"go.kaon.run/kaon/schema"
)

// Option is one `--<option-name>` flag the schema contributes.
type Option struct {
	Name  string
	Doc   string
	Group string
}

// Variable is one `--<variable-name>` flag the schema contributes.
type Variable struct {
	Name       string
	Doc        string
	Default    string
	HasDefault bool
}

// Discover scans every action's modify+finalize fan-out (with no select or
// execute applied — the schema's declared constant entries) for
// option-name/option-doc and variable-name/variable-doc/variable-default
// properties, deduplicating by name, first occurrence wins.
func Discover(s schema.Schema) (options []Option, variables []Variable) {
	seenOpts := make(map[string]struct{})
	seenVars := make(map[string]struct{})

	for _, act := range s.Actions {
		for _, e := range declaredEntries(act) {
			if name, ok := e["option-name"]; ok {
				if _, dup := seenOpts[name]; !dup {
					seenOpts[name] = struct{}{}
					options = append(options, Option{
						Name:  name,
						Doc:   e["option-doc"],
						Group: e["option-group"],
					})
				}
			}

			if name, ok := e["variable-name"]; ok {
				if _, dup := seenVars[name]; !dup {
					seenVars[name] = struct{}{}
					def, hasDef := e["variable-default"]
					variables = append(variables, Variable{
						Name:       name,
						Doc:        e["variable-doc"],
						Default:    def,
						HasDefault: hasDef,
					})
				}
			}
		}
	}

	sort.SliceStable(options, func(i, j int) bool { return options[i].Group < options[j].Group })

	return options, variables
}

// declaredEntries runs just the modify and finalize phases of act over a
// single empty entry, without selecting from any store and without
// executing — the constant-valued entries an action declares for CLI
// discovery purposes, mirroring original_source/kaon.py's use of the
// `values`/`update`/`defaults` keys for the same purpose.
func declaredEntries(act action.Action) []entry.Entry {
	working := []entry.Entry{{}}
	working = applyPhase(act.Modify, working)
	working = applyPhase(act.Finalize, working)

	return working
}

// applyPhase fans the original working set out across each rule in turn,
// concatenating results, rather than threading the set from rule to rule:
// each rule-object in a list-form modify/finalize declares its own options
// and variables independently of the others (original_source/kaon.py
// iterates each values element independently rather than collapsing them).
func applyPhase(phase action.ModifyPhase, working []entry.Entry) []entry.Entry {
	if len(phase.Rules) == 0 {
		return working
	}

	var out []entry.Entry

	for _, rule := range phase.Rules {
		out = append(out, applyRule(rule, working)...)
	}

	return out
}

func applyRule(rule action.ModifyRule, working []entry.Entry) []entry.Entry {
	if len(rule.Fields) == 0 {
		return working
	}

	var out []entry.Entry

	for _, e := range working {
		out = append(out, fanOut(e, rule.Fields, 0)...)
	}

	return out
}

func fanOut(e entry.Entry, fields []action.ModifyField, i int) []entry.Entry {
	if i == len(fields) {
		return []entry.Entry{e}
	}

	f := fields[i]

	var out []entry.Entry

	for _, v := range f.Values {
		next := e.Clone()
		next[f.Property] = v
		out = append(out, fanOut(next, fields, i+1)...)
	}

	return out
}
