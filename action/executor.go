package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"

	"go.kaon.run/kaon/constraint"
	"go.kaon.run/kaon/entry"
	"go.kaon.run/kaon/interpolate"
)

// Runner executes one shell command and returns its captured stdout. Tests
// stub this instead of spawning real subprocesses (spec.md §9's "Subprocess
// boundary" design note).
type Runner interface {
	Run(ctx context.Context, command string) (stdout string, err error)
}

// ShellRunner runs commands through the platform shell, mirroring Python's
// `subprocess.run(cmd, shell=True)`.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrExecuteProcess, command, err)
	}

	return stdout.String(), nil
}

var phaseHeaders = map[ShowAfterPhase]string{
	ShowAfterSelect:   "Entries after applying `select`",
	ShowAfterModify:   "Entries after applying `modify`",
	ShowAfterExecute:  "Entries after applying `execute`",
	ShowAfterFinalize: "Entries after applying `finalize`",
	ShowAfterUpdated:  "Updated entries",
}

func emitTrace(trace io.Writer, act Action, phase ShowAfterPhase, entries []entry.Entry) {
	if trace == nil {
		return
	}

	show := false

	for _, p := range act.ShowAfter {
		if p == phase {
			show = true

			break
		}
	}

	if !show {
		return
	}

	fmt.Fprintf(trace, "> %s\n", phaseHeaders[phase])

	enc := json.NewEncoder(trace)
	enc.SetIndent("", "    ")
	_ = enc.Encode(sortedMapsOf(entries))
}

func sortedMapsOf(entries []entry.Entry) []map[string]string {
	out := make([]map[string]string, len(entries))
	for i, e := range entries {
		out[i] = map[string]string(e)
	}

	return out
}

// Apply runs one action's phases against store, per spec.md §4.4.
func Apply(ctx context.Context, store *entry.Store, act Action, env entry.Environment, runner Runner, trace io.Writer) error {
	var working []entry.Entry

	if act.Select != nil {
		working = constraint.Select(act.Select, store.Entries(), env)
	} else {
		working = []entry.Entry{{}}
	}

	emitTrace(trace, act, ShowAfterSelect, working)

	working = applyModifyPhase(act.Modify, working)
	emitTrace(trace, act, ShowAfterModify, working)

	var err error

	working, err = applyExecutePhase(ctx, act, act.Execute, working, env, runner)
	if err != nil {
		return err
	}

	emitTrace(trace, act, ShowAfterExecute, working)

	working = applyModifyPhase(act.Finalize, working)
	emitTrace(trace, act, ShowAfterFinalize, working)

	if !act.HasID {
		return nil
	}

	touched := make(map[string]struct{})

	for _, e := range working {
		merged := interpolate.Merged(e, env)

		id, err := interpolate.Required(act.ID, merged)
		if err != nil {
			name := act.Name
			if name == "" {
				name = "<unnamed>"
			}

			return fmt.Errorf("%w: action %q, entry %v: %w", ErrMissingIdentity, name, map[string]string(e), err)
		}

		store.Upsert(id, e)
		store.Set(id, mustGet(store, id).ResolveDefaults())
		touched[id] = struct{}{}
	}

	emitTrace(trace, act, ShowAfterUpdated, store.EntriesByID(touched))

	return nil
}

func mustGet(store *entry.Store, id string) entry.Entry {
	e, _ := store.Get(id)

	return e
}

// applyModifyPhase fans the original working set out across each rule in
// turn, concatenating results, rather than threading the set from rule to
// rule (spec.md §4.4 step 3 / step 5): each rule-object in a list-form
// modify/finalize produces its own entries from the same starting set.
func applyModifyPhase(phase ModifyPhase, working []entry.Entry) []entry.Entry {
	if len(phase.Rules) == 0 {
		return working
	}

	var out []entry.Entry

	for _, rule := range phase.Rules {
		out = append(out, applyModifyRule(rule, working)...)
	}

	return out
}

func applyModifyRule(rule ModifyRule, working []entry.Entry) []entry.Entry {
	if len(rule.Fields) == 0 {
		return working
	}

	var out []entry.Entry

	for _, e := range working {
		out = append(out, cartesianAssign(e, rule.Fields, 0)...)
	}

	return out
}

// cartesianAssign fans e out across rule.Fields[i:], combining multi-valued
// fields by Cartesian product (spec.md §4.4 step 3: "Multiple keys in one
// rule combine by Cartesian fan-out").
func cartesianAssign(e entry.Entry, fields []ModifyField, i int) []entry.Entry {
	if i == len(fields) {
		return []entry.Entry{e}
	}

	f := fields[i]

	var out []entry.Entry

	for _, v := range f.Values {
		next := e.Clone()
		next[f.Property] = v
		out = append(out, cartesianAssign(next, fields, i+1)...)
	}

	return out
}

// applyExecutePhase runs each execute item in order, fanning the working set
// out by the lines each command produces (spec.md §4.4 step 4).
func applyExecutePhase(ctx context.Context, act Action, phase ExecutePhase, working []entry.Entry, env entry.Environment, runner Runner) ([]entry.Entry, error) {
	for _, item := range phase.Items {
		next, err := applyExecuteItem(ctx, act, item, working, env, runner)
		if err != nil {
			return nil, err
		}

		working = next
	}

	return working, nil
}

func applyExecuteItem(ctx context.Context, act Action, item ExecuteItem, working []entry.Entry, env entry.Environment, runner Runner) ([]entry.Entry, error) {
	var out []entry.Entry

	for _, e := range working {
		merged := interpolate.Merged(e, env)

		cmd, ok := interpolate.Try(item.Command, merged)
		if !ok {
			continue
		}

		stdout, err := runner.Run(ctx, cmd)
		if err != nil {
			return nil, err
		}

		for _, line := range splitLines(stdout) {
			fields := splitFields(line, item.Split)
			if len(fields) != len(item.ReturnProperties) {
				name := act.Name
				if name == "" {
					name = "<unnamed>"
				}

				return nil, fmt.Errorf("%w: action %q, command %q, line %q: expected %d field(s), got %d",
					ErrExecuteArity, name, cmd, line, len(item.ReturnProperties), len(fields))
			}

			next := e.Clone()

			for i, prop := range item.ReturnProperties {
				if _, exists := next[prop]; !exists {
					next[prop] = fields[i]
				}
			}

			out = append(out, next)
		}
	}

	return out, nil
}

var wsRe = regexp.MustCompile(`\s+`)

// splitLines splits on "\n" only (a "\r" before it stays part of the line)
// and discards a single trailing empty line produced by a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}

	lines := strings.Split(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	return lines
}

// splitFields mirrors Python's str.split(sep): with sep nil, splits on runs
// of whitespace and drops empty fields; with sep set, splits literally.
func splitFields(line string, sep *string) []string {
	if sep == nil {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return nil
		}

		return wsRe.Split(trimmed, -1)
	}

	return strings.Split(line, *sep)
}
