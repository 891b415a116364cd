// Package constraints loads constraints files and folds them together with
// the CLI-supplied view into the [entry.ConstrainedView] the schema engine
// filters its output by (spec.md §6's "Constraints file (JSON)",
// grounded on original_source/kaon.py's get_constrains_from_json and
// get_constrained_view).
package constraints

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"go.kaon.run/kaon/entry"
)

// ErrInvalidConstraints reports a structural violation in a constraints file.
var ErrInvalidConstraints = errors.New("invalid constraints")

var (
	rangePattern        = regexp.MustCompile(`^(\d+):(\d+)$`)
	steppedRangePattern = regexp.MustCompile(`^(\d+):(\d+):(\d+)$`)
)

// Decode parses one constraints file: a top-level array of objects mapping
// property name to a string or array of strings, each normalized into the
// set of allowed values it denotes (spec.md §6, §8 property 7).
func Decode(data []byte) ([]entry.View, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a top-level array", ErrInvalidConstraints)
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConstraints, err)
	}

	views := make([]entry.View, len(raw))

	for i, item := range raw {
		allowed := make(map[string][]string, len(item))

		for prop, v := range item {
			values, err := decodeValueList(v)
			if err != nil {
				return nil, fmt.Errorf("%w: [%d]/%s: %w", ErrInvalidConstraints, i, prop, err)
			}

			allowed[prop] = expandAll(values)
		}

		views[i] = entry.NewView(allowed)
	}

	return views, nil
}

func decodeValueList(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("expected a string or array of strings")
	}

	return []string{single}, nil
}

// expandAll normalizes each value, expanding range syntax and deduplicating.
func expandAll(values []string) []string {
	seen := make(map[string]struct{})

	var out []string

	for _, v := range values {
		for _, expanded := range ExpandRange(v) {
			if _, ok := seen[expanded]; ok {
				continue
			}

			seen[expanded] = struct{}{}
			out = append(out, expanded)
		}
	}

	return out
}

// ExpandRange expands `"a:b"` to {str(i) | a <= i < b} and `"a:s:b"` to
// {str(a), str(a+s), ...} while < b (spec.md §8 property 7). Any other
// string is returned unchanged as a single-element slice.
func ExpandRange(v string) []string {
	if m := steppedRangePattern.FindStringSubmatch(v); m != nil {
		start, _ := strconv.Atoi(m[1])
		step, _ := strconv.Atoi(m[2])
		stop, _ := strconv.Atoi(m[3])

		if step <= 0 {
			return []string{v}
		}

		var out []string

		for i := start; i < stop; i += step {
			out = append(out, strconv.Itoa(i))
		}

		return out
	}

	if m := rangePattern.FindStringSubmatch(v); m != nil {
		start, _ := strconv.Atoi(m[1])
		stop, _ := strconv.Atoi(m[2])

		var out []string

		for i := start; i < stop; i++ {
			out = append(out, strconv.Itoa(i))
		}

		return out
	}

	return []string{v}
}

// Concat concatenates constraint file views in the order their files were
// given (original_source/kaon.py's get_constrains_from_json).
func Concat(lists ...[]entry.View) []entry.View {
	var out []entry.View

	for _, l := range lists {
		out = append(out, l...)
	}

	return out
}

// ConstrainedView folds constraint-file views together with the CLI view
// (spec.md's S4 scenario / original_source/kaon.py's get_constrained_view):
// each constraint view is overlaid with the CLI view property-wise, the CLI
// view winning outright on any shared property; if no constraint views were
// given, the CLI view alone is the only view.
func ConstrainedView(fromFiles []entry.View, cliView entry.View) entry.ConstrainedView {
	if len(fromFiles) == 0 {
		return entry.ConstrainedView{cliView}
	}

	out := make(entry.ConstrainedView, len(fromFiles))
	for i, v := range fromFiles {
		out[i] = v.Overlay(cliView)
	}

	return out
}
