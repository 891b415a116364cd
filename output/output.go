// Package output renders the entries a schema run produced, in the formats
// spec.md §6 names: headless-table, table, json, and schema.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.kaon.run/kaon/entry"
)

// Format selects one of the renderers below.
type Format string

const (
	FormatHeadlessTable Format = "headless-table"
	FormatTable         Format = "table"
	FormatJSON          Format = "json"
	FormatSchema        Format = "schema"
)

// ignoreAttributes are dropped from output unless --show names them
// explicitly (spec.md §6, original_source/kaon.py's ignore_attributes).
var ignoreAttributes = map[string]struct{}{
	"option-name":      {},
	"option-doc":       {},
	"option-group":     {},
	"variable-name":    {},
	"variable-doc":     {},
	"variable-default": {},
}

// Restrict filters each entry to `show` (if non-empty) or to every key
// outside the internal ignore set, dropping entries that become empty
// (spec.md §6, before-output filtering rule).
func Restrict(entries []entry.Entry, show []string) []entry.Entry {
	var out []entry.Entry

	for _, e := range entries {
		restricted := restrictOne(e, show)
		if len(restricted) > 0 {
			out = append(out, restricted)
		}
	}

	return out
}

func restrictOne(e entry.Entry, show []string) entry.Entry {
	out := entry.Entry{}

	if len(show) > 0 {
		for _, k := range show {
			if v, ok := e[k]; ok {
				out[k] = v
			}
		}

		return out
	}

	for k, v := range e {
		if _, ignored := ignoreAttributes[k]; ignored {
			continue
		}

		out[k] = v
	}

	return out
}

// columns returns the output column order: show, if given, else every key
// used by any entry, sorted for determinism.
func columns(entries []entry.Entry, show []string) []string {
	if len(show) > 0 {
		return show
	}

	seen := make(map[string]struct{})

	for _, e := range entries {
		for k := range e {
			seen[k] = struct{}{}
		}
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}

	sort.Strings(cols)

	return cols
}

// Table renders entries as fixed-width left-justified columns joined by sep;
// withHeader prepends a header row of column names (spec.md §6's
// headless-table/table formats).
func Table(w io.Writer, entries []entry.Entry, show []string, sep string, withHeader bool) error {
	cols := columns(entries, show)

	rows := make([][]string, 0, len(entries)+1)
	if withHeader {
		rows = append(rows, cols)
	}

	for _, e := range entries {
		row := make([]string, len(cols))
		for i, c := range cols {
			v, ok := e[c]
			if !ok {
				v = "_null_"
			}

			row[i] = v
		}

		rows = append(rows, row)
	}

	widths := make([]int, len(cols))
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for _, row := range rows {
		padded := make([]string, len(row))
		for i, cell := range row {
			padded[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}

		if _, err := fmt.Fprintln(w, strings.Join(padded, sep)); err != nil {
			return err
		}
	}

	return nil
}

// JSON renders entries as a pretty-printed, key-sorted JSON array with a
// trailing newline (spec.md §6's json format).
func JSON(w io.Writer, entries []entry.Entry) error {
	maps := make([]map[string]string, len(entries))
	for i, e := range entries {
		maps[i] = map[string]string(e)
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(maps); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())

	return err
}

// Schema renders entries as `[{"modify": [...entries...]}]`, allowing the
// output of one run to be fed back in as a new schema file (spec.md §6's
// schema format).
func Schema(w io.Writer, entries []entry.Entry) error {
	maps := make([]map[string]string, len(entries))
	for i, e := range entries {
		maps[i] = map[string]string(e)
	}

	doc := []map[string]any{{"modify": maps}}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(doc); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())

	return err
}

// Render dispatches to the renderer named by format.
func Render(w io.Writer, format Format, entries []entry.Entry, show []string, sep string) error {
	switch format {
	case FormatHeadlessTable:
		return Table(w, entries, show, sep, false)
	case FormatTable:
		return Table(w, entries, show, sep, true)
	case FormatJSON:
		return JSON(w, entries)
	case FormatSchema:
		return Schema(w, entries)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
