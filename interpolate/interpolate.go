// Package interpolate implements KAON's `{name}` placeholder expansion.
// See spec.md §4.2.
package interpolate

import (
	"errors"
	"fmt"
	"strings"

	"go.kaon.run/kaon/entry"
)

// ErrMissingPlaceholder is returned by [Required] when a placeholder cannot
// be resolved. Guard-style callers use [Try] instead and never see this.
var ErrMissingPlaceholder = errors.New("missing placeholder")

// Try expands every `{name}` placeholder in template against merged, which
// should already be the @default-resolved entry merged with the environment
// (spec.md §4.2 resolution order: @default-resolve entry, then entry, then
// env). It reports ok=false if any placeholder cannot be resolved, without
// an error — interpolation is a filtering guard in select/execute contexts
// (spec.md §7, MissingPlaceholderInSelectOrExecute).
func Try(template string, merged entry.Entry) (result string, ok bool) {
	var sb strings.Builder

	rest := template

	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			sb.WriteString(rest)

			break
		}

		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			sb.WriteString(rest)

			break
		}

		end += start

		sb.WriteString(rest[:start])

		name := rest[start+1 : end]

		val, present := merged[name]
		if !present {
			return "", false
		}

		sb.WriteString(val)

		rest = rest[end+1:]
	}

	return sb.String(), true
}

// Required is [Try], promoted to a fatal error for contexts where a missing
// placeholder aborts the run (spec.md §7, MissingPlaceholderInId) — namely
// the identity template.
func Required(template string, merged entry.Entry) (string, error) {
	result, ok := Try(template, merged)
	if !ok {
		return "", fmt.Errorf("%w: in template %q", ErrMissingPlaceholder, template)
	}

	return result, nil
}

// Merged builds the lookup entry used by interpolation: the @default-resolved
// form of e, with env visible beneath it (entries take precedence over the
// environment on name conflict, per spec.md §3).
func Merged(e entry.Entry, env entry.Environment) entry.Entry {
	return env.Merge(e.ResolveDefaults())
}
