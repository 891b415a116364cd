package constraint

import (
	"regexp"
	"slices"

	"go.kaon.run/kaon/entry"
	"go.kaon.run/kaon/interpolate"
)

// Apply evaluates p's clauses against e in order, threading bindings produced
// by earlier clauses into later ones (spec.md §4.3). It returns the enriched
// entry and true if every clause passed, or a zero entry and false if any
// clause rejected e or depended on a missing placeholder.
func (p *Predicate) Apply(e entry.Entry, env entry.Environment) (entry.Entry, bool) {
	current := e.Clone()

	for _, clause := range p.Clauses {
		var ok bool

		current, ok = clause.apply(current, env)
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func (c Clause) apply(current entry.Entry, env entry.Environment) (entry.Entry, bool) {
	switch c.Kind {
	case ClauseEquals:
		val, present := current[c.Property]
		if !present || !slices.Contains(c.Set, val) {
			return nil, false
		}

		return current, true

	case ClausePresent:
		if _, present := current[c.Property]; !present {
			return nil, false
		}

		return current, true

	case ClauseAbsent:
		if _, present := current[c.Property]; present {
			return nil, false
		}

		return current, true

	case ClauseInSet:
		val, present := current[c.Property]
		if !present || !slices.Contains(c.Set, val) {
			return nil, false
		}

		return current, true

	case ClauseInterpolate:
		return c.applyInterpolate(current, env)

	case ClauseCopyTo:
		val, present := current[c.Property]
		if !present {
			return nil, false
		}

		out := current.Clone()
		out[c.Name] = val

		return out, true

	case ClauseMoveTo:
		val, present := current[c.Property]
		if !present {
			return nil, false
		}

		out := current.Clone()
		out[c.Name] = val
		delete(out, c.Property)

		return out, true

	case ClauseMoveToDelete:
		if _, present := current[c.Property]; !present {
			return nil, false
		}

		out := current.Clone()
		delete(out, c.Property)

		return out, true

	case ClauseMatchingRe:
		return c.applyMatchingRe(current, env)
	}

	return nil, false
}

func (c Clause) applyInterpolate(current entry.Entry, env entry.Environment) (entry.Entry, bool) {
	val, ok := interpolate.Try(c.Template, interpolate.Merged(current, env))
	if !ok {
		return nil, false
	}

	existing, present := current[c.Property]
	if present {
		if existing != val {
			return nil, false
		}

		return current, true
	}

	out := current.Clone()
	out[c.Property] = val

	return out, true
}

// applyMatchingRe full-matches the regex produced by interpolating c.Template
// against the current value of c.Property, binding every named capture group
// as a new property. If the property is absent (and no earlier clause in
// this object set it via interpolate), the clause filters the entry out —
// spec.md §9's resolved open question.
func (c Clause) applyMatchingRe(current entry.Entry, env entry.Environment) (entry.Entry, bool) {
	pattern, ok := interpolate.Try(c.Template, interpolate.Merged(current, env))
	if !ok {
		return nil, false
	}

	val, present := current[c.Property]
	if !present {
		return nil, false
	}

	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, false
	}

	names := re.SubexpNames()

	match := re.FindStringSubmatch(val)
	if match == nil {
		return nil, false
	}

	out := current.Clone()

	for i, name := range names {
		if i == 0 || name == "" {
			continue
		}

		out[name] = match[i]
	}

	return out, true
}
