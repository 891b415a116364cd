package constraint

import (
	"sort"
	"strings"

	"go.kaon.run/kaon/entry"
)

// Select evaluates spec against entries (the full current working set, as
// given to every leaf of the spec tree independently) and returns the
// surviving, enriched entries (spec.md §4.3).
func Select(spec *Spec, entries []entry.Entry, env entry.Environment) []entry.Entry {
	switch spec.Kind {
	case KindPredicate:
		var out []entry.Entry

		for _, e := range entries {
			if enriched, ok := spec.Predicate.Apply(e, env); ok {
				out = append(out, enriched)
			}
		}

		return out

	case KindAnd:
		var out []entry.Entry

		for _, sub := range spec.Subspecs {
			out = append(out, Select(sub, entries, env)...)
		}

		return out

	case KindJoint:
		results := make([][]entry.Entry, len(spec.Subspecs))
		for i, sub := range spec.Subspecs {
			results[i] = Select(sub, entries, env)
		}

		return joint(results)
	}

	return nil
}

// commonProps returns the property names present in every entry of entries.
func commonProps(entries []entry.Entry) map[string]struct{} {
	common := make(map[string]struct{})

	if len(entries) == 0 {
		return common
	}

	for k := range entries[0] {
		common[k] = struct{}{}
	}

	for _, e := range entries[1:] {
		for k := range common {
			if _, ok := e[k]; !ok {
				delete(common, k)
			}
		}
	}

	return common
}

func intersectAll(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})

	if len(sets) == 0 {
		return out
	}

	for k := range sets[0] {
		out[k] = struct{}{}
	}

	for _, s := range sets[1:] {
		for k := range out {
			if _, ok := s[k]; !ok {
				delete(out, k)
			}
		}
	}

	return out
}

func mergeChain(entries []entry.Entry) entry.Entry {
	if len(entries) == 0 {
		return entry.Entry{}
	}

	out := entries[0].Clone()
	for _, e := range entries[1:] {
		out = out.Merge(e)
	}

	return out
}

func groupKey(e entry.Entry, keys []string) string {
	var sb strings.Builder

	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(e[k])
		sb.WriteByte(0)
	}

	return sb.String()
}

// joint implements spec.md §4.3's `joint` combinator: a natural join on the
// properties common across every sub-spec's results, falling back to a
// Cartesian product when no such common property exists.
func joint(results [][]entry.Entry) []entry.Entry {
	propSets := make([]map[string]struct{}, len(results))
	for i, r := range results {
		propSets[i] = commonProps(r)
	}

	common := intersectAll(propSets)
	if len(common) == 0 {
		return cartesian(results)
	}

	keys := make([]string, 0, len(common))
	for k := range common {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	type group struct {
		members [][]entry.Entry
	}

	groups := make(map[string]*group)

	var order []string

	for i, r := range results {
		for _, e := range r {
			gk := groupKey(e, keys)

			g, ok := groups[gk]
			if !ok {
				g = &group{members: make([][]entry.Entry, len(results))}
				groups[gk] = g
				order = append(order, gk)
			}

			g.members[i] = append(g.members[i], e)
		}
	}

	var out []entry.Entry

	for _, gk := range order {
		g := groups[gk]

		complete := true

		for _, m := range g.members {
			if len(m) == 0 {
				complete = false

				break
			}
		}

		if !complete {
			continue
		}

		out = append(out, cartesian(g.members)...)
	}

	return out
}

// cartesian returns the Cartesian product of lists, merging each combination
// left-to-right (later sub-specs win on field conflict).
func cartesian(lists [][]entry.Entry) []entry.Entry {
	if len(lists) == 0 {
		return nil
	}

	combos := [][]entry.Entry{{}}

	for _, list := range lists {
		if len(list) == 0 {
			return nil
		}

		var next [][]entry.Entry

		for _, combo := range combos {
			for _, e := range list {
				nc := make([]entry.Entry, len(combo)+1)
				copy(nc, combo)
				nc[len(combo)] = e
				next = append(next, nc)
			}
		}

		combos = next
	}

	out := make([]entry.Entry, len(combos))
	for i, combo := range combos {
		out[i] = mergeChain(combo)
	}

	return out
}
