package constraint_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.kaon.run/kaon/constraint"
	"go.kaon.run/kaon/entry"
)

func parseSpec(t *testing.T, jsonSpec string) *constraint.Spec {
	t.Helper()

	var spec constraint.Spec
	require.NoError(t, json.Unmarshal([]byte(jsonSpec), &spec))

	return &spec
}

func TestPredicateMatchingReCopyTo(t *testing.T) {
	t.Parallel()

	spec := parseSpec(t, `{"name":{"matching-re":"e(?P<num>\\d+)","copy-to":"alias"}}`)

	entries := []entry.Entry{
		{"name": "e1"},
		{"name": "e2"},
		{"name": "not-matching"},
	}

	got := constraint.Select(spec, entries, entry.Environment{})

	assert.Equal(t, []entry.Entry{
		{"name": "e1", "alias": "e1", "num": "1"},
		{"name": "e2", "alias": "e2", "num": "2"},
	}, got)
}

func TestPredicateInterpolateThenMatchingRe(t *testing.T) {
	t.Parallel()

	// matching-re consumes the value just produced by interpolate, and its
	// captures are visible to subsequent rules (spec.md §4.3).
	spec := parseSpec(t, `{
		"name": {"interpolate": "{base}-{n}", "matching-re": "(?P<prefix>.+)-(?P<suffix>\\d+)"}
	}`)

	entries := []entry.Entry{{"base": "e", "n": "7"}}

	got := constraint.Select(spec, entries, entry.Environment{})
	require.Len(t, got, 1)
	assert.Equal(t, "e-7", got[0]["name"])
	assert.Equal(t, "e", got[0]["prefix"])
	assert.Equal(t, "7", got[0]["suffix"])
}

func TestMatchingReWithoutPriorValueFiltersOut(t *testing.T) {
	t.Parallel()

	// Open question resolution (spec.md §9): neither present nor
	// interpolate-supplied => filtered out.
	spec := parseSpec(t, `{"missing": {"matching-re": ".*"}}`)

	got := constraint.Select(spec, []entry.Entry{{"name": "e1"}}, entry.Environment{})
	assert.Empty(t, got)
}

func TestInClauseForms(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		spec    string
		entries []entry.Entry
		want    []entry.Entry
	}{
		"in: null requires presence": {
			spec:    `{"kind":{"in":null}}`,
			entries: []entry.Entry{{"kind": "cfg"}, {"other": "x"}},
			want:    []entry.Entry{{"kind": "cfg"}},
		},
		"in: [] requires absence": {
			spec:    `{"kind":{"in":[]}}`,
			entries: []entry.Entry{{"kind": "cfg"}, {"other": "x"}},
			want:    []entry.Entry{{"other": "x"}},
		},
		"in: [pv,...] requires membership": {
			spec:    `{"kind":{"in":["cfg","eig"]}}`,
			entries: []entry.Entry{{"kind": "cfg"}, {"kind": "other"}},
			want:    []entry.Entry{{"kind": "cfg"}},
		},
		"bare object means present": {
			spec:    `{"kind":{}}`,
			entries: []entry.Entry{{"kind": "cfg"}, {"other": "x"}},
			want:    []entry.Entry{{"kind": "cfg"}},
		},
		"literal list is any-of": {
			spec:    `{"kind":["cfg","eig"]}`,
			entries: []entry.Entry{{"kind": "cfg"}, {"kind": "other"}},
			want:    []entry.Entry{{"kind": "cfg"}},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			spec := parseSpec(t, tc.spec)
			got := constraint.Select(spec, tc.entries, entry.Environment{})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMoveTo(t *testing.T) {
	t.Parallel()

	spec := parseSpec(t, `{"tmp":{"move-to":"final"}}`)

	got := constraint.Select(spec, []entry.Entry{{"tmp": "v", "other": "x"}}, entry.Environment{})
	require.Len(t, got, 1)
	assert.Equal(t, entry.Entry{"final": "v", "other": "x"}, got[0])
}

func TestMoveToNullDeletes(t *testing.T) {
	t.Parallel()

	spec := parseSpec(t, `{"tmp":{"move-to":null}}`)

	got := constraint.Select(spec, []entry.Entry{{"tmp": "v", "other": "x"}}, entry.Environment{})
	require.Len(t, got, 1)
	assert.Equal(t, entry.Entry{"other": "x"}, got[0])
}

func TestAndConcatenates(t *testing.T) {
	t.Parallel()

	spec := parseSpec(t, `["and", {"k":"A"}, {"k":"B"}]`)

	entries := []entry.Entry{{"k": "A"}, {"k": "B"}, {"k": "C"}}

	got := constraint.Select(spec, entries, entry.Environment{})
	assert.Equal(t, []entry.Entry{{"k": "A"}, {"k": "B"}}, got)
}

func TestJointNaturalJoin(t *testing.T) {
	t.Parallel()

	// S3: two sub-specs producing [{k:A,x:1},{k:B,x:2}] and
	// [{k:A,y:9},{k:C,y:3}]; joint yields [{k:A,x:1,y:9}].
	spec := parseSpec(t, `["joint", {"x":{}}, {"y":{}}]`)

	entries := []entry.Entry{
		{"k": "A", "x": "1"},
		{"k": "B", "x": "2"},
		{"k": "A", "y": "9"},
		{"k": "C", "y": "3"},
	}

	got := constraint.Select(spec, entries, entry.Environment{})
	assert.Equal(t, []entry.Entry{{"k": "A", "x": "1", "y": "9"}}, got)
}

func TestJointCartesianOnDisjointSchemas(t *testing.T) {
	t.Parallel()

	// §8 property 6: joint on disjoint schemas = Cartesian product.
	spec := parseSpec(t, `["joint", {"a":{}}, {"b":{}}]`)

	entries := []entry.Entry{{"a": "1"}, {"a": "2"}, {"b": "x"}}

	got := constraint.Select(spec, entries, entry.Environment{})
	assert.ElementsMatch(t, []entry.Entry{
		{"a": "1", "b": "x"},
		{"a": "2", "b": "x"},
	}, got)
}
