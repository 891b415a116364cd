package entry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.kaon.run/kaon/entry"
)

func TestResolveDefaults(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input entry.Entry
		want  entry.Entry
	}{
		"stripped key absent, default applies": {
			input: entry.Entry{"prefix@default": "pre0"},
			want:  entry.Entry{"prefix": "pre0"},
		},
		"stripped key present, default dropped": {
			input: entry.Entry{"prefix@default": "pre0", "prefix": "pre1"},
			want:  entry.Entry{"prefix": "pre1"},
		},
		"no default key, unaffected": {
			input: entry.Entry{"name": "e1"},
			want:  entry.Entry{"name": "e1"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := tc.input.ResolveDefaults()
			assert.Equal(t, tc.want, got)

			// Idempotence (spec.md §8 property 4).
			again := got.ResolveDefaults()
			assert.Equal(t, got, again)
		})
	}
}

func TestEntryMerge(t *testing.T) {
	t.Parallel()

	a := entry.Entry{"x": "1", "y": "2"}
	b := entry.Entry{"y": "3", "z": "4"}

	got := a.Merge(b)
	assert.Equal(t, entry.Entry{"x": "1", "y": "3", "z": "4"}, got)
	// Inputs are untouched.
	assert.Equal(t, entry.Entry{"x": "1", "y": "2"}, a)
}

func TestStoreUpsertFieldWiseRightBiased(t *testing.T) {
	t.Parallel()

	s := entry.NewStore()
	s.Upsert("k", entry.Entry{"x": "1", "y": "2"})
	s.Upsert("k", entry.Entry{"y": "3", "z": "4"})

	got, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, entry.Entry{"x": "1", "y": "3", "z": "4"}, got)
}

func TestStorePreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	s := entry.NewStore()
	s.Upsert("b", entry.Entry{"n": "1"})
	s.Upsert("a", entry.Entry{"n": "2"})
	s.Upsert("b", entry.Entry{"n": "1", "extra": "x"})

	got := s.Entries()
	assert.Equal(t, []entry.Entry{
		{"n": "1", "extra": "x"},
		{"n": "2"},
	}, got)
}

func TestViewPasses(t *testing.T) {
	t.Parallel()

	v := entry.NewView(map[string][]string{"kind": {"cfg"}})

	assert.True(t, v.Passes(entry.Entry{"kind": "cfg"}))
	assert.False(t, v.Passes(entry.Entry{"kind": "eig"}))
	assert.True(t, v.Passes(entry.Entry{"other": "x"}), "missing property passes")
}

func TestConstrainedViewMonotone(t *testing.T) {
	t.Parallel()

	e := entry.Entry{"kind": "eig"}

	narrow := entry.ConstrainedView{entry.NewView(map[string][]string{"kind": {"cfg"}})}
	assert.False(t, narrow.Passes(e))

	wider := entry.ConstrainedView{entry.NewView(map[string][]string{"kind": {"cfg", "eig"}})}
	assert.True(t, wider.Passes(e), "enlarging the allowed set cannot remove a surviving entry")
}
