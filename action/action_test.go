package action_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.kaon.run/kaon/action"
	"go.kaon.run/kaon/entry"
)

func parseAction(t *testing.T, jsonAction string) action.Action {
	t.Helper()

	var a action.Action
	require.NoError(t, json.Unmarshal([]byte(jsonAction), &a))

	return a
}

// scriptedRunner returns fixed stdout looked up by the exact command string,
// so tests don't spawn real subprocesses.
type scriptedRunner struct {
	byCommand map[string]string
}

func (r scriptedRunner) Run(_ context.Context, command string) (string, error) {
	out, ok := r.byCommand[command]
	if !ok {
		return "", fmt.Errorf("unscripted command: %q", command)
	}

	return out, nil
}

func TestExecuteFanOut(t *testing.T) {
	t.Parallel()

	// S2: modify fans out prefix into pre0 (via @default)/pre1, each
	// execute line yields (o0,o1).
	a := parseAction(t, `{
		"modify": [{"prefix@default":"pre0"}, {"prefix":"pre1"}],
		"execute": {"command":"for i in 1 2; do echo {prefix} $i; done","return-properties":["o0","o1"]},
		"id": "ex-{o0}-{o1}"
	}`)

	runner := scriptedRunner{byCommand: map[string]string{
		"for i in 1 2; do echo pre0 $i; done": "pre0 1\npre0 2\n",
		"for i in 1 2; do echo pre1 $i; done": "pre1 1\npre1 2\n",
	}}

	store := entry.NewStore()
	err := action.Apply(context.Background(), store, a, entry.Environment{}, runner, nil)
	require.NoError(t, err)

	got := store.Entries()
	assert.Len(t, got, 4)

	byID := map[string]entry.Entry{}

	for _, e := range got {
		byID[e["o0"]+"-"+e["o1"]] = e
	}

	assert.Equal(t, "pre0", byID["pre0-1"]["prefix"])
	assert.Equal(t, "pre0", byID["pre0-2"]["prefix"])
	assert.Equal(t, "pre1", byID["pre1-1"]["prefix"])
	assert.Equal(t, "pre1", byID["pre1-2"]["prefix"])
}

func TestExecuteReturnedFieldsDoNotOverwriteInput(t *testing.T) {
	t.Parallel()

	// Open-question resolution (spec.md §9): returned fields act as
	// defaults beneath the input entry; they never overwrite.
	a := parseAction(t, `{
		"modify": {"prefix":"kept"},
		"execute": {"command":"echo {prefix}","return-properties":["prefix"]},
		"id": "e-{prefix}"
	}`)

	runner := scriptedRunner{byCommand: map[string]string{
		"echo kept": "overwritten\n",
	}}

	store := entry.NewStore()
	require.NoError(t, action.Apply(context.Background(), store, a, entry.Environment{}, runner, nil))

	got := store.Entries()
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0]["prefix"])
}

func TestIdentityFailureAborts(t *testing.T) {
	t.Parallel()

	// S5: id template references a property absent from the entry.
	a := parseAction(t, `{"modify": {"name":"e1"}, "id":"{missing}"}`)

	store := entry.NewStore()
	err := action.Apply(context.Background(), store, a, entry.Environment{}, action.ShellRunner{}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrMissingIdentity)
}

func TestExecuteArityErrorAborts(t *testing.T) {
	t.Parallel()

	// S6: a line with the wrong number of fields aborts the run.
	a := parseAction(t, `{
		"execute": {"command":"echo hi","return-properties":["x","y"]},
		"id": "e-{x}"
	}`)

	runner := scriptedRunner{byCommand: map[string]string{
		"echo hi": "a b c\n",
	}}

	store := entry.NewStore()
	err := action.Apply(context.Background(), store, a, entry.Environment{}, runner, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrExecuteArity)
}

func TestIdentityMergeIsFieldWiseRightBiased(t *testing.T) {
	t.Parallel()

	// §8 property 3, run through two actions sharing one store.
	first := parseAction(t, `{"modify": {"x":"1","y":"2"}, "id":"k"}`)
	second := parseAction(t, `{"modify": {"y":"3","z":"4"}, "id":"k"}`)

	store := entry.NewStore()
	require.NoError(t, action.Apply(context.Background(), store, first, entry.Environment{}, action.ShellRunner{}, nil))
	require.NoError(t, action.Apply(context.Background(), store, second, entry.Environment{}, action.ShellRunner{}, nil))

	got, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, entry.Entry{"x": "1", "y": "3", "z": "4"}, got)
}

func TestModifyCartesianFanOut(t *testing.T) {
	t.Parallel()

	a := parseAction(t, `{"modify": {"a":["1","2"], "b":["x","y"]}, "id":"{a}-{b}"}`)

	store := entry.NewStore()
	require.NoError(t, action.Apply(context.Background(), store, a, entry.Environment{}, action.ShellRunner{}, nil))

	assert.Len(t, store.Entries(), 4)

	for _, want := range []string{"1-x", "1-y", "2-x", "2-y"} {
		_, ok := store.Get(want)
		assert.True(t, ok, "missing id %q", want)
	}
}

func TestUnknownActionKeyRejected(t *testing.T) {
	t.Parallel()

	var a action.Action
	err := json.Unmarshal([]byte(`{"bogus": true}`), &a)

	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrInvalidAction)
}

func TestShowAfterTrace(t *testing.T) {
	t.Parallel()

	a := parseAction(t, `{"modify": {"name":"e1"}, "id":"e-{name}", "show-after": ["modify"]}`)

	var buf bytes.Buffer

	store := entry.NewStore()
	require.NoError(t, action.Apply(context.Background(), store, a, entry.Environment{}, action.ShellRunner{}, &buf))

	assert.Contains(t, buf.String(), "Entries after applying `modify`")
}

func TestExecuteInterpolationMissingSkipsEntrySilently(t *testing.T) {
	t.Parallel()

	a := parseAction(t, `{
		"modify": {"kind":"cfg"},
		"execute": {"command":"echo {missing}","return-properties":["o"]},
		"id": "e-{kind}"
	}`)

	store := entry.NewStore()

	err := action.Apply(context.Background(), store, a, entry.Environment{}, scriptedRunner{}, nil)
	require.NoError(t, err)
	assert.Empty(t, store.Entries())
}
