package output_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.kaon.run/kaon/entry"
	"go.kaon.run/kaon/output"
	"go.kaon.run/kaon/stringtest"
)

func TestRestrictDropsInternalKeysAndEmptyEntries(t *testing.T) {
	t.Parallel()

	entries := []entry.Entry{
		{"name": "e1", "option-name": "foo", "option-doc": "bar"},
		{"option-name": "only-internal"},
	}

	got := output.Restrict(entries, nil)
	assert.Equal(t, []entry.Entry{{"name": "e1"}}, got)
}

func TestRestrictToShowList(t *testing.T) {
	t.Parallel()

	entries := []entry.Entry{{"a": "1", "b": "2", "c": "3"}}

	got := output.Restrict(entries, []string{"a", "c"})
	assert.Equal(t, []entry.Entry{{"a": "1", "c": "3"}}, got)
}

func TestTableLeftJustifiesToWidestCellAndFillsNull(t *testing.T) {
	t.Parallel()

	entries := []entry.Entry{{"a": "x", "b": "yyy"}, {"a": "zz"}}

	var buf bytes.Buffer
	require.NoError(t, output.Table(&buf, entries, []string{"a", "b"}, " ", false))

	want := stringtest.JoinLF("x  yyy   ", "zz _null_") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestTableWithHeader(t *testing.T) {
	t.Parallel()

	entries := []entry.Entry{{"a": "1"}}

	var buf bytes.Buffer
	require.NoError(t, output.Table(&buf, entries, []string{"a"}, " ", true))

	assert.Equal(t, "a\n1\n", buf.String())
}

func TestJSONSortedKeysIndented(t *testing.T) {
	t.Parallel()

	entries := []entry.Entry{{"b": "2", "a": "1"}}

	var buf bytes.Buffer
	require.NoError(t, output.JSON(&buf, entries))

	want := stringtest.JoinLF(
		"[",
		"    {",
		`        "a": "1",`,
		`        "b": "2"`,
		"    }",
		"]",
	) + "\n"
	assert.Equal(t, want, buf.String())
}

func TestSchemaRoundTripShape(t *testing.T) {
	t.Parallel()

	entries := []entry.Entry{{"name": "e1"}}

	var buf bytes.Buffer
	require.NoError(t, output.Schema(&buf, entries))

	assert.Contains(t, buf.String(), `"modify"`)
	assert.Contains(t, buf.String(), `"name": "e1"`)
}
