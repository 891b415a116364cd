package cliconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.kaon.run/kaon/cliconfig"
	"go.kaon.run/kaon/schema"
)

func TestDiscoverOptionsAndVariables(t *testing.T) {
	t.Parallel()

	s, err := schema.Decode([]byte(`[
		{"modify":{"option-name":"kind","option-doc":"filter by kind","option-group":"filters"}},
		{"modify":{"variable-name":"cfg_dir","variable-doc":"config directory","variable-default":"."}},
		{"modify":{"variable-name":"cfg_num","variable-doc":"config number"}}
	]`))
	require.NoError(t, err)

	options, variables := cliconfig.Discover(s)

	require.Len(t, options, 1)
	assert.Equal(t, "kind", options[0].Name)
	assert.Equal(t, "filters", options[0].Group)

	require.Len(t, variables, 2)
	assert.Equal(t, "cfg_dir", variables[0].Name)
	assert.True(t, variables[0].HasDefault)
	assert.Equal(t, ".", variables[0].Default)
	assert.False(t, variables[1].HasDefault)
}

func TestBuildEnvironmentFailsWithoutRequiredVariable(t *testing.T) {
	t.Parallel()

	vars := []cliconfig.Variable{{Name: "cfg_num", HasDefault: false}}

	_, err := cliconfig.BuildEnvironment(vars, map[string]string{})
	require.Error(t, err)
	assert.ErrorIs(t, err, cliconfig.ErrMissingVariable)
}

func TestBuildEnvironmentUsesDefaultWhenUnsupplied(t *testing.T) {
	t.Parallel()

	vars := []cliconfig.Variable{{Name: "cfg_dir", Default: ".", HasDefault: true}}

	env, err := cliconfig.BuildEnvironment(vars, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, ".", env["cfg_dir"])
}

func TestBuildEnvironmentPrefersSuppliedValue(t *testing.T) {
	t.Parallel()

	vars := []cliconfig.Variable{{Name: "cfg_dir", Default: ".", HasDefault: true}}

	env, err := cliconfig.BuildEnvironment(vars, map[string]string{"cfg_dir": "/data"})
	require.NoError(t, err)
	assert.Equal(t, "/data", env["cfg_dir"])
}

func TestBuildViewFromOptionValues(t *testing.T) {
	t.Parallel()

	view := cliconfig.BuildView(map[string][]string{"kind": {"cfg", "eig"}})
	assert.True(t, view.Passes(map[string]string{"kind": "cfg"}))
	assert.False(t, view.Passes(map[string]string{"kind": "other"}))
}
