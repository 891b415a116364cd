package cliconfig

import (
	"errors"
	"fmt"

	"go.kaon.run/kaon/entry"
)

// ErrMissingVariable reports a variable-name flag with no default that the
// user never supplied (spec.md §6: "required iff no default").
var ErrMissingVariable = errors.New("missing required variable")

// BuildView folds option values (one or more strings per flag, as the user
// supplied them) into a CLI [entry.View].
func BuildView(values map[string][]string) entry.View {
	allowed := make(map[string][]string, len(values))
	for name, vals := range values {
		allowed[name] = vals
	}

	return entry.NewView(allowed)
}

// BuildEnvironment folds variable values into the interpolation environment,
// falling back to each variable's declared default and failing for any
// variable with neither a supplied value nor a default.
func BuildEnvironment(variables []Variable, supplied map[string]string) (entry.Environment, error) {
	env := make(entry.Environment, len(variables))

	for _, v := range variables {
		if val, ok := supplied[v.Name]; ok {
			env[v.Name] = val

			continue
		}

		if v.HasDefault {
			env[v.Name] = v.Default

			continue
		}

		return nil, fmt.Errorf("%w: --%s", ErrMissingVariable, v.Name)
	}

	return env, nil
}
