package schema

import (
	"context"
	"io"

	"go.kaon.run/kaon/action"
	"go.kaon.run/kaon/entry"
)

// Run executes every action in s against a fresh store, in order, then
// filters the surviving entries by constrainedView (spec.md §4.5).
func Run(ctx context.Context, s Schema, constrainedView entry.ConstrainedView, env entry.Environment, runner action.Runner, trace io.Writer) ([]entry.Entry, error) {
	store := entry.NewStore()

	for _, act := range s.Actions {
		if err := action.Apply(ctx, store, act, env, runner, trace); err != nil {
			return nil, err
		}
	}

	return constrainedView.Filter(store.Entries()), nil
}
