package flow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Start executes the workflow asynchronously with respect to forks: when a
// step routes to multiple next steps, each branch runs as its own goroutine.
// The contract is identical to Run.
//
// Within one branch a step's output is visible to its successor before the
// successor starts. Across concurrently forked branches there is no ordering
// guarantee: when branches converge on the same downstream step or write the
// same state keys, the last branch to finish wins. The state store's single
// lock keeps individual compound operations atomic, nothing more.
func (w *Workflow) Start(ctx context.Context) (*RunResult, error) {
	return w.drive(ctx, true)
}

// fork continues execution across the given branch heads: sequentially under
// Run, concurrently under Start. Structural errors from any branch surface;
// per-step failures have already been folded into the run.
func (r *run) fork(ctx context.Context, branches []string, previous string) error {
	if !r.concurrent {
		for _, name := range branches {
			if err := r.executeBranch(ctx, name, previous); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for _, name := range branches {
		g.Go(func() error {
			return r.executeBranch(ctx, name, previous)
		})
	}
	return g.Wait()
}
