package flow

import "sync"

// PreviousOutputVar is the binding holding the immediately preceding step's
// output within a branch.
const PreviousOutputVar = "previous_output"

// outputSuffix is appended to a step name to form its context binding.
const outputSuffix = "_output"

// contextAccumulator records per-step raw outputs and custom output-variable
// bindings for one run. It is created fresh for every Run/Start invocation;
// the workflow's State outlives it.
//
// A mutex guards all access because concurrently forked branches record
// outputs at the same time; when branches converge the last writer wins.
type contextAccumulator struct {
	mu        sync.Mutex
	order     []string
	outputs   map[string]string
	variables map[string]any
	previous  string
}

func newContextAccumulator() *contextAccumulator {
	return &contextAccumulator{
		outputs:   make(map[string]string),
		variables: make(map[string]any),
	}
}

// record stores a completed step's raw output and its optional custom
// variable binding, and advances previous_output.
func (c *contextAccumulator) record(step, output, outputVariable string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.outputs[step]; !seen {
		c.order = append(c.order, step)
	}
	c.outputs[step] = output
	c.previous = output
	if outputVariable != "" {
		c.variables[outputVariable] = output
	}
}

// previousOutput returns the branch-latest recorded output.
func (c *contextAccumulator) previousOutput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous
}

// vars builds the variable map visible to the given task: the workflow state
// snapshot at the lowest precedence, then custom output variables, then the
// per-step output bindings the task is allowed to see, then previous_output.
//
// previous is the branch-local predecessor output. Branches carry their own
// value so that a step always sees its immediate predecessor within the
// branch even while other branches are recording concurrently.
//
// Visibility rules:
//   - ContextFrom set: only the named steps' outputs.
//   - otherwise RetainFullContext: every prior output in the run.
//   - otherwise: no step bindings, previous_output only.
//
// When the workflow-level context switch is off, no step outputs or
// output-variable bindings are exposed at all.
func (c *contextAccumulator) vars(t *Task, state State, contextEnabled bool, previous string) map[string]any {
	vars := make(map[string]any)
	if state != nil {
		for k, v := range state.Snapshot() {
			vars[k] = v
		}
	}
	if !contextEnabled {
		return vars
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range c.variables {
		vars[k] = v
	}

	switch {
	case len(t.ContextFrom) > 0:
		for _, name := range t.ContextFrom {
			if out, ok := c.outputs[name]; ok {
				vars[name+outputSuffix] = out
			}
		}
	case t.RetainFullContext:
		for _, name := range c.order {
			vars[name+outputSuffix] = c.outputs[name]
		}
	}

	vars[PreviousOutputVar] = previous
	return vars
}

// snapshotOutputs returns the recorded outputs in completion order.
func (c *contextAccumulator) snapshotOutputs() []struct{ Step, Output string } {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]struct{ Step, Output string }, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, struct{ Step, Output string }{name, c.outputs[name]})
	}
	return out
}
