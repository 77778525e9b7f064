package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccumulatorFullContext(t *testing.T) {
	acc := newContextAccumulator()
	acc.record("research", "research findings", "")
	acc.record("draft", "draft text", "article")

	task := NewTask("review", "Review {{draft_output}} based on {{research_output}}")
	vars := acc.vars(task, nil, true, acc.previousOutput())

	assert.Equal(t, "research findings", vars["research_output"])
	assert.Equal(t, "draft text", vars["draft_output"])
	assert.Equal(t, "draft text", vars["previous_output"])
	assert.Equal(t, "draft text", vars["article"], "output_variable binding")
}

func TestContextAccumulatorContextFrom(t *testing.T) {
	acc := newContextAccumulator()
	acc.record("a", "out-a", "")
	acc.record("b", "out-b", "")
	acc.record("c", "out-c", "")

	task := NewTask("d", "").WithContextFrom("a", "c")
	vars := acc.vars(task, nil, true, acc.previousOutput())

	assert.Equal(t, "out-a", vars["a_output"])
	assert.Equal(t, "out-c", vars["c_output"])
	assert.NotContains(t, vars, "b_output")
	assert.Equal(t, "out-c", vars["previous_output"])
}

// With retain_full_context=false and no context_from, earlier outputs are
// invisible: their tokens stay literal while previous_output still
// substitutes.
func TestContextAccumulatorPreviousOnly(t *testing.T) {
	acc := newContextAccumulator()
	acc.record("early", "early output", "")
	acc.record("late", "late output", "")

	task := NewTask("next", "was: {{early_output}}, prev: {{previous_output}}").
		WithRetainFullContext(false)
	vars := acc.vars(task, nil, true, acc.previousOutput())

	assert.NotContains(t, vars, "early_output")
	assert.Equal(t, "late output", vars["previous_output"])

	action := substitute(task.Action, vars, true)
	assert.Equal(t, "was: {{early_output}}, prev: late output", action)
}

func TestContextAccumulatorStateAndPrecedence(t *testing.T) {
	state := NewMemoryState()
	state.Set("budget", 1000)
	state.Set("draft_output", "stale")

	acc := newContextAccumulator()
	acc.record("draft", "fresh", "")

	task := NewTask("next", "")
	vars := acc.vars(task, state, true, acc.previousOutput())

	assert.Equal(t, 1000, vars["budget"])
	// Step outputs shadow same-named state entries.
	assert.Equal(t, "fresh", vars["draft_output"])
}

func TestContextAccumulatorDisabled(t *testing.T) {
	state := NewMemoryState()
	state.Set("budget", 1000)

	acc := newContextAccumulator()
	acc.record("a", "out-a", "bound")

	task := NewTask("b", "")
	vars := acc.vars(task, state, false, acc.previousOutput())

	assert.Equal(t, 1000, vars["budget"], "state stays visible")
	assert.NotContains(t, vars, "a_output")
	assert.NotContains(t, vars, "bound")
	assert.NotContains(t, vars, "previous_output")
}

func TestContextAccumulatorLoopOverwrites(t *testing.T) {
	acc := newContextAccumulator()
	acc.record("loop", "first pass", "")
	acc.record("loop", "second pass", "")

	outputs := acc.snapshotOutputs()
	assert.Len(t, outputs, 1, "re-executed step keeps a single slot")
	assert.Equal(t, "second pass", outputs[0].Output)
}
