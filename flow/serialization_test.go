package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsmith-ai/flowsmith/types"
)

func TestTaskRoundTrip(t *testing.T) {
	orig := NewTask("decide", "Check {{input}} and decide").
		WithType(TaskTypeDecision).
		WithExpectedOutput("approved or rejected").
		WithAgent(&AgentConfig{Role: "Reviewer", Goal: "judge", LLM: "gpt-4o", Tools: []string{"search"}}).
		WithTools("search", "calculator").
		WithCondition(map[string][]string{
			"approved": {"publish"},
			"rejected": {"revise"},
		}).
		WithContextFrom("draft").
		WithOutputVariable("verdict").
		WithExecution(ExecutionPolicy{MaxRetries: 5, OnError: OnErrorRetry, Async: true})
	orig.IsStart = true

	got, err := TaskFromMap(orig.ToMap())
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

// The serialized map must survive a JSON encode/decode cycle, where slices
// come back as []any and ints as float64.
func TestTaskRoundTripThroughJSON(t *testing.T) {
	orig := NewTask("loop", "Process the next batch").
		WithType(TaskTypeLoop).
		WithCondition(map[string][]string{
			"continue": {"loop"},
			"done":     {"report", "archive"},
		}).
		WithExecution(ExecutionPolicy{MaxRetries: 2, OnError: OnErrorContinue})

	raw, err := json.Marshal(orig.ToMap())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	got, err := TaskFromMap(decoded)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestTaskFromMapDefaults(t *testing.T) {
	got, err := TaskFromMap(map[string]any{"name": "bare"})
	require.NoError(t, err)

	assert.Equal(t, TaskTypeNormal, got.Type)
	assert.True(t, got.RetainFullContext)
	assert.Equal(t, DefaultExecutionPolicy(), got.Execution)
	assert.Nil(t, got.AgentConfig)
}

func TestTaskFromMapErrors(t *testing.T) {
	_, err := TaskFromMap(map[string]any{"description": "no name"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrDefinition))

	_, err = TaskFromMap(map[string]any{"name": "x", "agent_config": "not a map"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrDefinition))

	_, err = TaskFromMap(map[string]any{"name": "x", "execution": 42})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrDefinition))
}

// A bare string condition target is normalized into a one-element list.
func TestTaskFromMapBareStringCondition(t *testing.T) {
	got, err := TaskFromMap(map[string]any{
		"name":      "decide",
		"task_type": "decision",
		"condition": map[string]any{
			"yes": "proceed",
			"no":  []any{"revise", "halt"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"yes": {"proceed"},
		"no":  {"revise", "halt"},
	}, got.Condition)
}
