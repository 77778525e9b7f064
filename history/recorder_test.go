package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsmith-ai/flowsmith/flow"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	r, err := NewRecorder(db, nil)
	require.NoError(t, err)
	return r
}

func TestRecorderRecordAndGet(t *testing.T) {
	r := newTestRecorder(t)
	started := time.Now().Add(-time.Second)

	result := &flow.RunResult{
		Success: false,
		Output:  "partial",
		Status:  flow.StatusFailed,
		Results: []flow.StepResult{
			{Step: "outline", Output: "the outline", Status: flow.StepCompleted},
			{Step: "draft", Output: "a thin draft", Status: flow.StepFailed,
				FailureReason: "Manager rejected step 'draft': too thin"},
		},
		FailureReason: "Manager rejected step 'draft': too thin",
	}

	record, err := r.Record(context.Background(), "editorial", started, result)
	require.NoError(t, err)
	require.NotEmpty(t, record.ID)

	got, err := r.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "editorial", got.Workflow)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "partial", got.Output)
	assert.Equal(t, result.FailureReason, got.FailureReason)

	require.Len(t, got.Steps, 2)
	assert.Equal(t, "outline", got.Steps[0].Step)
	assert.Equal(t, 0, got.Steps[0].Position)
	assert.Equal(t, "draft", got.Steps[1].Step)
	assert.Equal(t, "failed", got.Steps[1].Status)
}

func TestRecorderRecent(t *testing.T) {
	r := newTestRecorder(t)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		result := &flow.RunResult{
			Success: true,
			Output:  "run output",
			Status:  flow.StatusCompleted,
			Results: []flow.StepResult{{Step: "only", Output: "o", Status: flow.StepCompleted}},
		}
		_, err := r.Record(context.Background(), "pipeline", base.Add(time.Duration(i)*time.Minute), result)
		require.NoError(t, err)
	}
	_, err := r.Record(context.Background(), "other", base, &flow.RunResult{Status: flow.StatusCompleted})
	require.NoError(t, err)

	records, err := r.Recent(context.Background(), "pipeline", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.True(t, records[0].StartedAt.After(records[1].StartedAt))
	require.Len(t, records[0].Steps, 1, "steps are preloaded")

	all, err := r.Recent(context.Background(), "pipeline", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "non-positive limit falls back to the default")
}
