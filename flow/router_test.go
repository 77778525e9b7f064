package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowsmith-ai/flowsmith/types"
)

func newTestRouter(strict bool, tasks ...*Task) *router {
	return newRouter(tasks, strict, zap.NewNop())
}

func TestRouterDecisionRouting(t *testing.T) {
	decide := NewTask("decide", "").
		WithType(TaskTypeDecision).
		WithCondition(map[string][]string{
			"approved": {"publish"},
			"rejected": {"revise", "notify"},
		})
	r := newTestRouter(false, decide, NewTask("publish", ""), NewTask("revise", ""), NewTask("notify", ""))

	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{"exact key", "approved", []string{"publish"}},
		{"case-insensitive key", "APPROVED", []string{"publish"}},
		{"whitespace around key", "  Rejected\n", []string{"revise", "notify"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := r.next(decide, tt.output, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestRouterUnmatchedKeyEndsBranch(t *testing.T) {
	decide := NewTask("decide", "").
		WithType(TaskTypeDecision).
		WithCondition(map[string][]string{"approved": {"publish"}})
	r := newTestRouter(false, decide, NewTask("publish", ""))

	next, err := r.next(decide, "maybe", true)
	require.NoError(t, err)
	assert.Empty(t, next, "unmatched decision key ends the branch silently")
}

func TestRouterStrictDeadEnd(t *testing.T) {
	decide := NewTask("decide", "").
		WithType(TaskTypeDecision).
		WithCondition(map[string][]string{"approved": {"publish"}})
	r := newTestRouter(true, decide, NewTask("publish", ""))

	_, err := r.next(decide, "maybe", true)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrRoutingDeadEnd))
}

func TestRouterLoopBack(t *testing.T) {
	loop := NewTask("loop", "").
		WithType(TaskTypeLoop).
		WithCondition(map[string][]string{
			"continue": {"loop"},
			"done":     {"report"},
		})
	r := newTestRouter(false, loop, NewTask("report", ""))

	next, err := r.next(loop, "continue", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"loop"}, next, "a loop may route back to itself")
}

func TestRouterNextTasksAndFanOut(t *testing.T) {
	fan := NewTask("fan", "").WithNext("a", "b")
	r := newTestRouter(false, fan, NewTask("a", ""), NewTask("b", ""))

	next, err := r.next(fan, "anything", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, next)
}

func TestRouterSequentialAdvance(t *testing.T) {
	first := NewTask("first", "")
	second := NewTask("second", "")
	r := newTestRouter(false, first, second)

	next, err := r.next(first, "out", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, next)

	// The last task has nowhere to advance to.
	next, err = r.next(second, "out", true)
	require.NoError(t, err)
	assert.Empty(t, next)

	// Graph mode never advances implicitly.
	next, err = r.next(first, "out", false)
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestRouterStart(t *testing.T) {
	a := NewTask("a", "")
	b := NewTask("b", "").AsStart()
	r := newTestRouter(false, a, b)
	assert.Equal(t, "b", r.start([]*Task{a, b}))

	r2 := newTestRouter(false, a)
	assert.Equal(t, "a", r2.start([]*Task{a}), "falls back to first declared")
}
