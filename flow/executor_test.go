package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowsmith-ai/flowsmith/types"
)

type scriptedAgent struct {
	calls   int
	failFor int
	reply   string
}

func (a *scriptedAgent) Chat(ctx context.Context, prompt string) (string, error) {
	a.calls++
	if a.calls <= a.failFor {
		return "", errors.New("transient failure")
	}
	return a.reply, nil
}

func TestExecutorResolvePrecedence(t *testing.T) {
	stepAgent := &scriptedAgent{reply: "from step config"}
	defaultAgent := &scriptedAgent{reply: "from default config"}
	fallback := &scriptedAgent{reply: "from default agent"}

	e := newStepExecutor("wf", zap.NewNop())
	e.factory = func(cfg *AgentConfig, model string) (ChatAgent, error) {
		if cfg.Role == "step" {
			return stepAgent, nil
		}
		return defaultAgent, nil
	}
	e.defaultConfig = &AgentConfig{Role: "default"}
	e.defaultAgent = fallback
	e.handler = func(ctx context.Context, call *Call) (string, error) {
		return "from handler", nil
	}

	run := func(task *Task) string {
		out, err := e.execute(context.Background(), task, &Call{Task: task.Name, Action: task.Action})
		require.NoError(t, err)
		return out
	}

	// Step-level config wins over everything.
	withAgent := NewTask("a", "x").WithAgent(&AgentConfig{Role: "step"})
	assert.Equal(t, "from step config", run(withAgent))

	// Then the workflow default config.
	assert.Equal(t, "from default config", run(NewTask("b", "x")))

	// Then the pre-built default agent.
	e.defaultConfig = nil
	assert.Equal(t, "from default agent", run(NewTask("c", "x")))

	// Then the raw handler.
	e.defaultAgent = nil
	assert.Equal(t, "from handler", run(NewTask("d", "x")))

	// Nothing configured at all is a configuration error.
	e.handler = nil
	e.factory = nil
	_, err := e.execute(context.Background(), NewTask("e", "x"), &Call{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfiguration))
}

func TestExecutorModelFallback(t *testing.T) {
	var gotModel string
	e := newStepExecutor("wf", zap.NewNop())
	e.defaultModel = "workflow-default"
	e.factory = func(cfg *AgentConfig, model string) (ChatAgent, error) {
		gotModel = model
		return &scriptedAgent{reply: "ok"}, nil
	}

	task := NewTask("a", "x").WithAgent(&AgentConfig{Role: "r"})
	_, err := e.execute(context.Background(), task, &Call{})
	require.NoError(t, err)
	assert.Equal(t, "workflow-default", gotModel)

	task = NewTask("b", "x").WithAgent(&AgentConfig{Role: "r", LLM: "step-model"})
	_, err = e.execute(context.Background(), task, &Call{})
	require.NoError(t, err)
	assert.Equal(t, "step-model", gotModel)
}

func TestExecutorRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    ExecutionPolicy
		failFor   int
		wantCalls int
		wantErr   bool
	}{
		{"retry recovers", ExecutionPolicy{MaxRetries: 3, OnError: OnErrorRetry}, 2, 3, false},
		{"retry exhausted", ExecutionPolicy{MaxRetries: 2, OnError: OnErrorRetry}, 10, 3, true},
		{"stop never retries", ExecutionPolicy{MaxRetries: 3, OnError: OnErrorStop}, 1, 1, true},
		{"continue never retries", ExecutionPolicy{MaxRetries: 3, OnError: OnErrorContinue}, 1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &scriptedAgent{failFor: tt.failFor, reply: "done"}
			e := newStepExecutor("wf", zap.NewNop())
			e.defaultAgent = agent
			e.retryDelay = time.Millisecond

			task := NewTask("step", "x").WithExecution(tt.policy)
			out, err := e.execute(context.Background(), task, &Call{Task: "step", Action: "x"})

			assert.Equal(t, tt.wantCalls, agent.calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, types.IsCode(err, types.ErrStepExecution))
			} else {
				require.NoError(t, err)
				assert.Equal(t, "done", out)
			}
		})
	}
}

func TestExecutorFactoryError(t *testing.T) {
	e := newStepExecutor("wf", zap.NewNop())
	e.factory = func(cfg *AgentConfig, model string) (ChatAgent, error) {
		return nil, errors.New("no provider")
	}
	task := NewTask("a", "x").WithAgent(&AgentConfig{Role: "r"})

	_, err := e.execute(context.Background(), task, &Call{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfiguration))
}
