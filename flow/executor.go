package flow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/flowsmith-ai/flowsmith/internal/metrics"
	"github.com/flowsmith-ai/flowsmith/types"
)

// ChatAgent is the executor collaborator: anything that can turn a prompt
// into a reply. The engine is agnostic to how the collaborator reasons or
// calls tools.
type ChatAgent interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// AgentFactory builds a ChatAgent from an inline agent configuration. The
// model argument is the workflow default LLM, used when cfg declares none.
type AgentFactory func(cfg *AgentConfig, model string) (ChatAgent, error)

// Call carries everything a Handler needs for one step invocation. State is
// handed in explicitly so tool logic reaches shared memory without ambient
// globals.
type Call struct {
	// Task is the executing step's name.
	Task string
	// Action is the step's instruction after variable substitution.
	Action string
	// Tools lists the step's declared tool identifiers.
	Tools []string
	// Vars is the variable map the action was substituted from.
	Vars map[string]any
	// State is the workflow's shared state store.
	State State
}

// Handler is a raw executor callable supplied to a workflow instead of (or as
// a fallback behind) agent-backed execution.
type Handler func(ctx context.Context, call *Call) (string, error)

// executorKind tags the resolved executor variant.
type executorKind int

const (
	executorAgent executorKind = iota
	executorHandler
)

// resolvedExecutor is the tagged union produced by the resolution chain:
// either an agent collaborator or a raw handler, never both.
type resolvedExecutor struct {
	kind    executorKind
	agent   ChatAgent
	handler Handler
}

func (r *resolvedExecutor) invoke(ctx context.Context, call *Call) (string, error) {
	if r.kind == executorAgent {
		return r.agent.Chat(ctx, call.Action)
	}
	return r.handler(ctx, call)
}

// stepExecutor resolves an executor for each step and runs it under the
// step's retry policy.
type stepExecutor struct {
	workflow      string
	factory       AgentFactory
	defaultConfig *AgentConfig
	defaultModel  string
	defaultAgent  ChatAgent
	handler       Handler
	retryDelay    time.Duration
	exponential   bool
	limiter       *rate.Limiter
	tracer        trace.Tracer
	logger        *zap.Logger
}

func newStepExecutor(workflow string, logger *zap.Logger) *stepExecutor {
	return &stepExecutor{
		workflow:   workflow,
		retryDelay: time.Second,
		tracer:     otel.Tracer("github.com/flowsmith-ai/flowsmith/flow"),
		logger:     logger.With(zap.String("component", "step_executor")),
	}
}

// resolve walks the executor precedence chain for a task: step-level agent
// config, then the workflow default config, then an externally supplied
// default agent, then a raw handler.
func (e *stepExecutor) resolve(t *Task) (*resolvedExecutor, error) {
	if t.AgentConfig != nil && e.factory != nil {
		agent, err := e.factory(t.AgentConfig, e.modelFor(t.AgentConfig))
		if err != nil {
			return nil, types.NewError(types.ErrConfiguration, "agent factory failed").
				WithStep(t.Name).WithCause(err)
		}
		return &resolvedExecutor{kind: executorAgent, agent: agent}, nil
	}
	if e.defaultConfig != nil && e.factory != nil {
		agent, err := e.factory(e.defaultConfig, e.modelFor(e.defaultConfig))
		if err != nil {
			return nil, types.NewError(types.ErrConfiguration, "agent factory failed").
				WithStep(t.Name).WithCause(err)
		}
		return &resolvedExecutor{kind: executorAgent, agent: agent}, nil
	}
	if e.defaultAgent != nil {
		return &resolvedExecutor{kind: executorAgent, agent: e.defaultAgent}, nil
	}
	if e.handler != nil {
		return &resolvedExecutor{kind: executorHandler, handler: e.handler}, nil
	}
	return nil, types.NewError(types.ErrConfiguration, "no executor available").WithStep(t.Name)
}

func (e *stepExecutor) modelFor(cfg *AgentConfig) string {
	if cfg.LLM != "" {
		return cfg.LLM
	}
	return e.defaultModel
}

// execute runs one step invocation under its retry policy. With
// OnErrorRetry, failures are re-attempted up to MaxRetries times with the
// configured delay (doubling each attempt when exponential backoff is on);
// exhausting retries, or any failure under other policies, returns a
// STEP_EXECUTION error for the runtime to apply stop/continue semantics.
func (e *stepExecutor) execute(ctx context.Context, t *Task, call *Call) (string, error) {
	exec, err := e.resolve(t)
	if err != nil {
		return "", err
	}

	ctx, span := e.tracer.Start(ctx, "flow.step",
		trace.WithAttributes(
			attribute.String("workflow.name", e.workflow),
			attribute.String("step.name", t.Name),
			attribute.String("step.type", string(t.Type)),
		),
	)
	defer span.End()

	attempts := 1
	if t.Execution.OnError == OnErrorRetry && t.Execution.MaxRetries > 0 {
		attempts += t.Execution.MaxRetries
	}

	delay := e.retryDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := e.wait(ctx); err != nil {
			lastErr = err
			break
		}

		start := time.Now()
		output, invokeErr := exec.invoke(ctx, call)
		if invokeErr == nil {
			e.logger.Debug("step executed",
				zap.String("step", t.Name),
				zap.Int("attempt", attempt),
				zap.Duration("duration", time.Since(start)),
			)
			metrics.ObserveStep(e.workflow, t.Name, "completed")
			return output, nil
		}

		lastErr = invokeErr
		e.logger.Warn("step execution failed",
			zap.String("step", t.Name),
			zap.Int("attempt", attempt),
			zap.Error(invokeErr),
		)
		if attempt < attempts {
			metrics.ObserveRetry(e.workflow, t.Name)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = attempts
			}
			if e.exponential {
				delay *= 2
			}
		}
	}

	span.SetStatus(codes.Error, "step execution failed")
	span.RecordError(lastErr)
	metrics.ObserveStep(e.workflow, t.Name, "failed")
	return "", types.NewError(types.ErrStepExecution, "executor call failed").
		WithStep(t.Name).WithCause(lastErr)
}

// wait blocks on the optional rate limiter before an executor call.
func (e *stepExecutor) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}
