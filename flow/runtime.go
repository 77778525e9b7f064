package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/flowsmith-ai/flowsmith/internal/metrics"
	"github.com/flowsmith-ai/flowsmith/types"
)

// Process selects the workflow execution mode.
type Process string

const (
	// ProcessSequential traverses the declared task list in order; decision
	// conditions may still redirect within it.
	ProcessSequential Process = "sequential"
	// ProcessGraph traverses next/condition edges freely from a start node,
	// with branching, merging, and loops.
	ProcessGraph Process = "workflow"
	// ProcessHierarchical adds a manager-validation gate after every step.
	ProcessHierarchical Process = "hierarchical"
)

// RunStatus is the run-level state machine.
type RunStatus string

const (
	StatusNotStarted RunStatus = "not_started"
	StatusRunning    RunStatus = "running"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// StepStatus is a step's final status within a run.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepResult records one executed step.
type StepResult struct {
	Step          string     `json:"step"`
	Output        string     `json:"output"`
	Status        StepStatus `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// RunResult is the contract returned by Run and Start.
type RunResult struct {
	Success       bool           `json:"success"`
	Output        string         `json:"output"`
	Results       []StepResult   `json:"results"`
	Variables     map[string]any `json:"variables"`
	Status        RunStatus      `json:"status"`
	FailureReason string         `json:"failure_reason,omitempty"`
}

// Workflow drives a declarative graph of named tasks across sequential,
// graph, and hierarchical process modes. The workflow shape is immutable
// after construction; only its State and the per-run context accumulator
// mutate during execution. State persists across repeated Run/Start calls
// until ClearState.
type Workflow struct {
	name           string
	tasks          []*Task
	byName         map[string]*Task
	process        Process
	contextEnabled bool
	strict         bool
	state          State
	exec           *stepExecutor
	validator      Validator
	managerModel   string
	router         *router
	logger         *zap.Logger

	mu     sync.Mutex
	status RunStatus
}

// Option configures a Workflow at construction.
type Option func(*Workflow)

// WithProcess selects the execution mode (default sequential).
func WithProcess(p Process) Option {
	return func(w *Workflow) { w.process = p }
}

// WithDefaultAgentConfig sets the agent configuration used by tasks that
// declare none.
func WithDefaultAgentConfig(cfg *AgentConfig) Option {
	return func(w *Workflow) { w.exec.defaultConfig = cfg }
}

// WithDefaultModel sets the model used when an agent config names no LLM.
func WithDefaultModel(model string) Option {
	return func(w *Workflow) { w.exec.defaultModel = model }
}

// WithManagerModel sets the model backing the hierarchical manager.
func WithManagerModel(model string) Option {
	return func(w *Workflow) { w.managerModel = model }
}

// WithAgentFactory installs the hook that turns agent configurations into
// ChatAgent collaborators.
func WithAgentFactory(f AgentFactory) Option {
	return func(w *Workflow) { w.exec.factory = f }
}

// WithDefaultAgent supplies a ready agent instance used when neither step nor
// workflow declares an agent configuration.
func WithDefaultAgent(a ChatAgent) Option {
	return func(w *Workflow) { w.exec.defaultAgent = a }
}

// WithHandler supplies a raw executor callable, the last link in the
// resolution chain.
func WithHandler(h Handler) Option {
	return func(w *Workflow) { w.exec.handler = h }
}

// WithValidator replaces the manager validator used in hierarchical mode.
func WithValidator(v Validator) Option {
	return func(w *Workflow) { w.validator = v }
}

// WithManager installs a manager agent for hierarchical validation.
func WithManager(manager ChatAgent) Option {
	return func(w *Workflow) { w.validator = newManagerValidator(manager, w.logger) }
}

// WithContextPassing toggles the master context switch (default on).
func WithContextPassing(enabled bool) Option {
	return func(w *Workflow) { w.contextEnabled = enabled }
}

// WithState replaces the default in-memory state store, e.g. with RedisState.
func WithState(s State) Option {
	return func(w *Workflow) { w.state = s }
}

// WithStrictRouting makes an unmatched decision key fail the run instead of
// silently ending the branch.
func WithStrictRouting(strict bool) Option {
	return func(w *Workflow) { w.strict = strict }
}

// WithRetryDelay configures the delay between retry attempts, doubling per
// attempt when exponential is true.
func WithRetryDelay(d time.Duration, exponential bool) Option {
	return func(w *Workflow) {
		w.exec.retryDelay = d
		w.exec.exponential = exponential
	}
}

// WithRateLimiter throttles executor calls across the whole workflow.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(w *Workflow) { w.exec.limiter = l }
}

// WithLogger sets the workflow logger (default noop).
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
		w.exec.logger = logger.With(zap.String("component", "step_executor"))
	}
}

// New constructs a workflow over the given tasks. Structural problems —
// duplicate or empty task names, edges pointing at undefined tasks — are
// rejected here, not at run time.
func New(name string, tasks []*Task, opts ...Option) (*Workflow, error) {
	w := &Workflow{
		name:           name,
		tasks:          tasks,
		byName:         make(map[string]*Task, len(tasks)),
		process:        ProcessSequential,
		contextEnabled: true,
		state:          NewMemoryState(),
		logger:         zap.NewNop(),
		status:         StatusNotStarted,
		exec:           newStepExecutor(name, zap.NewNop()),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("workflow", name))

	if err := w.validate(); err != nil {
		return nil, err
	}
	w.router = newRouter(tasks, w.strict, w.logger)
	return w, nil
}

func (w *Workflow) validate() error {
	if len(w.tasks) == 0 {
		return types.NewError(types.ErrDefinition, "workflow has no tasks")
	}
	for _, t := range w.tasks {
		if t.Name == "" {
			return types.NewError(types.ErrDefinition, "task with empty name")
		}
		if _, dup := w.byName[t.Name]; dup {
			return types.Errorf(types.ErrDefinition, "duplicate task name %q", t.Name)
		}
		w.byName[t.Name] = t
	}
	for _, t := range w.tasks {
		for _, target := range t.NextTasks {
			if _, ok := w.byName[target]; !ok {
				return types.Errorf(types.ErrDefinition,
					"task %q routes to undefined task %q", t.Name, target)
			}
		}
		for key, targets := range t.Condition {
			for _, target := range targets {
				if _, ok := w.byName[target]; !ok {
					return types.Errorf(types.ErrDefinition,
						"task %q condition %q routes to undefined task %q", t.Name, key, target)
				}
			}
		}
	}
	return nil
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Tasks returns the declared tasks in order.
func (w *Workflow) Tasks() []*Task { return w.tasks }

// State returns the workflow's shared state store.
func (w *Workflow) State() State { return w.state }

// ClearState empties the shared state store between independent invocations.
func (w *Workflow) ClearState() { w.state.Clear() }

// Status returns the status of the most recent run.
func (w *Workflow) Status() RunStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Workflow) setStatus(s RunStatus) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

// Run executes the workflow synchronously: steps run strictly one at a time
// in router-determined order, including forked branches. It returns an error
// only for structural misconfiguration (e.g. no resolvable executor, no
// manager in hierarchical mode); expected per-step failures are reported in
// the result.
func (w *Workflow) Run(ctx context.Context) (*RunResult, error) {
	return w.drive(ctx, false)
}

func (w *Workflow) drive(ctx context.Context, concurrent bool) (*RunResult, error) {
	if w.process == ProcessHierarchical && w.validator == nil {
		if w.exec.factory == nil {
			return nil, types.NewError(types.ErrConfiguration,
				"hierarchical process requires a manager: set WithManager, WithValidator, or WithAgentFactory")
		}
		manager, err := w.exec.factory(managerConfig(), w.managerModel)
		if err != nil {
			return nil, types.NewError(types.ErrConfiguration, "manager agent construction failed").WithCause(err)
		}
		w.validator = newManagerValidator(manager, w.logger)
	}

	started := time.Now()
	w.setStatus(StatusRunning)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r := &run{
		wf:         w,
		id:         uuid.NewString(),
		acc:        newContextAccumulator(),
		cancel:     cancel,
		concurrent: concurrent,
	}

	w.logger.Info("run started",
		zap.String("run_id", r.id),
		zap.String("process", string(w.process)),
		zap.Bool("concurrent", concurrent),
	)

	err := r.executeBranch(runCtx, w.router.start(w.tasks), "")
	if err != nil {
		w.setStatus(StatusFailed)
		return nil, err
	}

	result := r.finish()
	w.setStatus(result.Status)
	metrics.ObserveRun(w.name, string(result.Status), time.Since(started))
	w.logger.Info("run finished",
		zap.String("run_id", r.id),
		zap.String("status", string(result.Status)),
		zap.Int("steps", len(result.Results)),
		zap.Duration("duration", time.Since(started)),
	)
	return result, nil
}

// managerConfig is the agent configuration behind the default hierarchical
// manager.
func managerConfig() *AgentConfig {
	return &AgentConfig{
		Role: "Workflow Manager",
		Goal: "Review each step's output against its instruction and expected output, and accept or reject it.",
	}
}

// run carries the mutable execution state for one Run/Start invocation.
type run struct {
	wf         *Workflow
	id         string
	acc        *contextAccumulator
	cancel     context.CancelFunc
	concurrent bool

	mu         sync.Mutex
	results    []StepResult
	lastOutput string
	failure    string
	failed     bool
}

func (r *run) isFailed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// fail records the first run-level failure and cancels in-flight branches.
func (r *run) fail(reason string) {
	r.mu.Lock()
	already := r.failed
	if !already {
		r.failed = true
		r.failure = reason
	}
	r.mu.Unlock()
	if !already {
		r.cancel()
	}
}

func (r *run) recordResult(sr StepResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, sr)
	if sr.Status == StepCompleted {
		r.lastOutput = sr.Output
	}
}

// executeBranch runs one branch of the graph from the named step until the
// branch ends, the run fails, or the graph forks. Within the branch, each
// step's output is visible to its successor before the successor starts.
func (r *run) executeBranch(ctx context.Context, name string, previous string) error {
	w := r.wf
	sequential := w.process != ProcessGraph

	for name != "" && !r.isFailed() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		t, ok := w.byName[name]
		if !ok {
			// Unreachable after construction validation.
			return types.Errorf(types.ErrDefinition, "undefined task %q", name)
		}

		vars := r.acc.vars(t, w.state, w.contextEnabled, previous)
		action := substitute(t.Action, vars, true)
		call := &Call{
			Task:   t.Name,
			Action: action,
			Tools:  t.Tools,
			Vars:   vars,
			State:  w.state,
		}

		output, err := w.exec.execute(ctx, t, call)
		if err != nil {
			if types.IsCode(err, types.ErrConfiguration) {
				return err
			}
			reason := err.Error()
			r.recordResult(StepResult{Step: t.Name, Status: StepFailed, FailureReason: reason})
			if t.Execution.OnError == OnErrorContinue {
				// Route onward as if the output were empty.
				output = ""
			} else {
				r.fail(reason)
				return nil
			}
		} else {
			if w.process == ProcessHierarchical {
				accepted, reason, verr := w.validator.Validate(ctx, t, output)
				if verr != nil {
					reason = fmt.Sprintf("manager validation failed for step '%s': %v", t.Name, verr)
					r.recordResult(StepResult{Step: t.Name, Status: StepFailed, FailureReason: reason})
					r.fail(reason)
					return nil
				}
				if !accepted {
					metrics.ObserveRejection(w.name, t.Name)
					reason = fmt.Sprintf("Manager rejected step '%s': %s", t.Name, reason)
					r.recordResult(StepResult{Step: t.Name, Output: output, Status: StepFailed, FailureReason: reason})
					r.fail(reason)
					return nil
				}
			}
			r.recordResult(StepResult{Step: t.Name, Output: output, Status: StepCompleted})
			r.acc.record(t.Name, output, t.OutputVariable)
			previous = output
		}

		next, rerr := w.router.next(t, output, sequential)
		if rerr != nil {
			r.recordResult(StepResult{Step: t.Name, Status: StepFailed, FailureReason: rerr.Error()})
			r.fail(rerr.Error())
			return nil
		}
		switch len(next) {
		case 0:
			return nil
		case 1:
			name = next[0]
		default:
			return r.fork(ctx, next, previous)
		}
	}
	return nil
}

// finish assembles the result contract from the run's recorded state.
func (r *run) finish() *RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := StatusCompleted
	if r.failed {
		status = StatusFailed
	}
	return &RunResult{
		Success:       !r.failed,
		Output:        r.lastOutput,
		Results:       r.results,
		Variables:     r.wf.state.Snapshot(),
		Status:        status,
		FailureReason: r.failure,
	}
}
