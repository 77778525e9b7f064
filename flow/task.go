package flow

// TaskType defines how a task's output is interpreted by the router.
type TaskType string

const (
	// TaskTypeNormal treats the output as free-form text.
	TaskTypeNormal TaskType = "normal"
	// TaskTypeDecision treats the output as a routing key.
	TaskTypeDecision TaskType = "decision"
	// TaskTypeLoop treats the output as a routing key and allows routing back
	// to the same or an earlier task.
	TaskTypeLoop TaskType = "loop"
)

// OnError defines the per-task failure policy applied by the runtime.
type OnError string

const (
	// OnErrorStop marks the step failed and halts the entire run.
	OnErrorStop OnError = "stop"
	// OnErrorContinue marks the step failed and routes onward as if the
	// output were empty.
	OnErrorContinue OnError = "continue"
	// OnErrorRetry re-invokes the executor up to MaxRetries times, then falls
	// back to stop behavior.
	OnErrorRetry OnError = "retry"
)

// ExecutionPolicy configures retry and failure handling for one task.
type ExecutionPolicy struct {
	MaxRetries int     `json:"max_retries" yaml:"max_retries"`
	OnError    OnError `json:"on_error" yaml:"on_error"`
	Async      bool    `json:"async_execution" yaml:"async_execution"`
}

// DefaultExecutionPolicy returns the policy applied when a task declares none.
func DefaultExecutionPolicy() ExecutionPolicy {
	return ExecutionPolicy{MaxRetries: 3, OnError: OnErrorStop}
}

// AgentConfig is an inline agent specification attached to a task or used as
// the workflow default. A nil AgentConfig on a task means "use the workflow
// default".
type AgentConfig struct {
	Role      string   `json:"role" yaml:"role"`
	Goal      string   `json:"goal,omitempty" yaml:"goal,omitempty"`
	Backstory string   `json:"backstory,omitempty" yaml:"backstory,omitempty"`
	LLM       string   `json:"llm,omitempty" yaml:"llm,omitempty"`
	Tools     []string `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// Task is a named unit of work within a workflow graph.
//
// Tasks are constructed once at configuration time and are not mutated by
// execution; all per-run state lives in the run's context accumulator and the
// workflow's state store.
type Task struct {
	// Name uniquely identifies the task within its workflow.
	Name string
	// Action is the instruction template handed to the executor. It may
	// contain {{var}} tokens resolved against the run context.
	Action string
	// ExpectedOutput describes what a correct output looks like. The
	// hierarchical manager judges step output against it.
	ExpectedOutput string
	// AgentConfig overrides the workflow default executor for this task.
	AgentConfig *AgentConfig
	// Tools lists tool identifiers passed through to the resolved agent.
	Tools []string
	// Type controls output interpretation (normal, decision, loop).
	Type TaskType
	// NextTasks lists tasks to run next when no condition applies.
	NextTasks []string
	// Condition maps a routing key to the tasks it routes to. Keys are
	// matched case-insensitively. Targets may point back at this or an
	// earlier task, forming a loop.
	Condition map[string][]string
	// ContextFrom restricts visible prior outputs to the named tasks.
	// Nil means visibility is governed by RetainFullContext.
	ContextFrom []string
	// RetainFullContext makes all prior outputs in the run visible. When
	// false and ContextFrom is empty, only previous_output is visible.
	RetainFullContext bool
	// OutputVariable additionally binds this task's output under a custom
	// variable name.
	OutputVariable string
	// Execution holds the retry/error policy.
	Execution ExecutionPolicy
	// IsStart marks a graph entry point. Defaults to the first declared task.
	IsStart bool
}

// NewTask creates a task with engine defaults: normal type, full context
// retention, and the default execution policy.
func NewTask(name, action string) *Task {
	return &Task{
		Name:              name,
		Action:            action,
		Type:              TaskTypeNormal,
		RetainFullContext: true,
		Execution:         DefaultExecutionPolicy(),
	}
}

// WithType sets the task type.
func (t *Task) WithType(tt TaskType) *Task {
	t.Type = tt
	return t
}

// WithAgent sets the inline agent configuration.
func (t *Task) WithAgent(cfg *AgentConfig) *Task {
	t.AgentConfig = cfg
	return t
}

// WithTools sets the tool identifiers passed to the resolved agent.
func (t *Task) WithTools(tools ...string) *Task {
	t.Tools = tools
	return t
}

// WithNext sets the tasks to run after this one.
func (t *Task) WithNext(names ...string) *Task {
	t.NextTasks = names
	return t
}

// WithCondition sets the routing table for a decision or loop task.
func (t *Task) WithCondition(routes map[string][]string) *Task {
	t.Condition = routes
	return t
}

// WithContextFrom restricts visible context to the named tasks' outputs.
func (t *Task) WithContextFrom(names ...string) *Task {
	t.ContextFrom = names
	return t
}

// WithRetainFullContext toggles full-context visibility.
func (t *Task) WithRetainFullContext(retain bool) *Task {
	t.RetainFullContext = retain
	return t
}

// WithOutputVariable binds the task output under an additional variable name.
func (t *Task) WithOutputVariable(name string) *Task {
	t.OutputVariable = name
	return t
}

// WithExecution sets the retry/error policy.
func (t *Task) WithExecution(p ExecutionPolicy) *Task {
	t.Execution = p
	return t
}

// WithExpectedOutput sets the expectation used by the hierarchical manager.
func (t *Task) WithExpectedOutput(expected string) *Task {
	t.ExpectedOutput = expected
	return t
}

// AsStart marks the task as a graph entry point.
func (t *Task) AsStart() *Task {
	t.IsStart = true
	return t
}

// routable reports whether the task's output is interpreted as a routing key.
func (t *Task) routable() bool {
	return t.Type == TaskTypeDecision || t.Type == TaskTypeLoop
}
