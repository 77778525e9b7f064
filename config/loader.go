// Package config loads declarative workflow definitions from YAML documents
// and materializes them into flow.Workflow instances.
//
// Document shape:
//
//	name: content-pipeline
//	process: workflow
//	manager_llm: gpt-4o
//	agents:
//	  writer: {role: Writer, goal: Draft articles, llm: gpt-4o-mini}
//	steps:
//	  - name: draft
//	    agent: writer
//	    action: "Write an article about {{topic}}"
//	    next_tasks: [review]
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowsmith-ai/flowsmith/flow"
	"github.com/flowsmith-ai/flowsmith/types"
)

// AgentDefinition declares a reusable agent persona.
type AgentDefinition struct {
	Role      string   `yaml:"role"`
	Goal      string   `yaml:"goal,omitempty"`
	Backstory string   `yaml:"backstory,omitempty"`
	LLM       string   `yaml:"llm,omitempty"`
	Tools     []string `yaml:"tools,omitempty"`
}

// ExecutionDefinition mirrors flow.ExecutionPolicy in YAML.
type ExecutionDefinition struct {
	MaxRetries *int   `yaml:"max_retries,omitempty"`
	OnError    string `yaml:"on_error,omitempty"`
	Async      bool   `yaml:"async_execution,omitempty"`
}

// StepDefinition declares one workflow step.
type StepDefinition struct {
	Name              string               `yaml:"name,omitempty"`
	Agent             string               `yaml:"agent,omitempty"`
	Action            string               `yaml:"action"`
	ExpectedOutput    string               `yaml:"expected_output,omitempty"`
	TaskType          string               `yaml:"task_type,omitempty"`
	NextTasks         []string             `yaml:"next_tasks,omitempty"`
	Condition         map[string][]string  `yaml:"condition,omitempty"`
	ContextFrom       []string             `yaml:"context_from,omitempty"`
	RetainFullContext *bool                `yaml:"retain_full_context,omitempty"`
	OutputVariable    string               `yaml:"output_variable,omitempty"`
	IsStart           bool                 `yaml:"is_start,omitempty"`
	Execution         *ExecutionDefinition `yaml:"execution,omitempty"`
}

// Definition is a full workflow document.
type Definition struct {
	Name       string                     `yaml:"name"`
	Process    string                     `yaml:"process,omitempty"`
	ManagerLLM string                     `yaml:"manager_llm,omitempty"`
	DefaultLLM string                     `yaml:"default_llm,omitempty"`
	Context    *bool                      `yaml:"context,omitempty"`
	Agents     map[string]AgentDefinition `yaml:"agents,omitempty"`
	Steps      []StepDefinition           `yaml:"steps"`
}

// Parse decodes a YAML workflow document.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, types.NewError(types.ErrDefinition, "invalid workflow document").WithCause(err)
	}
	if def.Name == "" {
		return nil, types.NewError(types.ErrDefinition, "workflow document missing name")
	}
	if len(def.Steps) == 0 {
		return nil, types.NewError(types.ErrDefinition, "workflow document has no steps")
	}
	return &def, nil
}

// LoadFile reads and decodes a YAML workflow document from disk.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow document: %w", err)
	}
	return Parse(data)
}

// Workflow materializes the definition. Steps referencing an agent id pick up
// that agent's persona as their inline config; extra options (agent factory,
// handler, logger) pass through to flow.New.
func (d *Definition) Workflow(opts ...flow.Option) (*flow.Workflow, error) {
	tasks := make([]*flow.Task, 0, len(d.Steps))
	for i, step := range d.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step_%d", i+1)
		}

		t := flow.NewTask(name, step.Action)
		t.ExpectedOutput = step.ExpectedOutput
		if step.TaskType != "" {
			t.Type = flow.TaskType(step.TaskType)
		}
		t.NextTasks = step.NextTasks
		t.Condition = step.Condition
		t.ContextFrom = step.ContextFrom
		if step.RetainFullContext != nil {
			t.RetainFullContext = *step.RetainFullContext
		}
		t.OutputVariable = step.OutputVariable
		t.IsStart = step.IsStart
		if step.Execution != nil {
			if step.Execution.MaxRetries != nil {
				t.Execution.MaxRetries = *step.Execution.MaxRetries
			}
			if step.Execution.OnError != "" {
				t.Execution.OnError = flow.OnError(step.Execution.OnError)
			}
			t.Execution.Async = step.Execution.Async
		}

		if step.Agent != "" {
			agentDef, ok := d.Agents[step.Agent]
			if !ok {
				return nil, types.Errorf(types.ErrDefinition,
					"step %q references undefined agent %q", name, step.Agent)
			}
			t.AgentConfig = &flow.AgentConfig{
				Role:      agentDef.Role,
				Goal:      agentDef.Goal,
				Backstory: agentDef.Backstory,
				LLM:       agentDef.LLM,
				Tools:     agentDef.Tools,
			}
		}
		tasks = append(tasks, t)
	}

	all := make([]flow.Option, 0, len(opts)+4)
	if d.Process != "" {
		all = append(all, flow.WithProcess(flow.Process(d.Process)))
	}
	if d.ManagerLLM != "" {
		all = append(all, flow.WithManagerModel(d.ManagerLLM))
	}
	if d.DefaultLLM != "" {
		all = append(all, flow.WithDefaultModel(d.DefaultLLM))
	}
	if d.Context != nil {
		all = append(all, flow.WithContextPassing(*d.Context))
	}
	all = append(all, opts...)

	return flow.New(d.Name, tasks, all...)
}
