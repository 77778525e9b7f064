package flow

import (
	"github.com/flowsmith-ai/flowsmith/types"
)

// ToMap serializes the task into a plain map suitable for JSON or YAML
// encoding. Zero-valued optional fields are omitted; RetainFullContext is
// always present because its default is true.
func (t *Task) ToMap() map[string]any {
	m := map[string]any{
		"name":                t.Name,
		"description":         t.Action,
		"task_type":           string(t.Type),
		"retain_full_context": t.RetainFullContext,
		"execution": map[string]any{
			"max_retries":     t.Execution.MaxRetries,
			"on_error":        string(t.Execution.OnError),
			"async_execution": t.Execution.Async,
		},
	}
	if t.ExpectedOutput != "" {
		m["expected_output"] = t.ExpectedOutput
	}
	if t.AgentConfig != nil {
		agent := map[string]any{"role": t.AgentConfig.Role}
		if t.AgentConfig.Goal != "" {
			agent["goal"] = t.AgentConfig.Goal
		}
		if t.AgentConfig.Backstory != "" {
			agent["backstory"] = t.AgentConfig.Backstory
		}
		if t.AgentConfig.LLM != "" {
			agent["llm"] = t.AgentConfig.LLM
		}
		if len(t.AgentConfig.Tools) > 0 {
			agent["tools"] = append([]string(nil), t.AgentConfig.Tools...)
		}
		m["agent_config"] = agent
	}
	if len(t.Tools) > 0 {
		m["tools"] = append([]string(nil), t.Tools...)
	}
	if len(t.NextTasks) > 0 {
		m["next_tasks"] = append([]string(nil), t.NextTasks...)
	}
	if len(t.Condition) > 0 {
		cond := make(map[string][]string, len(t.Condition))
		for k, v := range t.Condition {
			cond[k] = append([]string(nil), v...)
		}
		m["condition"] = cond
	}
	if t.ContextFrom != nil {
		m["context_from"] = append([]string(nil), t.ContextFrom...)
	}
	if t.OutputVariable != "" {
		m["output_variable"] = t.OutputVariable
	}
	if t.IsStart {
		m["is_start"] = true
	}
	return m
}

// TaskFromMap reconstructs a task from the shape produced by ToMap. Absent
// fields take their construction defaults, so a ToMap/TaskFromMap round trip
// is field-for-field lossless.
func TaskFromMap(m map[string]any) (*Task, error) {
	name, _ := m["name"].(string)
	if name == "" {
		return nil, types.NewError(types.ErrDefinition, "task map missing name")
	}
	action, _ := m["description"].(string)

	t := NewTask(name, action)
	if v, ok := m["expected_output"].(string); ok {
		t.ExpectedOutput = v
	}
	if v, ok := m["task_type"].(string); ok && v != "" {
		t.Type = TaskType(v)
	}
	if v, ok := m["retain_full_context"].(bool); ok {
		t.RetainFullContext = v
	}
	if v, ok := m["output_variable"].(string); ok {
		t.OutputVariable = v
	}
	if v, ok := m["is_start"].(bool); ok {
		t.IsStart = v
	}
	if v, ok := m["tools"]; ok {
		t.Tools = toStringSlice(v)
	}
	if v, ok := m["next_tasks"]; ok {
		t.NextTasks = toStringSlice(v)
	}
	if v, ok := m["context_from"]; ok {
		t.ContextFrom = toStringSlice(v)
		if t.ContextFrom == nil {
			t.ContextFrom = []string{}
		}
	}
	if v, ok := m["condition"]; ok {
		t.Condition = toRouteMap(v)
	}
	if v, ok := m["agent_config"]; ok {
		cfg, err := agentConfigFromMap(v)
		if err != nil {
			return nil, err
		}
		t.AgentConfig = cfg
	}
	if v, ok := m["execution"]; ok {
		p, err := executionFromMap(v)
		if err != nil {
			return nil, err
		}
		t.Execution = p
	}
	return t, nil
}

func agentConfigFromMap(v any) (*AgentConfig, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, types.NewError(types.ErrDefinition, "agent_config must be a map")
	}
	cfg := &AgentConfig{}
	cfg.Role, _ = m["role"].(string)
	cfg.Goal, _ = m["goal"].(string)
	cfg.Backstory, _ = m["backstory"].(string)
	cfg.LLM, _ = m["llm"].(string)
	if tools, ok := m["tools"]; ok {
		cfg.Tools = toStringSlice(tools)
	}
	return cfg, nil
}

func executionFromMap(v any) (ExecutionPolicy, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return ExecutionPolicy{}, types.NewError(types.ErrDefinition, "execution must be a map")
	}
	p := DefaultExecutionPolicy()
	if n, ok := toInt(m["max_retries"]); ok {
		p.MaxRetries = n
	}
	if s, ok := m["on_error"].(string); ok && s != "" {
		p.OnError = OnError(s)
	}
	if b, ok := m["async_execution"].(bool); ok {
		p.Async = b
	}
	return p, nil
}

// toStringSlice accepts []string directly or []any as produced by generic
// JSON/YAML decoding.
func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// toRouteMap normalizes condition values: a bare string target is wrapped
// into a single-element list.
func toRouteMap(v any) map[string][]string {
	out := make(map[string][]string)
	switch vv := v.(type) {
	case map[string][]string:
		for k, targets := range vv {
			out[k] = append([]string(nil), targets...)
		}
	case map[string]any:
		for k, raw := range vv {
			switch target := raw.(type) {
			case string:
				out[k] = []string{target}
			default:
				out[k] = toStringSlice(target)
			}
		}
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
