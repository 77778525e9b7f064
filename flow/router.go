package flow

import (
	"strings"

	"go.uber.org/zap"

	"github.com/flowsmith-ai/flowsmith/types"
)

// router computes the next step(s) after a completed task. It never mutates
// the tasks it routes over; declaration order is captured once at workflow
// construction.
type router struct {
	index  map[string]int
	order  []string
	strict bool
	logger *zap.Logger
}

func newRouter(tasks []*Task, strict bool, logger *zap.Logger) *router {
	r := &router{
		index:  make(map[string]int, len(tasks)),
		order:  make([]string, 0, len(tasks)),
		strict: strict,
		logger: logger.With(zap.String("component", "router")),
	}
	for i, t := range tasks {
		r.index[t.Name] = i
		r.order = append(r.order, t.Name)
	}
	return r
}

// next returns the names of the step(s) to run after t produced output.
//
// Decision and loop tasks treat the output as a routing key, matched
// case-insensitively against the task's condition table. An unmatched key
// ends the branch silently; this mirrors the engine's documented early-exit
// behavior. With strict routing enabled it returns ROUTING_DEAD_END instead.
//
// Non-routing tasks follow NextTasks when declared. In sequential mode a task
// without explicit edges advances to the next task in declaration order; in
// graph mode the run terminates at that node.
//
// A condition target may name the current or an earlier task, producing a
// cycle. The router imposes no iteration cap: loops terminate through tool
// logic reading and writing workflow state.
func (r *router) next(t *Task, output string, sequential bool) ([]string, error) {
	if t.routable() && len(t.Condition) > 0 {
		key := strings.ToLower(strings.TrimSpace(output))
		for candidate, targets := range t.Condition {
			if strings.ToLower(candidate) == key {
				return targets, nil
			}
		}
		if r.strict {
			return nil, types.Errorf(types.ErrRoutingDeadEnd,
				"no route for decision key %q", strings.TrimSpace(output)).WithStep(t.Name)
		}
		r.logger.Debug("no route for decision key, branch ends",
			zap.String("step", t.Name),
			zap.String("key", key),
		)
		return nil, nil
	}

	if len(t.NextTasks) > 0 {
		return t.NextTasks, nil
	}

	if sequential {
		if i, ok := r.index[t.Name]; ok && i+1 < len(r.order) {
			return []string{r.order[i+1]}, nil
		}
	}
	return nil, nil
}

// start returns the entry step name: the first task marked IsStart, falling
// back to the first declared task.
func (r *router) start(tasks []*Task) string {
	for _, t := range tasks {
		if t.IsStart {
			return t.Name
		}
	}
	if len(r.order) > 0 {
		return r.order[0]
	}
	return ""
}
