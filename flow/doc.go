// Package flow is the Flowsmith workflow orchestration engine: a declarative
// graph of named tasks driven across sequential, graph, and hierarchical
// process modes, threading shared state and accumulated step outputs between
// steps.
//
// A minimal workflow wires tasks to a handler:
//
//	check := flow.NewTask("check_budget", "Compare {{spent}} against {{budget}}").
//	    WithType(flow.TaskTypeDecision).
//	    WithCondition(map[string][]string{
//	        "over_budget":  {"reduce_costs"},
//	        "under_budget": {"expand"},
//	    })
//
//	wf, err := flow.New("budget", []*flow.Task{check, reduce, expand},
//	    flow.WithProcess(flow.ProcessGraph),
//	    flow.WithHandler(handler),
//	)
//	result, err := wf.Run(ctx)
//
// Decision and loop tasks interpret their output as a routing key looked up
// case-insensitively in the task's condition table; an unmatched key ends the
// branch silently unless strict routing is enabled. Cycles are legal and are
// terminated by tool logic via the shared state store, not by the engine.
//
// Executors resolve per step with fixed precedence: the step's inline agent
// config, the workflow default config, an externally supplied default agent,
// and finally a raw Handler. Agent-backed execution is bridged through the
// AgentFactory hook; see the agent package for a chat-completion
// implementation.
package flow
