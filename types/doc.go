// Package types defines the shared error taxonomy for the Flowsmith engine.
//
// types is the lowest-level package in the module and depends on nothing
// internal. Every component reports failures through *Error values carrying a
// stable ErrorCode, so callers can branch on failure class without string
// matching:
//
//   - CONFIGURATION        — no resolvable executor, bad workflow options
//   - DEFINITION           — construction-time validation (duplicate step names,
//     edges pointing at undefined steps)
//   - ROUTING_DEAD_END     — a decision key matched no route (strict mode only)
//   - STEP_EXECUTION       — the executor call failed after retry policy ran out
//   - VALIDATION_REJECTED  — the hierarchical manager rejected a step's output
//   - STATE_TYPE           — a state operation hit a value of the wrong type
package types
