// Package orchestrator implements the fulfillment orchestration core.
//
// The orchestrator coordinates order fulfillment by:
//   - Decomposing incoming orders into service/resource specs and tasks
//   - Validating the task graph (unique ids, resolvable deps, no cycles)
//   - Driving the ready-task cascade until the order reaches a terminal state
//   - Dispatching task execution to downstream executors by task kind
//   - Publishing lifecycle events to the event bus
//   - Persisting every state change through the context store
//
// All mutation of one order's context is serialized behind a per-order lock,
// and readiness is always decided against the freshly loaded persisted
// context, so a task is never dispatched before its dependencies are
// observed Completed in the authoritative state.
package orchestrator
