// Package domain holds the core fulfillment model: orders, derived order
// specs, fulfillment tasks with their state machine, the per-order
// FulfillmentContext aggregate, the task dependency graph and the
// orchestration event types.
//
// Everything in this package is plain data plus pure state logic. I/O
// (persistence, event transport, downstream dispatch) lives behind the
// interfaces in internal/ports.
package domain
