// Package decompose turns one customer order into its derived service and
// resource order specs plus the initial fulfillment task graph.
//
// Decomposition is a pure, total function: it never fails, and an order with
// zero line items yields an empty task set. Each resource task is gated on
// the service task it realizes; resource expansion is pluggable through
// ResourcePlanner so a specification catalog can emit zero or many resource
// orders per service order.
package decompose
