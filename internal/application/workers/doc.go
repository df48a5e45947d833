// Package workers implements the worker pool that drives order fulfillment.
//
// The pool manages a fixed number of goroutines that:
//   - Drain a queue of order ids and ask the orchestrator to advance each one
//   - Re-enqueue every unfinished order on a cron schedule, which is how
//     orders waiting on external dependencies get retried and how in-flight
//     orders are recovered after a restart
//   - Report pool and active-order gauges to the metrics collector
//
// The health monitor tracks worker status and logs metrics.
package workers
