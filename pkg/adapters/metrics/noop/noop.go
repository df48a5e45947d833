// Package noop provides a metrics collector that discards everything. It is
// used in tests and when metrics are disabled.
package noop

import "time"

// Collector implements MetricsCollector with no-op methods.
type Collector struct{}

// NewCollector creates a no-op metrics collector.
func NewCollector() *Collector { return &Collector{} }

func (*Collector) RecordOrderReceived() {}

func (*Collector) RecordOrderCompleted(string, time.Duration) {}

func (*Collector) RecordTaskExecuted(string, string, time.Duration) {}

func (*Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {}

func (*Collector) SetActiveOrders(int) {}
