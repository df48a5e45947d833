// Package ports defines the interfaces the orchestration core requires from
// its collaborators: the context store, the event transport, downstream task
// executors and the metrics collector. Adapters live under pkg/adapters.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tmforge/fulfilld/internal/domain"
)

// ContextStore is the persistence contract for fulfillment contexts. The
// core treats it as a key-value store; no schema is mandated.
type ContextStore interface {
	// Get loads the context for an order. Returns an error wrapping
	// domain.ErrNotFound when absent.
	Get(ctx context.Context, orderID uuid.UUID) (*domain.FulfillmentContext, error)
	// Put persists a context, replacing any previous value.
	Put(ctx context.Context, fc *domain.FulfillmentContext) error
	// List returns the order ids of all stored contexts.
	List(ctx context.Context) ([]uuid.UUID, error)
}

// EventHandler consumes a published event.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes orchestration events to an external transport and lets
// in-process consumers subscribe. Delivery is at-least-once; consumers
// deduplicate on the event id.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// TaskExecutor executes one kind of fulfillment work against a downstream
// system. A dispatch error is classified as domain.ErrExternalService by the
// orchestrator unless the executor wraps a more specific sentinel.
type TaskExecutor interface {
	Execute(ctx context.Context, task *domain.FulfillmentTask, fc *domain.FulfillmentContext) error
}

// ExecutorRegistry maps every task kind to its executor. The kind set is
// closed; dispatch is an explicit table lookup.
type ExecutorRegistry interface {
	Executor(kind domain.TaskKind) (TaskExecutor, bool)
}

// MetricsCollector records orchestration metrics.
type MetricsCollector interface {
	RecordOrderReceived()
	RecordOrderCompleted(status string, duration time.Duration)
	RecordTaskExecuted(kind string, status string, duration time.Duration)
	RecordWorkerPoolStatus(idle, busy, stopped int)
	SetActiveOrders(count int)
}
