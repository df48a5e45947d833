package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderState is the order-level lifecycle state.
type OrderState string

const (
	OrderReceived           OrderState = "ORDER_RECEIVED"
	OrderDecomposing        OrderState = "DECOMPOSING"
	OrderValidating         OrderState = "VALIDATING"
	OrderCheckingDeps       OrderState = "CHECKING_DEPENDENCIES"
	OrderWaitingForDeps     OrderState = "WAITING_FOR_DEPENDENCIES"
	OrderReadyForActivation OrderState = "READY_FOR_ACTIVATION"
	OrderActivating         OrderState = "ACTIVATING"
	OrderActivated          OrderState = "ACTIVATED"
	OrderInventoryCreated   OrderState = "INVENTORY_CREATED"
	OrderCompleted          OrderState = "COMPLETED"
	OrderFailed             OrderState = "FAILED"
	OrderCancelled          OrderState = "CANCELLED"
)

// Terminal reports whether no further transition is permitted from s.
func (s OrderState) Terminal() bool {
	return s == OrderCompleted || s == OrderFailed || s == OrderCancelled
}

// orderRank orders the forward sequence. WaitingForDependencies and
// ReadyForActivation share the oscillation documented below.
var orderRank = map[OrderState]int{
	OrderReceived:           0,
	OrderDecomposing:        1,
	OrderValidating:         2,
	OrderCheckingDeps:       3,
	OrderWaitingForDeps:     4,
	OrderReadyForActivation: 5,
	OrderActivating:         6,
	OrderActivated:          7,
	OrderInventoryCreated:   8,
	OrderCompleted:          9,
}

// CanTransition reports whether from → to is a legal order transition.
// Forward moves may skip intermediate states (an empty order jumps straight
// to Completed). Failed and Cancelled are reachable from any non-terminal
// state. The single sanctioned regression is ReadyForActivation back to
// WaitingForDependencies, for dependencies that stop being satisfiable.
func (s OrderState) CanTransition(to OrderState) bool {
	if s.Terminal() {
		return false
	}
	if to == OrderFailed || to == OrderCancelled {
		return true
	}
	if s == OrderReadyForActivation && to == OrderWaitingForDeps {
		return true
	}
	fromRank, ok := orderRank[s]
	if !ok {
		return false
	}
	toRank, ok := orderRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// UnresolvedDependency records a dependency id that does not resolve to any
// task in the context. The readiness query never treats such a reference as
// satisfied; it reports it and leaves the policy to the caller.
type UnresolvedDependency struct {
	TaskID       uuid.UUID `json:"task_id"`
	DependencyID uuid.UUID `json:"dependency_id"`
}

// FulfillmentContext is the per-order aggregate: overall lifecycle state
// plus the task list. It owns all task state mutation. Contexts are archived
// on reaching a terminal state, never physically removed.
//
// The context is not safe for concurrent mutation; the orchestrator holds a
// per-order lock around every read-modify-write.
type FulfillmentContext struct {
	OrderID        uuid.UUID           `json:"order_id"`
	State          OrderState          `json:"state"`
	Tasks          []*FulfillmentTask  `json:"tasks"`
	ServiceOrders  []ServiceOrderSpec  `json:"service_orders,omitempty"`
	ResourceOrders []ResourceOrderSpec `json:"resource_orders,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// NewFulfillmentContext creates a context in the OrderReceived state.
func NewFulfillmentContext(orderID uuid.UUID) *FulfillmentContext {
	now := time.Now().UTC()
	return &FulfillmentContext{
		OrderID:   orderID,
		State:     OrderReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddTask appends a task to the context.
func (fc *FulfillmentContext) AddTask(task *FulfillmentTask) {
	fc.Tasks = append(fc.Tasks, task)
	fc.UpdatedAt = time.Now().UTC()
}

// Task returns the task with the given id.
func (fc *FulfillmentContext) Task(taskID uuid.UUID) (*FulfillmentTask, error) {
	for _, t := range fc.Tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
}

// TaskOfKind returns the first task of the given kind, or nil.
func (fc *FulfillmentContext) TaskOfKind(kind TaskKind) *FulfillmentTask {
	for _, t := range fc.Tasks {
		if t.Kind == kind {
			return t
		}
	}
	return nil
}

// UpdateTaskState transitions a task through its state machine and bumps the
// context timestamp. Illegal transitions are rejected; re-applying the
// current state is an idempotent no-op.
func (fc *FulfillmentContext) UpdateTaskState(taskID uuid.UUID, to TaskState) error {
	task, err := fc.Task(taskID)
	if err != nil {
		return err
	}
	if task.State == to {
		return nil
	}
	if err := task.SetState(to); err != nil {
		return err
	}
	fc.UpdatedAt = time.Now().UTC()
	return nil
}

// SetState transitions the order-level state. Re-applying the current state
// is a no-op.
func (fc *FulfillmentContext) SetState(to OrderState) error {
	if fc.State == to {
		return nil
	}
	if !fc.State.CanTransition(to) {
		return fmt.Errorf("order %s: %s -> %s: %w", fc.OrderID, fc.State, to, ErrInvalidTransition)
	}
	now := time.Now().UTC()
	fc.State = to
	fc.UpdatedAt = now
	if to.Terminal() {
		fc.CompletedAt = &now
	}
	return nil
}

// Fail moves the order to Failed with an error message.
func (fc *FulfillmentContext) Fail(msg string) error {
	fc.Error = msg
	return fc.SetState(OrderFailed)
}

// CompletedTaskIDs returns the set of task ids in the Completed state.
func (fc *FulfillmentContext) CompletedTaskIDs() map[uuid.UUID]struct{} {
	done := make(map[uuid.UUID]struct{})
	for _, t := range fc.Tasks {
		if t.State == TaskCompleted {
			done[t.ID] = struct{}{}
		}
	}
	return done
}

// ReadyTasks returns the tasks eligible to execute: tasks in an in-flight
// state (Acknowledged or InProgress) whose every dependency is Completed.
// A dependency id that resolves to no task in the context is never treated
// as satisfied; such references are returned separately so the caller can
// decide policy.
func (fc *FulfillmentContext) ReadyTasks() (ready []*FulfillmentTask, unresolved []UnresolvedDependency) {
	ids := make(map[uuid.UUID]struct{}, len(fc.Tasks))
	for _, t := range fc.Tasks {
		ids[t.ID] = struct{}{}
	}
	done := fc.CompletedTaskIDs()

	for _, t := range fc.Tasks {
		if t.State.Terminal() {
			continue
		}
		eligible := true
		for _, dep := range t.Dependencies {
			if _, known := ids[dep]; !known {
				unresolved = append(unresolved, UnresolvedDependency{TaskID: t.ID, DependencyID: dep})
				eligible = false
				continue
			}
			if _, completed := done[dep]; !completed {
				eligible = false
			}
		}
		if eligible {
			ready = append(ready, t)
		}
	}
	return ready, unresolved
}

// Settled reports whether every task has reached a terminal state.
func (fc *FulfillmentContext) Settled() bool {
	for _, t := range fc.Tasks {
		if !t.State.Terminal() {
			return false
		}
	}
	return true
}

// AnyTaskFailed reports whether any task is Failed or Cancelled.
func (fc *FulfillmentContext) AnyTaskFailed() bool {
	for _, t := range fc.Tasks {
		if t.State == TaskFailed || t.State == TaskCancelled {
			return true
		}
	}
	return false
}
