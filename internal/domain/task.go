package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskKind is the closed set of fulfillment work variants. Dispatch is by
// explicit registry lookup keyed on this value, never by open-ended
// reflection.
type TaskKind string

const (
	TaskServiceOrder      TaskKind = "SERVICE_ORDER"
	TaskResourceOrder     TaskKind = "RESOURCE_ORDER"
	TaskValidateOrder     TaskKind = "VALIDATE_ORDER"
	TaskCheckDependencies TaskKind = "CHECK_DEPENDENCIES"
	TaskCreateActivation  TaskKind = "CREATE_ACTIVATION"
	TaskExecuteActivation TaskKind = "EXECUTE_ACTIVATION"
	TaskCreateInventory   TaskKind = "CREATE_INVENTORY"
	TaskUpdateInventory   TaskKind = "UPDATE_INVENTORY"
)

// TaskState is the per-task lifecycle state. The state set is generic across
// task kinds; kind-specific steps are modeled as distinct kinds, not as a
// parallel state axis.
type TaskState string

const (
	TaskAcknowledged TaskState = "ACKNOWLEDGED"
	TaskInProgress   TaskState = "IN_PROGRESS"
	TaskCompleted    TaskState = "COMPLETED"
	TaskFailed       TaskState = "FAILED"
	TaskCancelled    TaskState = "CANCELLED"
)

// Terminal reports whether no further transition is permitted from s.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// taskRank orders the forward sequence. Failure and cancellation are legal
// from any non-terminal state and are handled separately.
var taskRank = map[TaskState]int{
	TaskAcknowledged: 0,
	TaskInProgress:   1,
	TaskCompleted:    2,
}

// CanTransition reports whether from → to is a legal task transition.
// Forward moves along Acknowledged → InProgress → Completed may skip
// intermediate states; regressions are illegal; Failed and Cancelled are
// reachable from any non-terminal state.
func (s TaskState) CanTransition(to TaskState) bool {
	if s.Terminal() {
		return false
	}
	if to == TaskFailed || to == TaskCancelled {
		return true
	}
	fromRank, ok := taskRank[s]
	if !ok {
		return false
	}
	toRank, ok := taskRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// FulfillmentTask is one unit of orchestrated work derived from an order.
// Tasks are never deleted; they only reach a terminal state.
type FulfillmentTask struct {
	ID           uuid.UUID   `json:"id"`
	OrderID      uuid.UUID   `json:"order_id"`
	Kind         TaskKind    `json:"kind"`
	TargetID     *uuid.UUID  `json:"target_id,omitempty"`
	State        TaskState   `json:"state"`
	Dependencies []uuid.UUID `json:"dependencies,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// NewTask creates a task in the Acknowledged state. TargetID references the
// derived spec the task realizes (service order, resource order, activation)
// and may be nil for lifecycle kinds.
func NewTask(orderID uuid.UUID, kind TaskKind, targetID *uuid.UUID, deps ...uuid.UUID) *FulfillmentTask {
	now := time.Now().UTC()
	return &FulfillmentTask{
		ID:           uuid.New(),
		OrderID:      orderID,
		Kind:         kind,
		TargetID:     targetID,
		State:        TaskAcknowledged,
		Dependencies: deps,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SetState applies a state transition. Re-applying the current state is an
// idempotent no-op, so a terminal transition delivered twice never changes
// the completion timestamp. Any other transition out of a terminal state, or
// a regression, is rejected.
func (t *FulfillmentTask) SetState(to TaskState) error {
	if t.State == to {
		return nil
	}
	if !t.State.CanTransition(to) {
		return fmt.Errorf("task %s: %s -> %s: %w", t.ID, t.State, to, ErrInvalidTransition)
	}
	now := time.Now().UTC()
	t.State = to
	t.UpdatedAt = now
	if to.Terminal() {
		t.CompletedAt = &now
	}
	return nil
}
