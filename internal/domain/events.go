package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies an orchestration lifecycle event.
type EventType string

const (
	EventOrderReceived    EventType = "ORDER_RECEIVED"
	EventOrderDecomposed  EventType = "ORDER_DECOMPOSED"
	EventTaskStateChanged EventType = "TASK_STATE_CHANGED"
	EventOrderCompleted   EventType = "ORDER_COMPLETED"
	EventOrderFailed      EventType = "ORDER_FAILED"
	EventOrderCancelled   EventType = "ORDER_CANCELLED"
)

// EventTopic is the topic orchestration events are published on.
const EventTopic = "order.events"

// Event is an observable orchestration fact. Events are published
// at-least-once; the ID field lets downstream consumers deduplicate.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	OrderID   uuid.UUID              `json:"order_id"`
	TaskID    *uuid.UUID             `json:"task_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event with a fresh id and the current timestamp.
func NewEvent(typ EventType, orderID uuid.UUID, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      typ,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NewTaskEvent creates a TaskStateChanged event carrying the transition.
func NewTaskEvent(orderID, taskID uuid.UUID, from, to TaskState) Event {
	ev := NewEvent(EventTaskStateChanged, orderID, map[string]interface{}{
		"old_state": string(from),
		"new_state": string(to),
	})
	ev.TaskID = &taskID
	return ev
}
