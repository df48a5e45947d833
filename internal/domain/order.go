package domain

import "github.com/google/uuid"

// ItemAction is the requested action for an order line item.
type ItemAction string

const (
	ActionAdd    ItemAction = "ADD"
	ActionModify ItemAction = "MODIFY"
	ActionDelete ItemAction = "DELETE"
)

// OrderItem is one line of a customer order.
type OrderItem struct {
	ID         uuid.UUID  `json:"id"`
	Action     ItemAction `json:"action"`
	OfferingID *uuid.UUID `json:"offering_id,omitempty"`
	Quantity   int        `json:"quantity"`
}

// Order is the external input: one customer purchase intent. The core never
// mutates it.
type Order struct {
	ID    uuid.UUID   `json:"id"`
	Items []OrderItem `json:"items"`
}

// ServiceOrderSpec is a derived service-tier order, one per line item.
// Created once by decomposition, immutable afterwards.
type ServiceOrderSpec struct {
	ID              uuid.UUID  `json:"id"`
	OrderItemID     uuid.UUID  `json:"order_item_id"`
	SpecificationID *uuid.UUID `json:"specification_id,omitempty"`
	Quantity        int        `json:"quantity"`
	Action          ItemAction `json:"action"`
}

// ResourceOrderSpec is a derived resource-tier order referencing the service
// spec it realizes. Created once by decomposition, immutable afterwards.
type ResourceOrderSpec struct {
	ID              uuid.UUID  `json:"id"`
	ServiceOrderID  uuid.UUID  `json:"service_order_id"`
	SpecificationID *uuid.UUID `json:"specification_id,omitempty"`
	Quantity        int        `json:"quantity"`
	Action          ItemAction `json:"action"`
}
