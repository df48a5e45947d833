package decompose

import (
	"github.com/google/uuid"

	"github.com/tmforge/fulfilld/internal/domain"
)

// Result is the output of order decomposition.
type Result struct {
	OrderID        uuid.UUID                  `json:"order_id"`
	ServiceOrders  []domain.ServiceOrderSpec  `json:"service_orders"`
	ResourceOrders []domain.ResourceOrderSpec `json:"resource_orders"`
	Tasks          []*domain.FulfillmentTask  `json:"tasks"`
}

// ResourcePlanner resolves the resource orders a service order requires.
// The default planner emits exactly one resource order per service order; a
// catalog-backed planner may emit zero or many.
type ResourcePlanner interface {
	Plan(item domain.OrderItem, svc domain.ServiceOrderSpec) []domain.ResourceOrderSpec
}

// siblingPlanner is the reference 1:1 expansion.
type siblingPlanner struct{}

func (siblingPlanner) Plan(_ domain.OrderItem, svc domain.ServiceOrderSpec) []domain.ResourceOrderSpec {
	return []domain.ResourceOrderSpec{{
		ID:             uuid.New(),
		ServiceOrderID: svc.ID,
		Quantity:       svc.Quantity,
		Action:         svc.Action,
	}}
}

// Decomposer derives specs and tasks from orders.
type Decomposer struct {
	planner ResourcePlanner
}

// NewDecomposer creates a decomposer with the default 1:1 resource planner.
func NewDecomposer() *Decomposer {
	return &Decomposer{planner: siblingPlanner{}}
}

// NewDecomposerWithPlanner creates a decomposer with a custom planner.
func NewDecomposerWithPlanner(planner ResourcePlanner) *Decomposer {
	return &Decomposer{planner: planner}
}

// Decompose derives one service order spec and task per line item, plus the
// planned resource order specs, each with a task gated on its service task.
// Quantity defaults to 1 when unset.
func (d *Decomposer) Decompose(order domain.Order) Result {
	result := Result{OrderID: order.ID}

	for _, item := range order.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}

		svc := domain.ServiceOrderSpec{
			ID:              uuid.New(),
			OrderItemID:     item.ID,
			SpecificationID: item.OfferingID,
			Quantity:        qty,
			Action:          item.Action,
		}
		result.ServiceOrders = append(result.ServiceOrders, svc)

		svcID := svc.ID
		svcTask := domain.NewTask(order.ID, domain.TaskServiceOrder, &svcID)
		result.Tasks = append(result.Tasks, svcTask)

		for _, res := range d.planner.Plan(item, svc) {
			result.ResourceOrders = append(result.ResourceOrders, res)

			resID := res.ID
			resTask := domain.NewTask(order.ID, domain.TaskResourceOrder, &resID, svcTask.ID)
			result.Tasks = append(result.Tasks, resTask)
		}
	}

	return result
}
