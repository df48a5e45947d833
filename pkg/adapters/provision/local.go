package provision

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tmforge/fulfilld/internal/domain"
)

// ReadinessChecker reports whether the external prerequisites of an order
// (allocated resources, upstream activations) are in place. Implementations
// typically query an inventory or activation system.
type ReadinessChecker interface {
	Ready(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// ValidateExecutor performs in-process validation of a fulfillment context
// before any downstream work starts.
type ValidateExecutor struct{}

// NewValidateExecutor creates a validation executor.
func NewValidateExecutor() *ValidateExecutor {
	return &ValidateExecutor{}
}

// Execute checks the decomposed context for structural problems.
func (e *ValidateExecutor) Execute(_ context.Context, task *domain.FulfillmentTask, fc *domain.FulfillmentContext) error {
	if fc == nil {
		return fmt.Errorf("%w: missing fulfillment context", domain.ErrValidation)
	}
	if task.OrderID != fc.OrderID {
		return fmt.Errorf("%w: task %s does not belong to order %s", domain.ErrValidation, task.ID, fc.OrderID)
	}
	for _, svc := range fc.ServiceOrders {
		if svc.ID == uuid.Nil {
			return fmt.Errorf("%w: service order without id", domain.ErrValidation)
		}
	}
	for _, res := range fc.ResourceOrders {
		if res.ID == uuid.Nil {
			return fmt.Errorf("%w: resource order without id", domain.ErrValidation)
		}
		if res.ServiceOrderID == uuid.Nil {
			return fmt.Errorf("%w: resource order %s without parent service order", domain.ErrValidation, res.ID)
		}
	}
	return nil
}

// CheckDependenciesExecutor gates activation on external readiness. When the
// checker reports the order is not ready, the task stays in progress and the
// order waits for a later retry.
type CheckDependenciesExecutor struct {
	checker ReadinessChecker
}

// NewCheckDependenciesExecutor creates a dependency check executor. A nil
// checker treats every order as ready.
func NewCheckDependenciesExecutor(checker ReadinessChecker) *CheckDependenciesExecutor {
	return &CheckDependenciesExecutor{checker: checker}
}

// Execute consults the readiness checker for the task's order.
func (e *CheckDependenciesExecutor) Execute(ctx context.Context, task *domain.FulfillmentTask, _ *domain.FulfillmentContext) error {
	if e.checker == nil {
		return nil
	}
	ready, err := e.checker.Ready(ctx, task.OrderID)
	if err != nil {
		return fmt.Errorf("readiness check for order %s: %w: %v", task.OrderID, domain.ErrExternalService, err)
	}
	if !ready {
		return fmt.Errorf("order %s: %w", task.OrderID, domain.ErrDependenciesNotMet)
	}
	return nil
}
