package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tmforge/fulfilld/internal/domain"
)

// Validator validates decomposed task graphs before a context is created.
type Validator struct{}

// NewValidator creates a new task graph validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a task list for structural soundness and returns the
// dependency graph built from it. It rejects:
//   - tasks owned by a different order
//   - duplicate task ids
//   - dependency references that do not resolve within the list
//   - dependency cycles
//
// A graph that passes here is acyclic by construction, so readiness never
// needs runtime cycle detection.
func (v *Validator) Validate(orderID uuid.UUID, tasks []*domain.FulfillmentTask) (*domain.DependencyGraph, error) {
	for _, task := range tasks {
		if task == nil {
			return nil, fmt.Errorf("nil task: %w", domain.ErrValidation)
		}
		if task.OrderID != orderID {
			return nil, fmt.Errorf("task %s belongs to order %s, not %s: %w",
				task.ID, task.OrderID, orderID, domain.ErrValidation)
		}
		if task.Kind == "" {
			return nil, fmt.Errorf("task %s has no kind: %w", task.ID, domain.ErrValidation)
		}
	}

	graph, err := domain.NewGraphFromTasks(tasks)
	if err != nil {
		return nil, err
	}
	return graph, nil
}
