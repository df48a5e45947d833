package orchestrator

import (
	"github.com/google/uuid"

	"github.com/tmforge/fulfilld/internal/domain"
)

// ActivationChain builds the lifecycle task chain appended after
// decomposition:
//
//	ValidateOrder → CheckDependencies → CreateActivation →
//	ExecuteActivation → CreateInventory
//
// CheckDependencies is additionally gated on the given task ids (normally
// every resource task), so activation only starts once the whole derived
// order tier has completed. Progress through the chain drives the
// order-level milestones Validating through InventoryCreated.
func ActivationChain(orderID uuid.UUID, gates []uuid.UUID) []*domain.FulfillmentTask {
	validate := domain.NewTask(orderID, domain.TaskValidateOrder, nil)

	checkDeps := domain.NewTask(orderID, domain.TaskCheckDependencies, nil,
		append([]uuid.UUID{validate.ID}, gates...)...)

	createActivation := domain.NewTask(orderID, domain.TaskCreateActivation, nil, checkDeps.ID)
	executeActivation := domain.NewTask(orderID, domain.TaskExecuteActivation, nil, createActivation.ID)
	createInventory := domain.NewTask(orderID, domain.TaskCreateInventory, nil, executeActivation.ID)

	return []*domain.FulfillmentTask{
		validate,
		checkDeps,
		createActivation,
		executeActivation,
		createInventory,
	}
}
