package decompose

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmforge/fulfilld/internal/domain"
)

func TestDecomposeEmptyOrder(t *testing.T) {
	d := NewDecomposer()
	result := d.Decompose(domain.Order{ID: uuid.New()})

	assert.Empty(t, result.ServiceOrders)
	assert.Empty(t, result.ResourceOrders)
	assert.Empty(t, result.Tasks)
}

func TestDecomposeOneTaskPairPerItem(t *testing.T) {
	offering := uuid.New()
	order := domain.Order{
		ID: uuid.New(),
		Items: []domain.OrderItem{
			{ID: uuid.New(), Action: domain.ActionAdd, OfferingID: &offering, Quantity: 2},
			{ID: uuid.New(), Action: domain.ActionModify, Quantity: 1},
			{ID: uuid.New(), Action: domain.ActionDelete, Quantity: 1},
		},
	}

	d := NewDecomposer()
	result := d.Decompose(order)

	require.Len(t, result.ServiceOrders, 3)
	require.Len(t, result.ResourceOrders, 3)
	require.Len(t, result.Tasks, 6)

	svcTasks := 0
	resTasks := 0
	for _, task := range result.Tasks {
		assert.Equal(t, order.ID, task.OrderID)
		assert.Equal(t, domain.TaskAcknowledged, task.State)
		switch task.Kind {
		case domain.TaskServiceOrder:
			svcTasks++
			assert.Empty(t, task.Dependencies)
		case domain.TaskResourceOrder:
			resTasks++
			assert.Len(t, task.Dependencies, 1)
		default:
			t.Fatalf("unexpected task kind %s", task.Kind)
		}
	}
	assert.Equal(t, 3, svcTasks)
	assert.Equal(t, 3, resTasks)

	// first item's specs carry the offering and quantity
	assert.Equal(t, &offering, result.ServiceOrders[0].SpecificationID)
	assert.Equal(t, 2, result.ServiceOrders[0].Quantity)
	assert.Equal(t, result.ServiceOrders[0].ID, result.ResourceOrders[0].ServiceOrderID)
	assert.Equal(t, 2, result.ResourceOrders[0].Quantity)
}

func TestDecomposeDefaultsQuantity(t *testing.T) {
	order := domain.Order{
		ID:    uuid.New(),
		Items: []domain.OrderItem{{ID: uuid.New(), Action: domain.ActionAdd}},
	}

	result := NewDecomposer().Decompose(order)
	require.Len(t, result.ServiceOrders, 1)
	assert.Equal(t, 1, result.ServiceOrders[0].Quantity)
}

// Every resource task depends only on its own sibling service task, so the
// derived graph is acyclic by construction.
func TestDecomposeSiblingEdgesOnly(t *testing.T) {
	order := domain.Order{
		ID: uuid.New(),
		Items: []domain.OrderItem{
			{ID: uuid.New(), Action: domain.ActionAdd},
			{ID: uuid.New(), Action: domain.ActionAdd},
		},
	}

	result := NewDecomposer().Decompose(order)
	require.Len(t, result.Tasks, 4)

	taskByTarget := make(map[uuid.UUID]*domain.FulfillmentTask)
	for _, task := range result.Tasks {
		if task.TargetID != nil {
			taskByTarget[*task.TargetID] = task
		}
	}

	for _, res := range result.ResourceOrders {
		resTask := taskByTarget[res.ID]
		require.NotNil(t, resTask)
		svcTask := taskByTarget[res.ServiceOrderID]
		require.NotNil(t, svcTask)
		assert.Equal(t, []uuid.UUID{svcTask.ID}, resTask.Dependencies)
	}

	_, err := domain.NewGraphFromTasks(result.Tasks)
	assert.NoError(t, err)
}

type fanOutPlanner struct{ n int }

func (p fanOutPlanner) Plan(_ domain.OrderItem, svc domain.ServiceOrderSpec) []domain.ResourceOrderSpec {
	out := make([]domain.ResourceOrderSpec, p.n)
	for i := range out {
		out[i] = domain.ResourceOrderSpec{
			ID:             uuid.New(),
			ServiceOrderID: svc.ID,
			Quantity:       svc.Quantity,
			Action:         svc.Action,
		}
	}
	return out
}

func TestDecomposeWithCustomPlanner(t *testing.T) {
	order := domain.Order{
		ID:    uuid.New(),
		Items: []domain.OrderItem{{ID: uuid.New(), Action: domain.ActionAdd}},
	}

	result := NewDecomposerWithPlanner(fanOutPlanner{n: 3}).Decompose(order)
	assert.Len(t, result.ServiceOrders, 1)
	assert.Len(t, result.ResourceOrders, 3)
	assert.Len(t, result.Tasks, 4)
}
