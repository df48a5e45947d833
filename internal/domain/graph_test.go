package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyNodesWithNoDependencies(t *testing.T) {
	g := NewDependencyGraph()
	a, b := uuid.New(), uuid.New()
	g.AddNode(a)
	g.AddNode(b)

	ready := g.ReadyNodes(map[uuid.UUID]struct{}{})
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ready)
}

func TestReadyNodesGating(t *testing.T) {
	g := NewDependencyGraph()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	g.AddNode(a)
	g.AddNode(b, a)
	g.AddNode(c, a, b)

	ready := g.ReadyNodes(map[uuid.UUID]struct{}{})
	assert.ElementsMatch(t, []uuid.UUID{a}, ready)

	ready = g.ReadyNodes(map[uuid.UUID]struct{}{a: {}})
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ready)

	ready = g.ReadyNodes(map[uuid.UUID]struct{}{a: {}, b: {}})
	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, ready)
}

// Dependents must survive any insertion order: b can name a as a dependency
// before a exists in the graph.
func TestDependentsSurviveInsertionOrder(t *testing.T) {
	g := NewDependencyGraph()
	a, b := uuid.New(), uuid.New()
	g.AddNode(b, a)
	g.AddNode(a)

	assert.ElementsMatch(t, []uuid.UUID{b}, g.DependentsOf(a))
	assert.ElementsMatch(t, []uuid.UUID{a}, g.Dependencies(b))
}

func TestAddNodeReplacesDependencies(t *testing.T) {
	g := NewDependencyGraph()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c, a)

	g.AddNode(c, b)

	assert.ElementsMatch(t, []uuid.UUID{b}, g.Dependencies(c))
	assert.Empty(t, g.DependentsOf(a))
	assert.ElementsMatch(t, []uuid.UUID{c}, g.DependentsOf(b))
	assert.Equal(t, 3, g.Len())
}

func TestTransitiveDependents(t *testing.T) {
	// a <- b <- c, plus d independent
	g := NewDependencyGraph()
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	g.AddNode(a)
	g.AddNode(b, a)
	g.AddNode(c, b)
	g.AddNode(d)

	assert.ElementsMatch(t, []uuid.UUID{b, c}, g.TransitiveDependentsOf(a))
	assert.ElementsMatch(t, []uuid.UUID{c}, g.TransitiveDependentsOf(b))
	assert.Empty(t, g.TransitiveDependentsOf(d))
}

func TestValidateRejectsCycle(t *testing.T) {
	g := NewDependencyGraph()
	a, b := uuid.New(), uuid.New()
	g.AddNode(a, b)
	g.AddNode(b, a)

	err := g.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateRejectsUnknownDependency(t *testing.T) {
	g := NewDependencyGraph()
	a := uuid.New()
	g.AddNode(a, uuid.New())

	err := g.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedDependency)
}

func TestNewGraphFromTasks(t *testing.T) {
	orderID := uuid.New()
	first := NewTask(orderID, TaskServiceOrder, nil)
	second := NewTask(orderID, TaskResourceOrder, nil, first.ID)

	g, err := NewGraphFromTasks([]*FulfillmentTask{first, second})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.ElementsMatch(t, []uuid.UUID{second.ID}, g.DependentsOf(first.ID))
}

func TestNewGraphFromTasksRejectsDuplicateID(t *testing.T) {
	orderID := uuid.New()
	task := NewTask(orderID, TaskServiceOrder, nil)

	_, err := NewGraphFromTasks([]*FulfillmentTask{task, task})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}
