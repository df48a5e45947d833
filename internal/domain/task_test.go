package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStateTransitions(t *testing.T) {
	cases := []struct {
		from, to TaskState
		allowed  bool
	}{
		{TaskAcknowledged, TaskInProgress, true},
		{TaskAcknowledged, TaskCompleted, true}, // forward skip
		{TaskInProgress, TaskCompleted, true},
		{TaskInProgress, TaskAcknowledged, false},
		{TaskCompleted, TaskInProgress, false},
		{TaskCompleted, TaskFailed, false},
		{TaskFailed, TaskCompleted, false},
		{TaskCancelled, TaskInProgress, false},
		{TaskAcknowledged, TaskFailed, true},
		{TaskAcknowledged, TaskCancelled, true},
		{TaskInProgress, TaskFailed, true},
		{TaskInProgress, TaskCancelled, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTaskSetStateStampsCompletion(t *testing.T) {
	task := NewTask(uuid.New(), TaskServiceOrder, nil)
	assert.Equal(t, TaskAcknowledged, task.State)
	assert.Nil(t, task.CompletedAt)

	require.NoError(t, task.SetState(TaskInProgress))
	assert.Nil(t, task.CompletedAt)

	require.NoError(t, task.SetState(TaskCompleted))
	require.NotNil(t, task.CompletedAt)
}

// A terminal report delivered twice is a no-op: same state, same timestamp.
func TestTaskSetStateIdempotentAtTerminal(t *testing.T) {
	task := NewTask(uuid.New(), TaskCreateActivation, nil)
	require.NoError(t, task.SetState(TaskCompleted))
	stamped := *task.CompletedAt

	require.NoError(t, task.SetState(TaskCompleted))
	assert.Equal(t, stamped, *task.CompletedAt)

	err := task.SetState(TaskFailed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, TaskCompleted, task.State)
}

func TestTaskSetStateRejectsRegression(t *testing.T) {
	task := NewTask(uuid.New(), TaskResourceOrder, nil)
	require.NoError(t, task.SetState(TaskInProgress))

	err := task.SetState(TaskAcknowledged)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
