package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatusTransitions(t *testing.T) {
	cases := []struct {
		from    TaskStatus
		to      TaskStatus
		allowed bool
	}{
		{TaskPending, TaskInProgress, true},
		{TaskPending, TaskCancelled, true},
		{TaskPending, TaskAwaitingConfirmation, false},
		{TaskPending, TaskCompleted, false},
		{TaskInProgress, TaskAwaitingConfirmation, true},
		{TaskInProgress, TaskCancelled, true},
		{TaskInProgress, TaskCompleted, false},
		{TaskInProgress, TaskPending, false},
		{TaskAwaitingConfirmation, TaskCompleted, true},
		{TaskAwaitingConfirmation, TaskInProgress, true},
		{TaskAwaitingConfirmation, TaskCancelled, true},
		{TaskAwaitingConfirmation, TaskPending, false},
		{TaskCompleted, TaskInProgress, false},
		{TaskCompleted, TaskCancelled, false},
		{TaskCancelled, TaskInProgress, false},
		{TaskCancelled, TaskCompleted, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskCancelled.Terminal())
	assert.False(t, TaskPending.Terminal())
	assert.False(t, TaskInProgress.Terminal())
	assert.False(t, TaskAwaitingConfirmation.Terminal())
}

func TestTaskOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Task{Status: TaskPending}).Overdue(now), "no due date")
	assert.True(t, (&Task{Status: TaskInProgress, DueDate: &past}).Overdue(now))
	assert.False(t, (&Task{Status: TaskInProgress, DueDate: &future}).Overdue(now))
	assert.False(t, (&Task{Status: TaskCompleted, DueDate: &past}).Overdue(now))
	assert.False(t, (&Task{Status: TaskCancelled, DueDate: &past}).Overdue(now))
	assert.False(t, (&Task{Status: TaskInProgress, DueDate: &past, IsDeleted: true}).Overdue(now))
}

func TestTaskIsAssigned(t *testing.T) {
	task := &Task{AssignedMembers: []string{"u1", "u2"}}
	assert.True(t, task.IsAssigned("u1"))
	assert.False(t, task.IsAssigned("u3"))
	assert.False(t, task.IsAssigned(""))
}

func TestPermissionsMayAssignTo(t *testing.T) {
	none := Permissions{}
	assert.False(t, none.MayAssignTo([]string{"u1"}), "no assign grant")

	open := Permissions{CanAssignTasks: true}
	assert.True(t, open.MayAssignTo([]string{"u1", "u2"}), "empty set means unrestricted")

	scoped := Permissions{CanAssignTasks: true, AssignableMembers: []string{"u1"}}
	assert.True(t, scoped.MayAssignTo([]string{"u1"}))
	assert.False(t, scoped.MayAssignTo([]string{"u1", "u2"}), "every target must be covered")
}
