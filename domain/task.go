package domain

import "time"

// TaskStatus is a task's position in the lifecycle state machine.
type TaskStatus string

const (
	TaskPending              TaskStatus = "Pending"
	TaskInProgress           TaskStatus = "In Progress"
	TaskAwaitingConfirmation TaskStatus = "Awaiting Confirmation"
	TaskCompleted            TaskStatus = "Completed"
	TaskCancelled            TaskStatus = "Cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskAwaitingConfirmation, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave this status.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// taskTransitions is the transition table for assignee-driven status changes.
// The privileged direct-to-Completed path for the workflow creator or task
// creator is handled by the lifecycle use case on top of this table.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:              {TaskInProgress, TaskCancelled},
	TaskInProgress:           {TaskAwaitingConfirmation, TaskCancelled},
	TaskAwaitingConfirmation: {TaskCompleted, TaskInProgress, TaskCancelled},
}

// CanTransitionTo reports whether the table permits moving from s to next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StatusUpdate is one entry in a task's status history.
type StatusUpdate struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Message   string     `json:"message"`
	UpdatedBy string     `json:"updatedBy"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Task is a unit of work assigned to one or more workflow members. Deleted
// tasks are soft-deleted: hidden from listings but retained in storage.
type Task struct {
	ID              string         `json:"id"`
	WorkflowID      string         `json:"workflowId"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Priority        Priority       `json:"priority"`
	DueDate         *time.Time     `json:"dueDate,omitempty"`
	AssignedMembers []string       `json:"assignedMembers"`
	Status          TaskStatus     `json:"status"`
	CreatedBy       string         `json:"createdBy"`
	StatusUpdates   []StatusUpdate `json:"statusUpdates,omitempty"`

	CompletionMessage string     `json:"completionMessage,omitempty"`
	CompletedBy       string     `json:"completedBy,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`

	ConfirmedBy    string     `json:"confirmedBy,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmedAt,omitempty"`
	CreditsAwarded bool       `json:"creditsAwarded,omitempty"`

	FeedbackForCompleter string     `json:"feedbackForCompleter,omitempty"`
	FeedbackFrom         string     `json:"feedbackFrom,omitempty"`
	FeedbackAt           *time.Time `json:"feedbackAt,omitempty"`

	IsDeleted bool       `json:"isDeleted,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAssigned reports whether userID is one of the task's assignees.
func (t *Task) IsAssigned(userID string) bool {
	if t == nil {
		return false
	}
	for _, id := range t.AssignedMembers {
		if id == userID {
			return true
		}
	}
	return false
}

// IsConfirmed reports whether completion has been confirmed. Confirmation
// happens at most once per task.
func (t *Task) IsConfirmed() bool {
	return t != nil && t.ConfirmedBy != ""
}

// Overdue reports whether the task has a due date in the past and is still open.
func (t *Task) Overdue(reference time.Time) bool {
	if t == nil || t.DueDate == nil || t.IsDeleted {
		return false
	}
	if t.Status == TaskCompleted || t.Status == TaskCancelled {
		return false
	}
	return t.DueDate.Before(reference)
}

// Confirmation carries the fields written when a creator confirms completion.
type Confirmation struct {
	ConfirmedBy  string
	ConfirmedAt  time.Time
	Feedback     string
	FeedbackFrom string
	FeedbackAt   *time.Time
	AwardCredits bool
}

// TaskDetail is a task enriched with user snapshots for read responses.
type TaskDetail struct {
	Task
	Creator   *UserRef  `json:"creator,omitempty"`
	Assignees []UserRef `json:"assignees"`
}
