package domain

// EventType names a real-time event delivered to workflow subscribers.
type EventType string

const (
	EventTaskCreated       EventType = "task-created"
	EventTaskUpdated       EventType = "task-updated"
	EventTaskDeleted       EventType = "task-deleted"
	EventTaskStatusChanged EventType = "task-status-changed"
	EventTaskCompleted     EventType = "task-completed"
	EventConnected         EventType = "connected"
	EventConnectedUsers    EventType = "connected-users"
	EventHeartbeat         EventType = "heartbeat"
)

// Event is the wire payload fanned out to every live subscriber of a
// workflow. Fields are populated per event type and omitted otherwise.
type Event struct {
	Type           EventType `json:"type"`
	WorkflowID     string    `json:"workflowId,omitempty"`
	Task           *Task     `json:"task,omitempty"`
	TaskID         string    `json:"taskId,omitempty"`
	ConnectedUsers []string  `json:"connectedUsers,omitempty"`
	Timestamp      int64     `json:"timestamp,omitempty"`
}

// TaskCreatedEvent builds the event emitted after a task is durably created.
func TaskCreatedEvent(task *Task) Event {
	return Event{Type: EventTaskCreated, Task: task}
}

// TaskUpdatedEvent builds the event emitted after a task edit.
func TaskUpdatedEvent(task *Task) Event {
	return Event{Type: EventTaskUpdated, Task: task}
}

// TaskDeletedEvent builds the event emitted after a soft delete.
func TaskDeletedEvent(taskID string) Event {
	return Event{Type: EventTaskDeleted, TaskID: taskID}
}

// TaskStatusChangedEvent builds the event emitted after a status transition.
func TaskStatusChangedEvent(task *Task) Event {
	return Event{Type: EventTaskStatusChanged, Task: task}
}

// TaskCompletedEvent builds the event emitted after completion is confirmed.
func TaskCompletedEvent(task *Task) Event {
	return Event{Type: EventTaskCompleted, Task: task}
}
