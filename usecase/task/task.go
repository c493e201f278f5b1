// Package task implements the task lifecycle state machine: creation,
// status transitions, completion confirmation with credit award, soft
// deletion, and the completion/feedback message operations. Every mutation is
// permission-checked up front and emits exactly one lifecycle event after the
// durable write.
package task

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
	"github.com/taskhive/backend/usecase/permission"
)

// Broadcaster receives lifecycle events for fan-out to live workflow
// subscribers. Publish must never fail the operation that produced the event.
type Broadcaster interface {
	Publish(workflowID string, event domain.Event)
}

type UseCase struct {
	workflows repository.WorkflowRepository
	tasks     repository.TaskRepository
	users     repository.UserRepository
	perms     *permission.Evaluator
	events    Broadcaster
	logger    *zap.Logger
	now       func() time.Time
}

func New(
	workflows repository.WorkflowRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	perms *permission.Evaluator,
	events Broadcaster,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = permission.NewEvaluator()
	}
	return &UseCase{
		workflows: workflows,
		tasks:     tasks,
		users:     users,
		perms:     perms,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateInput struct {
	WorkflowID      string
	ActorID         string
	Title           string
	Description     string
	Priority        domain.Priority
	DueDate         *time.Time
	AssignedMembers []string
}

// Create validates input and permissions, persists the task with status
// Pending, and emits task-created.
func (uc *UseCase) Create(ctx context.Context, in CreateInput) (*domain.Task, error) {
	if in.Title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}
	if in.Description == "" {
		return nil, domain.NewValidationError("description", "description is required")
	}
	if len(in.AssignedMembers) == 0 {
		return nil, domain.NewValidationError("assignedMembers", "at least one assigned member is required")
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, domain.NewValidationError("priority", "unknown priority")
	}

	wf, actor, err := uc.loadWorkflowMember(ctx, in.WorkflowID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := uc.perms.CanCreateTask(wf, actor); err != nil {
		return nil, err
	}
	if err := uc.perms.CanAssignTo(wf, actor, in.AssignedMembers); err != nil {
		return nil, err
	}
	if err := requireMembers(wf, in.AssignedMembers); err != nil {
		return nil, err
	}

	now := uc.now()
	task := &domain.Task{
		ID:              uuid.NewString(),
		WorkflowID:      wf.ID,
		Title:           in.Title,
		Description:     in.Description,
		Priority:        in.Priority,
		DueDate:         in.DueDate,
		AssignedMembers: in.AssignedMembers,
		Status:          domain.TaskPending,
		CreatedBy:       in.ActorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	uc.events.Publish(wf.ID, domain.TaskCreatedEvent(created))
	return created, nil
}

type EditInput struct {
	WorkflowID      string
	TaskID          string
	ActorID         string
	Title           string
	Description     string
	Priority        domain.Priority
	DueDate         *time.Time
	AssignedMembers []string
}

// Edit rewrites the task's descriptive fields and assignment. It does not
// touch the status and emits task-updated.
func (uc *UseCase) Edit(ctx context.Context, in EditInput) (*domain.Task, error) {
	if in.Title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}
	if len(in.AssignedMembers) == 0 {
		return nil, domain.NewValidationError("assignedMembers", "at least one assigned member is required")
	}

	wf, _, task, err := uc.loadTaskContext(ctx, in.WorkflowID, in.TaskID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := uc.perms.CanEditOrDeleteTask(wf, in.ActorID, task); err != nil {
		return nil, err
	}
	if err := requireMembers(wf, in.AssignedMembers); err != nil {
		return nil, err
	}

	task.Title = in.Title
	task.Description = in.Description
	if in.Priority != "" {
		if !in.Priority.Valid() {
			return nil, domain.NewValidationError("priority", "unknown priority")
		}
		task.Priority = in.Priority
	}
	task.DueDate = in.DueDate
	task.AssignedMembers = in.AssignedMembers
	task.UpdatedAt = uc.now()

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	uc.events.Publish(wf.ID, domain.TaskUpdatedEvent(task))
	return task, nil
}

type UpdateStatusInput struct {
	WorkflowID string
	TaskID     string
	ActorID    string
	Status     domain.TaskStatus
	Message    string
}

// UpdateStatus moves the task through the state machine. Entering Awaiting
// Confirmation (or Completed via the privileged path) stamps the completion
// fields. The transition is appended to the status history and
// task-status-changed is emitted.
func (uc *UseCase) UpdateStatus(ctx context.Context, in UpdateStatusInput) (*domain.Task, error) {
	if !in.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown status")
	}

	wf, _, task, err := uc.loadTaskContext(ctx, in.WorkflowID, in.TaskID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := uc.perms.CanAdvanceStatus(wf, in.ActorID, task, in.Status); err != nil {
		return nil, err
	}

	if !task.Status.CanTransitionTo(in.Status) {
		// The workflow creator and task creator may complete a task from any
		// non-terminal state without routing through Awaiting Confirmation.
		privileged := wf.IsCreator(in.ActorID) || task.CreatedBy == in.ActorID
		direct := in.Status == domain.TaskCompleted && privileged && !task.Status.Terminal()
		if !direct {
			return nil, domain.NewInvalidTransition(task.Status, in.Status)
		}
	}

	now := uc.now()
	task.Status = in.Status
	task.UpdatedAt = now
	task.StatusUpdates = append(task.StatusUpdates, domain.StatusUpdate{
		ID:        uuid.NewString(),
		Status:    in.Status,
		Message:   in.Message,
		UpdatedBy: in.ActorID,
		UpdatedAt: now,
	})

	if in.Status == domain.TaskAwaitingConfirmation || in.Status == domain.TaskCompleted {
		task.CompletionMessage = in.Message
		task.CompletedBy = in.ActorID
		task.CompletedAt = &now
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	uc.events.Publish(wf.ID, domain.TaskStatusChangedEvent(task))
	return task, nil
}

type ConfirmInput struct {
	WorkflowID   string
	TaskID       string
	ActorID      string
	AwardCredits bool
	Feedback     string
}

// Confirm finalizes a completed task. The confirmation write is a
// compare-and-set on confirmedBy, so a concurrent or repeated confirmation
// yields AlreadyConfirmed and the completer's credit is awarded exactly once.
func (uc *UseCase) Confirm(ctx context.Context, in ConfirmInput) (*domain.Task, error) {
	wf, _, task, err := uc.loadTaskContext(ctx, in.WorkflowID, in.TaskID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := uc.perms.CanConfirmCompletion(wf, in.ActorID, task); err != nil {
		return nil, err
	}
	if task.IsConfirmed() {
		return nil, domain.ErrAlreadyConfirmed
	}

	now := uc.now()
	conf := domain.Confirmation{
		ConfirmedBy:  in.ActorID,
		ConfirmedAt:  now,
		AwardCredits: in.AwardCredits && task.CompletedBy != "",
	}
	if fb := strings.TrimSpace(in.Feedback); fb != "" {
		conf.Feedback = fb
		conf.FeedbackFrom = in.ActorID
		conf.FeedbackAt = &now
	}

	applied, err := uc.tasks.ConfirmCompletion(ctx, task.ID, conf)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.ErrAlreadyConfirmed
	}

	if conf.AwardCredits {
		// The CAS above makes this branch reachable at most once per task, so
		// the increment cannot be applied twice even if the caller retries.
		if err := uc.workflows.IncrementCredits(ctx, wf.ID, task.CompletedBy, 1); err != nil {
			uc.logger.Error("credit award failed",
				zap.String("workflow_id", wf.ID),
				zap.String("task_id", task.ID),
				zap.String("member_id", task.CompletedBy),
				zap.Error(err),
			)
		}
	}

	task.Status = domain.TaskCompleted
	task.ConfirmedBy = conf.ConfirmedBy
	task.ConfirmedAt = &now
	task.CreditsAwarded = conf.AwardCredits
	task.FeedbackForCompleter = conf.Feedback
	task.FeedbackFrom = conf.FeedbackFrom
	task.FeedbackAt = conf.FeedbackAt
	task.UpdatedAt = now

	uc.events.Publish(wf.ID, domain.TaskCompletedEvent(task))
	return task, nil
}

// Delete soft-deletes the task and emits task-deleted. Deleted tasks stay in
// storage but disappear from every listing.
func (uc *UseCase) Delete(ctx context.Context, workflowID, taskID, actorID string) error {
	wf, _, task, err := uc.loadTaskContext(ctx, workflowID, taskID, actorID)
	if err != nil {
		return err
	}
	if err := uc.perms.CanEditOrDeleteTask(wf, actorID, task); err != nil {
		return err
	}

	if err := uc.tasks.SoftDelete(ctx, task.ID, actorID, uc.now()); err != nil {
		return err
	}

	uc.events.Publish(wf.ID, domain.TaskDeletedEvent(task.ID))
	return nil
}

// DeleteCompletionMessage lets the member who reported completion withdraw
// it: the completion fields are cleared and the task reverts to In Progress.
func (uc *UseCase) DeleteCompletionMessage(ctx context.Context, workflowID, taskID, actorID string) (*domain.Task, error) {
	wf, _, task, err := uc.loadTaskContext(ctx, workflowID, taskID, actorID)
	if err != nil {
		return nil, err
	}
	if err := uc.perms.CanDeleteCompletionMessage(task, actorID); err != nil {
		return nil, err
	}

	task.CompletionMessage = ""
	task.CompletedBy = ""
	task.CompletedAt = nil
	task.Status = domain.TaskInProgress
	task.UpdatedAt = uc.now()

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	uc.events.Publish(wf.ID, domain.TaskStatusChangedEvent(task))
	return task, nil
}

// DeleteFeedback removes the feedback left for the completer. The status is
// untouched.
func (uc *UseCase) DeleteFeedback(ctx context.Context, workflowID, taskID, actorID string) (*domain.Task, error) {
	wf, _, task, err := uc.loadTaskContext(ctx, workflowID, taskID, actorID)
	if err != nil {
		return nil, err
	}
	if err := uc.perms.CanDeleteFeedback(task, actorID); err != nil {
		return nil, err
	}

	task.FeedbackForCompleter = ""
	task.FeedbackFrom = ""
	task.FeedbackAt = nil
	task.UpdatedAt = uc.now()

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	uc.events.Publish(wf.ID, domain.TaskUpdatedEvent(task))
	return task, nil
}

// List returns the workflow's live tasks enriched with creator and assignee
// snapshots. Soft-deleted tasks are excluded.
func (uc *UseCase) List(ctx context.Context, workflowID, actorID string) ([]domain.TaskDetail, error) {
	wf, _, err := uc.loadWorkflowMember(ctx, workflowID, actorID)
	if err != nil {
		return nil, err
	}

	tasks, err := uc.tasks.ListActive(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	return uc.enrich(ctx, tasks), nil
}

// ListCompleted returns confirmed tasks for the completed-work view.
func (uc *UseCase) ListCompleted(ctx context.Context, workflowID, actorID string, limit, offset int) ([]domain.TaskDetail, error) {
	wf, _, err := uc.loadWorkflowMember(ctx, workflowID, actorID)
	if err != nil {
		return nil, err
	}

	tasks, err := uc.tasks.ListCompleted(ctx, wf.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.enrich(ctx, tasks), nil
}

// Stats summarizes the workflow's task counts.
func (uc *UseCase) Stats(ctx context.Context, workflowID, actorID string) (domain.WorkflowStats, error) {
	wf, _, err := uc.loadWorkflowMember(ctx, workflowID, actorID)
	if err != nil {
		return domain.WorkflowStats{}, err
	}
	return uc.tasks.Stats(ctx, wf.ID, uc.now())
}

// loadWorkflowMember fetches the workflow and the actor's membership record.
func (uc *UseCase) loadWorkflowMember(ctx context.Context, workflowID, actorID string) (*domain.Workflow, *domain.Member, error) {
	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	actor, ok := wf.Member(actorID)
	if !ok {
		return nil, nil, domain.ErrNotWorkflowMember
	}
	return wf, actor, nil
}

// loadTaskContext additionally fetches the task, treating soft-deleted tasks
// and workflow mismatches as not found.
func (uc *UseCase) loadTaskContext(ctx context.Context, workflowID, taskID, actorID string) (*domain.Workflow, *domain.Member, *domain.Task, error) {
	wf, actor, err := uc.loadWorkflowMember(ctx, workflowID, actorID)
	if err != nil {
		return nil, nil, nil, err
	}
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, nil, err
	}
	if task.WorkflowID != wf.ID || task.IsDeleted {
		return nil, nil, nil, domain.ErrTaskNotFound
	}
	return wf, actor, task, nil
}

// enrich resolves user snapshots for creators and assignees. Lookup failures
// degrade to the bare ids rather than failing the listing.
func (uc *UseCase) enrich(ctx context.Context, tasks []domain.Task) []domain.TaskDetail {
	cache := make(map[string]*domain.UserRef)
	lookup := func(id string) *domain.UserRef {
		if id == "" {
			return nil
		}
		if ref, ok := cache[id]; ok {
			return ref
		}
		user, err := uc.users.GetByID(ctx, id)
		if err != nil {
			cache[id] = nil
			return nil
		}
		ref := user.Ref()
		cache[id] = &ref
		return &ref
	}

	details := make([]domain.TaskDetail, 0, len(tasks))
	for i := range tasks {
		detail := domain.TaskDetail{Task: tasks[i]}
		detail.Creator = lookup(tasks[i].CreatedBy)
		detail.Assignees = make([]domain.UserRef, 0, len(tasks[i].AssignedMembers))
		for _, id := range tasks[i].AssignedMembers {
			if ref := lookup(id); ref != nil {
				detail.Assignees = append(detail.Assignees, *ref)
			}
		}
		details = append(details, detail)
	}
	return details
}

func requireMembers(wf *domain.Workflow, ids []string) error {
	for _, id := range ids {
		if !wf.HasMember(id) {
			return domain.NewValidationError("assignedMembers",
				"some assigned members are not part of this workflow")
		}
	}
	return nil
}
