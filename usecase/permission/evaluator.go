// Package permission centralizes every authorization rule for workflow and
// task operations. The evaluator is pure: it never touches storage or
// transport, so the whole policy is unit-testable in isolation.
package permission

import "github.com/taskhive/backend/domain"

// Rule names carried inside PermissionDenied errors so callers can surface
// the exact check that failed.
const (
	RuleWorkflowMember       = "workflowMember"
	RuleCanCreateTask        = "canCreateTask"
	RuleCanAssignTo          = "canAssignTo"
	RuleCanEditOrDeleteTask  = "canEditOrDeleteTask"
	RuleCanAdvanceStatus     = "canAdvanceStatus"
	RuleCanConfirmCompletion = "canConfirmCompletion"
	RuleCanManageMembers     = "canManageMembers"
	RuleCanRemoveMember      = "canRemoveMember"
	RuleCanUpdatePermissions = "canUpdatePermissions"
	RuleCompletionMsgOwner   = "completionMessageOwner"
	RuleFeedbackRecipient    = "feedbackRecipient"
	RuleCreatorNotTargetable = "creatorNotTargetable"
	RuleDirectCompleteDenied = "directCompletionReserved"
)

// Evaluator computes Allow/Deny decisions for workflow and task operations.
// Methods return nil for Allow and a *domain.Error (FORBIDDEN, with the rule
// name in Detail) for Deny.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// CanCreateTask allows the workflow creator and members holding the
// canCreateTasks grant.
func (e *Evaluator) CanCreateTask(wf *domain.Workflow, actor *domain.Member) error {
	if wf.IsCreator(actor.UserID) {
		return nil
	}
	if actor.Permissions.CanCreateTasks {
		return nil
	}
	return domain.NewPermissionDenied(RuleCanCreateTask,
		"you do not have permission to create tasks in this workflow")
}

// CanAssignTo allows the creator unconditionally; other members need the
// canAssignTasks grant and, when their assignableMembers set is non-empty,
// every target must be inside it. An empty set means unrestricted.
func (e *Evaluator) CanAssignTo(wf *domain.Workflow, actor *domain.Member, targetIDs []string) error {
	if wf.IsCreator(actor.UserID) {
		return nil
	}
	if !actor.Permissions.CanAssignTasks {
		return domain.NewPermissionDenied(RuleCanAssignTo,
			"you do not have permission to assign tasks in this workflow")
	}
	if !actor.Permissions.MayAssignTo(targetIDs) {
		return domain.NewPermissionDenied(RuleCanAssignTo,
			"you can only assign tasks to specific members in this workflow")
	}
	return nil
}

// CanEditOrDeleteTask allows the workflow creator and the task's creator.
func (e *Evaluator) CanEditOrDeleteTask(wf *domain.Workflow, actorID string, task *domain.Task) error {
	if wf.IsCreator(actorID) || task.CreatedBy == actorID {
		return nil
	}
	return domain.NewPermissionDenied(RuleCanEditOrDeleteTask,
		"you do not have permission to modify this task")
}

// CanAdvanceStatus requires the actor to be an assignee. Moving a task
// directly to Completed is reserved for the workflow creator or the task
// creator; plain assignees must route through Awaiting Confirmation.
func (e *Evaluator) CanAdvanceStatus(wf *domain.Workflow, actorID string, task *domain.Task, next domain.TaskStatus) error {
	if !task.IsAssigned(actorID) {
		return domain.NewPermissionDenied(RuleCanAdvanceStatus,
			"you are not assigned to this task")
	}
	if next == domain.TaskCompleted && !wf.IsCreator(actorID) && task.CreatedBy != actorID {
		return domain.NewPermissionDenied(RuleDirectCompleteDenied,
			"assignees cannot mark tasks as completed directly; use Awaiting Confirmation instead")
	}
	return nil
}

// CanConfirmCompletion allows the workflow creator and the task creator.
// The at-most-once confirmation guard itself lives with the task mutation.
func (e *Evaluator) CanConfirmCompletion(wf *domain.Workflow, actorID string, task *domain.Task) error {
	if wf.IsCreator(actorID) || task.CreatedBy == actorID {
		return nil
	}
	return domain.NewPermissionDenied(RuleCanConfirmCompletion,
		"you do not have permission to confirm task completion")
}

// CanManageMembers allows only the workflow creator to issue invites.
func (e *Evaluator) CanManageMembers(wf *domain.Workflow, actorID string) error {
	if wf.IsCreator(actorID) {
		return nil
	}
	return domain.NewPermissionDenied(RuleCanManageMembers,
		"only the workflow creator can manage members")
}

// CanRemoveMember allows only the creator, and never targets the creator.
func (e *Evaluator) CanRemoveMember(wf *domain.Workflow, actorID, targetID string) error {
	if !wf.IsCreator(actorID) {
		return domain.NewPermissionDenied(RuleCanRemoveMember,
			"only the workflow creator can remove members")
	}
	if wf.IsCreator(targetID) {
		return domain.NewPermissionDenied(RuleCreatorNotTargetable,
			"the workflow creator cannot be removed")
	}
	return nil
}

// CanUpdatePermissions allows only the creator, and never targets the creator.
func (e *Evaluator) CanUpdatePermissions(wf *domain.Workflow, actorID, targetID string) error {
	if !wf.IsCreator(actorID) {
		return domain.NewPermissionDenied(RuleCanUpdatePermissions,
			"only the workflow creator can update member permissions")
	}
	if wf.IsCreator(targetID) {
		return domain.NewPermissionDenied(RuleCreatorNotTargetable,
			"the workflow creator's permissions cannot be altered")
	}
	return nil
}

// CanDeleteCompletionMessage allows only the member who wrote the message.
func (e *Evaluator) CanDeleteCompletionMessage(task *domain.Task, actorID string) error {
	if task.CompletedBy != "" && task.CompletedBy == actorID {
		return nil
	}
	return domain.NewPermissionDenied(RuleCompletionMsgOwner,
		"you can only delete your own completion message")
}

// CanDeleteFeedback allows only the completer the feedback was written for.
func (e *Evaluator) CanDeleteFeedback(task *domain.Task, actorID string) error {
	if task.CompletedBy != "" && task.CompletedBy == actorID {
		return nil
	}
	return domain.NewPermissionDenied(RuleFeedbackRecipient,
		"you can only delete feedback on tasks you completed")
}
