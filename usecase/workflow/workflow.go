// Package workflow implements workflow CRUD. The creator is seeded as an
// Admin member with unrestricted permissions and keeps those rights for the
// life of the workflow.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
	"github.com/taskhive/backend/usecase/membership"
)

type UseCase struct {
	workflows repository.WorkflowRepository
	invites   repository.InviteRepository
	tasks     repository.TaskRepository
	users     repository.UserRepository
	members   *membership.UseCase
	logger    *zap.Logger
	now       func() time.Time
}

func New(
	workflows repository.WorkflowRepository,
	invites repository.InviteRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	members *membership.UseCase,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		workflows: workflows,
		invites:   invites,
		tasks:     tasks,
		users:     users,
		members:   members,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateInput struct {
	Name             string
	Description      string
	Priority         domain.Priority
	EstimatedMembers int
	MemberEmails     []string
}

// Create persists a new workflow with the actor as creator/Admin and sends
// invites for the given emails. EstimatedMembers is a capacity hint only.
func (uc *UseCase) Create(ctx context.Context, actorID string, in CreateInput) (*domain.Workflow, error) {
	if in.Name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, domain.NewValidationError("priority", "unknown priority")
	}

	creator, err := uc.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	wf := &domain.Workflow{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      domain.WorkflowActive,
		CreatedBy:   creator.ID,
		Members: []domain.Member{{
			UserID:       creator.ID,
			Email:        creator.Email,
			FirstName:    creator.FirstName,
			LastName:     creator.LastName,
			Role:         domain.RoleAdmin,
			InviteStatus: domain.InviteAccepted,
			Permissions:  domain.UnrestrictedPermissions(),
			JoinedAt:     now,
		}},
		EstimatedMembers: in.EstimatedMembers,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := uc.workflows.Create(ctx, wf)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(in.MemberEmails))
	for _, email := range in.MemberEmails {
		if email == creator.Email {
			continue
		}
		emails = append(emails, email)
	}
	if len(emails) > 0 && uc.members != nil {
		if _, err := uc.members.InviteByEmails(ctx, created.ID, actorID, emails); err != nil {
			uc.logger.Error("invites failed during workflow creation",
				zap.String("workflow_id", created.ID),
				zap.Error(err),
			)
		}
	}

	return created, nil
}

// List returns every workflow the actor belongs to.
func (uc *UseCase) List(ctx context.Context, actorID string) ([]domain.Workflow, error) {
	return uc.workflows.ListByMember(ctx, actorID)
}

// Get returns the workflow if the actor is a member of it.
func (uc *UseCase) Get(ctx context.Context, workflowID, actorID string) (*domain.Workflow, error) {
	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !wf.HasMember(actorID) {
		return nil, domain.ErrNotWorkflowMember
	}
	return wf, nil
}

type UpdateInput struct {
	Name        string
	Description string
}

// Update rewrites the workflow's name and description. Creator only.
func (uc *UseCase) Update(ctx context.Context, workflowID, actorID string, in UpdateInput) (*domain.Workflow, error) {
	if in.Name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}

	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !wf.IsCreator(actorID) {
		return nil, domain.NewPermissionDenied("workflowCreator",
			"only the workflow creator can update workflow details")
	}

	wf.Name = in.Name
	wf.Description = in.Description
	wf.UpdatedAt = uc.now()
	if err := uc.workflows.Update(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// Delete removes the workflow along with its tasks and invites. Creator only.
func (uc *UseCase) Delete(ctx context.Context, workflowID, actorID string) error {
	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}
	if !wf.IsCreator(actorID) {
		return domain.NewPermissionDenied("workflowCreator",
			"only the workflow creator can delete the workflow")
	}

	if err := uc.tasks.DeleteByWorkflow(ctx, wf.ID); err != nil {
		return err
	}
	if err := uc.invites.DeleteByWorkflow(ctx, wf.ID); err != nil {
		return err
	}
	return uc.workflows.Delete(ctx, wf.ID)
}
