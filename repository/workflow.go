package repository

import (
	"context"

	"github.com/taskhive/backend/domain"
)

// WorkflowRepository persists workflows together with their member lists.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Workflow, error)
	ListByMember(ctx context.Context, userID string) ([]domain.Workflow, error)
	Create(ctx context.Context, workflow *domain.Workflow) (*domain.Workflow, error)
	Update(ctx context.Context, workflow *domain.Workflow) error
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, workflowID string, member domain.Member) error
	RemoveMember(ctx context.Context, workflowID, userID string) error
	UpdateMemberPermissions(ctx context.Context, workflowID, userID string, perms domain.Permissions) error
	// IncrementCredits bumps a member's credit counter. Credits only ever increase.
	IncrementCredits(ctx context.Context, workflowID, userID string, delta int) error
}

// InviteRepository persists workflow invites.
type InviteRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Invite, error)
	ListPendingForUser(ctx context.Context, userID string) ([]domain.Invite, error)
	FindPending(ctx context.Context, workflowID, userID string) (*domain.Invite, error)
	Create(ctx context.Context, invite *domain.Invite) (*domain.Invite, error)
	UpdateStatus(ctx context.Context, id string, status domain.InviteStatus) error
	// DeclinePendingForMember voids all pending invites for a user in one
	// workflow, so a removed member cannot re-enter via a stale invite.
	DeclinePendingForMember(ctx context.Context, workflowID, userID string) error
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}
