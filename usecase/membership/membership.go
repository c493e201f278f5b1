// Package membership manages workflow invites and the member list: issuing
// invites by email, resolving an invite into a membership on accept, member
// removal, and per-member permission grants.
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
	"github.com/taskhive/backend/usecase/permission"
)

type UseCase struct {
	workflows repository.WorkflowRepository
	invites   repository.InviteRepository
	users     repository.UserRepository
	perms     *permission.Evaluator
	logger    *zap.Logger
	now       func() time.Time
}

func New(
	workflows repository.WorkflowRepository,
	invites repository.InviteRepository,
	users repository.UserRepository,
	perms *permission.Evaluator,
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
		invites:   invites,
		users:     users,
		perms:     perms,
		logger:    logger,
		now:       time.Now,
	}
}

// InviteUser creates a pending invite for the user registered under email.
// It rejects inviting an existing member and duplicate pending invites: at
// most one active invite exists per (workflow, user) pair.
func (uc *UseCase) InviteUser(ctx context.Context, workflowID, actorID, email string) (*domain.Invite, error) {
	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if err := uc.perms.CanManageMembers(wf, actorID); err != nil {
		return nil, err
	}

	inviter, err := uc.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	invited, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if wf.HasMember(invited.ID) {
		return nil, domain.ErrAlreadyMember
	}
	if existing, err := uc.invites.FindPending(ctx, wf.ID, invited.ID); err == nil && existing != nil {
		return nil, domain.ErrDuplicateInvite
	} else if err != nil && !errors.Is(err, domain.ErrInviteNotFound) {
		return nil, err
	}

	now := uc.now()
	invite := &domain.Invite{
		ID:               uuid.NewString(),
		WorkflowID:       wf.ID,
		WorkflowName:     wf.Name,
		InvitedBy:        inviter.ID,
		InvitedByEmail:   inviter.Email,
		InvitedByName:    fmt.Sprintf("%s %s", inviter.FirstName, inviter.LastName),
		InvitedUser:      invited.ID,
		InvitedUserEmail: invited.Email,
		Status:           domain.InvitePending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return uc.invites.Create(ctx, invite)
}

// InviteByEmails issues invites for a batch of addresses, skipping unknown
// users, existing members, and duplicates. It returns the number of invites
// created.
func (uc *UseCase) InviteByEmails(ctx context.Context, workflowID, actorID string, emails []string) (int, error) {
	created := 0
	for _, email := range emails {
		_, err := uc.InviteUser(ctx, workflowID, actorID, email)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrUserNotFound),
			errors.Is(err, domain.ErrAlreadyMember),
			errors.Is(err, domain.ErrDuplicateInvite):
			uc.logger.Debug("invite skipped",
				zap.String("workflow_id", workflowID),
				zap.String("email", email),
				zap.Error(err),
			)
		default:
			return created, err
		}
	}
	return created, nil
}

// Respond resolves a pending invite. Accepting creates the membership with
// default (fully restricted) permissions; declining only records the
// decision — a declined invite never produces a member.
func (uc *UseCase) Respond(ctx context.Context, inviteID, actorID string, accept bool) error {
	invite, err := uc.invites.GetByID(ctx, inviteID)
	if err != nil {
		return err
	}
	if invite.InvitedUser != actorID {
		return domain.ErrInviteNotFound
	}
	if invite.Status != domain.InvitePending {
		return domain.ErrInviteResolved
	}

	if !accept {
		return uc.invites.UpdateStatus(ctx, invite.ID, domain.InviteDeclined)
	}

	wf, err := uc.workflows.GetByID(ctx, invite.WorkflowID)
	if err != nil {
		return err
	}
	if wf.HasMember(actorID) {
		// Stale invite for someone who is already in; resolve it quietly.
		return uc.invites.UpdateStatus(ctx, invite.ID, domain.InviteAccepted)
	}

	user, err := uc.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}

	member := domain.Member{
		UserID:       user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         domain.RoleMember,
		InviteStatus: domain.InviteAccepted,
		Permissions:  domain.DefaultPermissions(),
		JoinedAt:     uc.now(),
	}
	if err := uc.workflows.AddMember(ctx, wf.ID, member); err != nil {
		return err
	}
	return uc.invites.UpdateStatus(ctx, invite.ID, domain.InviteAccepted)
}

// PendingInvites lists the actor's unresolved invites across workflows.
func (uc *UseCase) PendingInvites(ctx context.Context, actorID string) ([]domain.Invite, error) {
	return uc.invites.ListPendingForUser(ctx, actorID)
}

// RemoveMember removes a member (creator-only, never the creator itself) and
// voids any pending invites for them so a stale invite cannot re-admit them.
func (uc *UseCase) RemoveMember(ctx context.Context, workflowID, actorID, memberID string) error {
	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}
	if err := uc.perms.CanRemoveMember(wf, actorID, memberID); err != nil {
		return err
	}
	if !wf.HasMember(memberID) {
		return domain.ErrMemberNotFound
	}

	if err := uc.workflows.RemoveMember(ctx, wf.ID, memberID); err != nil {
		return err
	}
	if err := uc.invites.DeclinePendingForMember(ctx, wf.ID, memberID); err != nil {
		uc.logger.Error("failed to void pending invites for removed member",
			zap.String("workflow_id", wf.ID),
			zap.String("member_id", memberID),
			zap.Error(err),
		)
	}
	return nil
}

// UpdatePermissions replaces one member's grants. Only the creator may do
// this and the creator's own grants are immutable.
func (uc *UseCase) UpdatePermissions(ctx context.Context, workflowID, actorID, memberID string, perms domain.Permissions) error {
	wf, err := uc.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}
	if err := uc.perms.CanUpdatePermissions(wf, actorID, memberID); err != nil {
		return err
	}
	if !wf.HasMember(memberID) {
		return domain.ErrMemberNotFound
	}
	if perms.AssignableMembers == nil {
		perms.AssignableMembers = []string{}
	}
	return uc.workflows.UpdateMemberPermissions(ctx, wf.ID, memberID, perms)
}
