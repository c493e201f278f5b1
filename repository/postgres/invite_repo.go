package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
)

type inviteRepository struct {
	pool *pgxpool.Pool
}

// NewInviteRepository returns a Postgres-backed implementation of InviteRepository.
func NewInviteRepository(pool *pgxpool.Pool) repository.InviteRepository {
	return &inviteRepository{pool: pool}
}

const inviteColumns = `
	id, workflow_id, workflow_name, invited_by, invited_by_email, invited_by_name,
	invited_user, invited_user_email, status, created_at, updated_at`

func (r *inviteRepository) GetByID(ctx context.Context, id string) (*domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM workflow_invites WHERE id = $1`
	return scanInvite(r.pool.QueryRow(ctx, query, id))
}

func (r *inviteRepository) ListPendingForUser(ctx context.Context, userID string) ([]domain.Invite, error) {
	query := `
	SELECT ` + inviteColumns + `
	FROM workflow_invites
	WHERE invited_user = $1 AND status = $2
	ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID, domain.InvitePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, *invite)
	}
	return invites, rows.Err()
}

func (r *inviteRepository) FindPending(ctx context.Context, workflowID, userID string) (*domain.Invite, error) {
	query := `
	SELECT ` + inviteColumns + `
	FROM workflow_invites
	WHERE workflow_id = $1 AND invited_user = $2 AND status = $3
	LIMIT 1
	`
	return scanInvite(r.pool.QueryRow(ctx, query, workflowID, userID, domain.InvitePending))
}

func (r *inviteRepository) Create(ctx context.Context, invite *domain.Invite) (*domain.Invite, error) {
	if invite == nil {
		return nil, domain.ErrInvalidPayload
	}
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO workflow_invites
		(id, workflow_id, workflow_name, invited_by, invited_by_email, invited_by_name,
		 invited_user, invited_user_email, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		invite.ID,
		invite.WorkflowID,
		invite.WorkflowName,
		invite.InvitedBy,
		invite.InvitedByEmail,
		invite.InvitedByName,
		invite.InvitedUser,
		invite.InvitedUserEmail,
		invite.Status,
	).Scan(&invite.CreatedAt, &invite.UpdatedAt); err != nil {
		return nil, err
	}
	return invite, nil
}

func (r *inviteRepository) UpdateStatus(ctx context.Context, id string, status domain.InviteStatus) error {
	const query = `
	UPDATE workflow_invites
	SET status = $2, updated_at = NOW()
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInviteNotFound
	}
	return nil
}

func (r *inviteRepository) DeclinePendingForMember(ctx context.Context, workflowID, userID string) error {
	const query = `
	UPDATE workflow_invites
	SET status = $3, updated_at = NOW()
	WHERE workflow_id = $1 AND invited_user = $2 AND status = $4
	`
	_, err := r.pool.Exec(ctx, query, workflowID, userID, domain.InviteDeclined, domain.InvitePending)
	return err
}

func (r *inviteRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM workflow_invites WHERE workflow_id = $1`, workflowID)
	return err
}

func scanInvite(row pgx.Row) (*domain.Invite, error) {
	var invite domain.Invite
	if err := row.Scan(
		&invite.ID,
		&invite.WorkflowID,
		&invite.WorkflowName,
		&invite.InvitedBy,
		&invite.InvitedByEmail,
		&invite.InvitedByName,
		&invite.InvitedUser,
		&invite.InvitedUserEmail,
		&invite.Status,
		&invite.CreatedAt,
		&invite.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInviteNotFound
		}
		return nil, err
	}
	return &invite, nil
}
