package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
)

type workflowRepository struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository returns a Postgres-backed implementation of
// WorkflowRepository. Members live in their own table and are loaded with
// the workflow.
func NewWorkflowRepository(pool *pgxpool.Pool) repository.WorkflowRepository {
	return &workflowRepository{pool: pool}
}

func (r *workflowRepository) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	const query = `
	SELECT id, name, description, priority, status, created_by, estimated_members, created_at, updated_at
	FROM workflows
	WHERE id = $1
	`
	wf, err := scanWorkflow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	members, err := r.loadMembers(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	wf.Members = members
	return wf, nil
}

func (r *workflowRepository) ListByMember(ctx context.Context, userID string) ([]domain.Workflow, error) {
	const query = `
	SELECT w.id, w.name, w.description, w.priority, w.status, w.created_by, w.estimated_members, w.created_at, w.updated_at
	FROM workflows w
	JOIN workflow_members m ON m.workflow_id = w.id
	WHERE m.user_id = $1
	ORDER BY w.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range workflows {
		members, err := r.loadMembers(ctx, workflows[i].ID)
		if err != nil {
			return nil, err
		}
		workflows[i].Members = members
	}
	return workflows, nil
}

func (r *workflowRepository) Create(ctx context.Context, wf *domain.Workflow) (*domain.Workflow, error) {
	if wf == nil {
		return nil, domain.ErrInvalidPayload
	}
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const query = `
	INSERT INTO workflows (id, name, description, priority, status, created_by, estimated_members)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		wf.ID,
		wf.Name,
		wf.Description,
		wf.Priority,
		wf.Status,
		wf.CreatedBy,
		wf.EstimatedMembers,
	).Scan(&wf.CreatedAt, &wf.UpdatedAt); err != nil {
		return nil, err
	}

	for i := range wf.Members {
		if err := insertMember(ctx, tx, wf.ID, wf.Members[i]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return wf, nil
}

func (r *workflowRepository) Update(ctx context.Context, wf *domain.Workflow) error {
	if wf == nil {
		return domain.ErrInvalidPayload
	}
	const query = `
	UPDATE workflows
	SET name = $2,
		description = $3,
		priority = $4,
		status = $5,
		estimated_members = $6,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		wf.ID,
		wf.Name,
		wf.Description,
		wf.Priority,
		wf.Status,
		wf.EstimatedMembers,
	).Scan(&wf.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrWorkflowNotFound
		}
		return err
	}
	return nil
}

func (r *workflowRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkflowNotFound
	}
	return nil
}

func (r *workflowRepository) AddMember(ctx context.Context, workflowID string, member domain.Member) error {
	return insertMember(ctx, r.pool, workflowID, member)
}

func (r *workflowRepository) RemoveMember(ctx context.Context, workflowID, userID string) error {
	const query = `DELETE FROM workflow_members WHERE workflow_id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, workflowID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *workflowRepository) UpdateMemberPermissions(ctx context.Context, workflowID, userID string, perms domain.Permissions) error {
	const query = `
	UPDATE workflow_members
	SET can_create_tasks = $3,
		can_assign_tasks = $4,
		assignable_members = $5
	WHERE workflow_id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		workflowID,
		userID,
		perms.CanCreateTasks,
		perms.CanAssignTasks,
		perms.AssignableMembers,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *workflowRepository) IncrementCredits(ctx context.Context, workflowID, userID string, delta int) error {
	const query = `
	UPDATE workflow_members
	SET credits = credits + $3
	WHERE workflow_id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query, workflowID, userID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *workflowRepository) loadMembers(ctx context.Context, workflowID string) ([]domain.Member, error) {
	const query = `
	SELECT user_id, email, first_name, last_name, role, invite_status,
	       can_create_tasks, can_assign_tasks, assignable_members, credits, joined_at
	FROM workflow_members
	WHERE workflow_id = $1
	ORDER BY joined_at
	`
	rows, err := r.pool.Query(ctx, query, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		var assignable []string
		if err := rows.Scan(
			&m.UserID,
			&m.Email,
			&m.FirstName,
			&m.LastName,
			&m.Role,
			&m.InviteStatus,
			&m.Permissions.CanCreateTasks,
			&m.Permissions.CanAssignTasks,
			&assignable,
			&m.Credits,
			&m.JoinedAt,
		); err != nil {
			return nil, err
		}
		if assignable == nil {
			assignable = []string{}
		}
		m.Permissions.AssignableMembers = assignable
		members = append(members, m)
	}
	return members, rows.Err()
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertMember(ctx context.Context, db execer, workflowID string, m domain.Member) error {
	const query = `
	INSERT INTO workflow_members
		(workflow_id, user_id, email, first_name, last_name, role, invite_status,
		 can_create_tasks, can_assign_tasks, assignable_members, credits, joined_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := db.Exec(ctx, query,
		workflowID,
		m.UserID,
		m.Email,
		m.FirstName,
		m.LastName,
		m.Role,
		m.InviteStatus,
		m.Permissions.CanCreateTasks,
		m.Permissions.CanAssignTasks,
		m.Permissions.AssignableMembers,
		m.Credits,
		m.JoinedAt,
	)
	return err
}

func scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	if err := row.Scan(
		&wf.ID,
		&wf.Name,
		&wf.Description,
		&wf.Priority,
		&wf.Status,
		&wf.CreatedBy,
		&wf.EstimatedMembers,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, err
	}
	return &wf, nil
}
