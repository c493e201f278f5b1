package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `
	id, workflow_id, title, description, priority, due_date, assigned_members, status,
	created_by, status_updates, completion_message, completed_by, completed_at,
	confirmed_by, confirmed_at, credits_awarded, feedback_for_completer, feedback_from,
	feedback_at, is_deleted, deleted_by, deleted_at, created_at, updated_at`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

func (r *taskRepository) ListActive(ctx context.Context, workflowID string) ([]domain.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE workflow_id = $1 AND NOT is_deleted
	ORDER BY created_at DESC
	`
	return r.list(ctx, query, workflowID)
}

func (r *taskRepository) ListCompleted(ctx context.Context, workflowID string, limit, offset int) ([]domain.Task, error) {
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE workflow_id = $1 AND NOT is_deleted AND status = $2
	ORDER BY confirmed_at DESC NULLS LAST, updated_at DESC
	LIMIT $3 OFFSET $4
	`
	return r.list(ctx, query, workflowID, domain.TaskCompleted, clampLimit(limit), offset)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, workflow_id, title, description, priority, due_date, assigned_members, status, created_by, status_updates)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.WorkflowID,
		task.Title,
		task.Description,
		task.Priority,
		task.DueDate,
		task.AssignedMembers,
		task.Status,
		task.CreatedBy,
		marshalStatusUpdates(task.StatusUpdates),
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		priority = $4,
		due_date = $5,
		assigned_members = $6,
		status = $7,
		status_updates = $8,
		completion_message = $9,
		completed_by = $10,
		completed_at = $11,
		feedback_for_completer = $12,
		feedback_from = $13,
		feedback_at = $14,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Priority,
		task.DueDate,
		task.AssignedMembers,
		task.Status,
		marshalStatusUpdates(task.StatusUpdates),
		task.CompletionMessage,
		task.CompletedBy,
		task.CompletedAt,
		task.FeedbackForCompleter,
		task.FeedbackFrom,
		task.FeedbackAt,
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}
	return nil
}

// ConfirmCompletion is the compare-and-set closing the concurrent
// double-confirmation race: the UPDATE only matches while confirmed_by is
// still NULL, so exactly one caller observes rows affected.
func (r *taskRepository) ConfirmCompletion(ctx context.Context, taskID string, conf domain.Confirmation) (bool, error) {
	const query = `
	UPDATE tasks
	SET status = $2,
		confirmed_by = $3,
		confirmed_at = $4,
		credits_awarded = $5,
		feedback_for_completer = $6,
		feedback_from = $7,
		feedback_at = $8,
		updated_at = NOW()
	WHERE id = $1 AND confirmed_by IS NULL AND NOT is_deleted
	`
	tag, err := r.pool.Exec(ctx, query,
		taskID,
		domain.TaskCompleted,
		conf.ConfirmedBy,
		conf.ConfirmedAt,
		conf.AwardCredits,
		nullString(conf.Feedback),
		nullString(conf.FeedbackFrom),
		conf.FeedbackAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *taskRepository) SoftDelete(ctx context.Context, taskID, deletedBy string, at time.Time) error {
	const query = `
	UPDATE tasks
	SET is_deleted = TRUE,
		deleted_by = $2,
		deleted_at = $3,
		updated_at = NOW()
	WHERE id = $1 AND NOT is_deleted
	`
	tag, err := r.pool.Exec(ctx, query, taskID, deletedBy, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) Stats(ctx context.Context, workflowID string, reference time.Time) (domain.WorkflowStats, error) {
	const query = `
	SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = $2),
		COUNT(*) FILTER (WHERE status = $3),
		COUNT(*) FILTER (WHERE due_date IS NOT NULL AND due_date < $4 AND status NOT IN ($2, $5))
	FROM tasks
	WHERE workflow_id = $1 AND NOT is_deleted
	`
	var stats domain.WorkflowStats
	if err := r.pool.QueryRow(ctx, query,
		workflowID,
		domain.TaskCompleted,
		domain.TaskPending,
		reference,
		domain.TaskCancelled,
	).Scan(
		&stats.TotalTasks,
		&stats.CompletedTasks,
		&stats.PendingTasks,
		&stats.OverdueTasks,
	); err != nil {
		return domain.WorkflowStats{}, err
	}
	return stats, nil
}

func (r *taskRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE workflow_id = $1`, workflowID)
	return err
}

func (r *taskRepository) list(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task          domain.Task
		statusUpdates []byte
		completedBy   *string
		confirmedBy   *string
		feedback      *string
		feedbackFrom  *string
		deletedBy     *string
		completionMsg *string
	)

	if err := row.Scan(
		&task.ID,
		&task.WorkflowID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.DueDate,
		&task.AssignedMembers,
		&task.Status,
		&task.CreatedBy,
		&statusUpdates,
		&completionMsg,
		&completedBy,
		&task.CompletedAt,
		&confirmedBy,
		&task.ConfirmedAt,
		&task.CreditsAwarded,
		&feedback,
		&feedbackFrom,
		&task.FeedbackAt,
		&task.IsDeleted,
		&deletedBy,
		&task.DeletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.StatusUpdates = unmarshalStatusUpdates(statusUpdates)
	task.CompletionMessage = deref(completionMsg)
	task.CompletedBy = deref(completedBy)
	task.ConfirmedBy = deref(confirmedBy)
	task.FeedbackForCompleter = deref(feedback)
	task.FeedbackFrom = deref(feedbackFrom)
	task.DeletedBy = deref(deletedBy)
	return &task, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
