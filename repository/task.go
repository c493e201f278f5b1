package repository

import (
	"context"
	"time"

	"github.com/taskhive/backend/domain"
)

type TaskRepository interface {
	// GetByID returns the task regardless of its soft-delete flag.
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// ListActive returns the workflow's tasks excluding soft-deleted ones.
	ListActive(ctx context.Context, workflowID string) ([]domain.Task, error)
	ListCompleted(ctx context.Context, workflowID string, limit, offset int) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	// ConfirmCompletion applies the confirmation fields with a compare-and-set
	// on confirmed_by: it reports false when the task was already confirmed,
	// closing the concurrent double-confirmation race.
	ConfirmCompletion(ctx context.Context, taskID string, conf domain.Confirmation) (bool, error)
	SoftDelete(ctx context.Context, taskID, deletedBy string, at time.Time) error
	Stats(ctx context.Context, workflowID string, reference time.Time) (domain.WorkflowStats, error)
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}
