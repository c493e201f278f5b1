// Package directory exposes read-only user lookup used for member search and
// snapshot enrichment.
package directory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
)

const defaultSearchLimit = 20

type UseCase struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func New(users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{users: users, logger: logger}
}

// Search finds users whose name or email matches the query text.
func (uc *UseCase) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("q", "search query is required")
	}
	if limit <= 0 || limit > 100 {
		limit = defaultSearchLimit
	}
	return uc.users.Search(ctx, query, limit)
}

// Lookup returns one user by id.
func (uc *UseCase) Lookup(ctx context.Context, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", "user id is required")
	}
	return uc.users.GetByID(ctx, id)
}
