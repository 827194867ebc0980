package services

import (
	"context"

	"github.com/tasktrack/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	ListByRole(ctx context.Context, role types.Role) ([]types.User, error)
	ListByAdmin(ctx context.Context, adminID int) ([]types.User, error)
	CountByRole(ctx context.Context, role types.Role) (int, error)
	CountByAdmin(ctx context.Context, adminID int) (int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int, expectedRole types.Role) error
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) ListByRole(ctx context.Context, role types.Role) ([]types.User, error) {
	return s.repo.ListByRole(ctx, role)
}

func (s *UserService) ListByAdmin(ctx context.Context, adminID int) ([]types.User, error) {
	return s.repo.ListByAdmin(ctx, adminID)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

func (s *UserService) Update(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Update(ctx, user)
}

// Delete removes the account only if it has the expected role; a
// mismatch surfaces as store.ErrNotFound.
func (s *UserService) Delete(ctx context.Context, id int, expectedRole types.Role) error {
	return s.repo.Delete(ctx, id, expectedRole)
}
