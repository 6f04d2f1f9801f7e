package ports

import (
	"context"

	"github.com/homeowner/portal/internal/core/domain"
)

// UserService is the administrator's view of user accounts.
type UserService interface {
	ListUsers(ctx context.Context) ([]domain.UserSummary, error)
	GetUser(ctx context.Context, id string) (*domain.UserSummary, error)
	CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, profile domain.UserProfile, role string) error
	DeleteUser(ctx context.Context, id string) error
	ChangeRole(ctx context.Context, id, role string) error
	Stats(ctx context.Context) (*domain.UserStats, error)
	UserActivities(ctx context.Context, id string, limit int) ([]domain.Activity, error)
}
