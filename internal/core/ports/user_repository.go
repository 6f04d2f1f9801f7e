package ports

import (
	"context"
	"time"

	"github.com/homeowner/portal/internal/core/domain"
)

// UserRepository persists users. Lookups and lists only see active users;
// EmailExists also sees deactivated ones so addresses are never reused.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	// Delete removes the row outright. Only used to roll back a failed creation.
	Delete(ctx context.Context, id string) error
	// RecordAccessFailure increments the failed sign-in counter in the store
	// and returns the new value, so concurrent failures are all counted.
	RecordAccessFailure(ctx context.Context, id string) (int, error)
	// LockOut sets the lockout end and resets the failed sign-in counter.
	LockOut(ctx context.Context, id string, until time.Time) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	EmailExists(ctx context.Context, email, excludeID string) (bool, error)
	ListActive(ctx context.Context) ([]domain.User, error)
	ListActiveInRole(ctx context.Context, role string) ([]domain.User, error)
	CountActive(ctx context.Context) (int, error)
	CountActiveInRole(ctx context.Context, role string) (int, error)
}

// RoleRepository manages the fixed role set and memberships.
type RoleRepository interface {
	EnsureRoles(ctx context.Context, names ...string) error
	RoleExists(ctx context.Context, name string) (bool, error)
	// RolesOf returns role names in precedence order.
	RolesOf(ctx context.Context, userID string) ([]string, error)
	RolesFor(ctx context.Context, userIDs []string) (map[string][]string, error)
	AddToRole(ctx context.Context, userID, role string) error
	// ReplaceRoles leaves exactly one membership, role, in one transaction.
	ReplaceRoles(ctx context.Context, userID, role string) error
}
