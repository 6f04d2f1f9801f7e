package cmd

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
	"github.com/homeowner/portal/internal/core/service"
	bunstore "github.com/homeowner/portal/internal/infrastructure/db/bun"
	"github.com/homeowner/portal/pkg/logger"
)

func openDB(ctx context.Context) (*bun.DB, error) {
	db, err := bunstore.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func passwordPolicy() domain.PasswordPolicy {
	p := domain.DefaultPasswordPolicy()
	p.MinLength = cfg.Identity.PasswordMinLength
	return p
}

// repositories are the bun-backed stores plus the activity tracker on top of
// them. archive may be nil.
type repositories struct {
	users      *bunstore.UserRepository
	roles      *bunstore.RoleRepository
	activities *bunstore.ActivityRepository
	tracker    *service.ActivityTracker
}

func newRepositories(db *bun.DB, archive ports.ActivityArchive) repositories {
	activities := bunstore.NewActivityRepository(db)
	return repositories{
		users:      bunstore.NewUserRepository(db),
		roles:      bunstore.NewRoleRepository(db),
		activities: activities,
		tracker:    service.NewActivityTracker(activities, archive, logger.Component("activity")),
	}
}

func (r repositories) userService() *service.UserService {
	return service.NewUserService(r.users, r.roles, r.tracker, r.activities, service.UserServiceOptions{
		ProtectedUsername: cfg.Admin.Username,
		PasswordPolicy:    passwordPolicy(),
		BcryptCost:        cfg.Identity.BcryptCost,
	}, logger.Component("users"))
}

// seedAdmin creates the configured administrator unless the address is taken.
func seedAdmin(ctx context.Context, users *service.UserService) (bool, error) {
	return users.EnsureUser(ctx, domain.NewUser{
		Email:     cfg.Admin.Username,
		Password:  cfg.Admin.Password,
		FirstName: cfg.Admin.FirstName,
		LastName:  cfg.Admin.LastName,
		Role:      domain.RoleAdmin,
	})
}
