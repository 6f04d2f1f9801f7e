package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

const recentActivityLimit = 10

// DashboardService routes a signed-in user to the dashboard of their first role.
type DashboardService struct {
	users   ports.UserRepository
	roles   ports.RoleRepository
	history ports.ActivityRepository
	log     zerolog.Logger
}

func NewDashboardService(users ports.UserRepository, roles ports.RoleRepository, history ports.ActivityRepository, log zerolog.Logger) *DashboardService {
	return &DashboardService{users: users, roles: roles, history: history, log: log}
}

// Resolve loads the dashboard for principal. Users without a recognised
// role get domain.ErrAccessDenied.
func (s *DashboardService) Resolve(ctx context.Context, principal *domain.Principal) (*domain.Dashboard, error) {
	if principal == nil {
		return nil, domain.ErrAccessDenied
	}

	roles, err := s.roles.RolesOf(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: roles: %w", err)
	}
	if len(roles) == 0 {
		return nil, domain.ErrAccessDenied
	}

	kind, ok := domain.DashboardForRole(roles[0])
	if !ok {
		s.log.Warn().Str("user_id", principal.UserID).Str("role", roles[0]).Msg("unrecognised role")
		return nil, domain.ErrAccessDenied
	}

	user, err := s.users.FindByID(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	d := &domain.Dashboard{Kind: kind, User: user}

	switch kind {
	case domain.DashboardAdmin:
		stats, err := loadStats(ctx, s.users)
		if err != nil {
			return nil, err
		}
		d.Stats = stats
	case domain.DashboardStaff:
		owners, err := s.users.ListActiveInRole(ctx, domain.RoleHomeOwner)
		if err != nil {
			return nil, fmt.Errorf("dashboard: directory: %w", err)
		}
		d.Directory = owners
	case domain.DashboardHomeOwner:
		items, err := s.history.ListByUser(ctx, user.ID, recentActivityLimit)
		if err != nil {
			return nil, fmt.Errorf("dashboard: activities: %w", err)
		}
		d.Activities = items
	}

	return d, nil
}
