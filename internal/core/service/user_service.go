package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

const (
	msgEmailExists    = "Email already exists"
	msgInvalidRole    = "Selected role is invalid"
	msgRoleRollback   = "Failed to assign role. User creation rolled back."
	msgProtectedEmail = "The administrator's email address cannot be changed"
)

// UserService implements the administrator's user management operations.
type UserService struct {
	users     ports.UserRepository
	roles     ports.RoleRepository
	activity  ports.ActivityRecorder
	history   ports.ActivityRepository
	hasher    passwordHasher
	policy    domain.PasswordPolicy
	protected string
	log       zerolog.Logger
}

// UserServiceOptions tunes UserService.
type UserServiceOptions struct {
	// ProtectedUsername names the account that can never be deactivated.
	ProtectedUsername string
	PasswordPolicy    domain.PasswordPolicy
	BcryptCost        int
}

// NewUserService returns a UserService.
func NewUserService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	activity ports.ActivityRecorder,
	history ports.ActivityRepository,
	opts UserServiceOptions,
	log zerolog.Logger,
) *UserService {
	if opts.PasswordPolicy.MinLength == 0 {
		opts.PasswordPolicy = domain.DefaultPasswordPolicy()
	}
	return &UserService{
		users:     users,
		roles:     roles,
		activity:  activity,
		history:   history,
		hasher:    newPasswordHasher(opts.BcryptCost),
		policy:    opts.PasswordPolicy,
		protected: domain.NormalizeEmail(opts.ProtectedUsername),
		log:       log,
	}
}

// ListUsers returns active users ordered by last then first name, with roles.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	roles, err := s.roles.RolesFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list users: roles: %w", err)
	}

	out := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, domain.UserSummary{User: u, Roles: roles[u.ID]})
	}
	return out, nil
}

// GetUser returns an active user with roles.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.UserSummary, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.roles.RolesOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: roles: %w", err)
	}
	return &domain.UserSummary{User: *user, Roles: roles}, nil
}

// CreateUser creates a confirmed account with the given role. If the role
// cannot be assigned the account is removed again.
func (s *UserService) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)

	var ve domain.ValidationErrors
	errors.As(s.policy.Validate("Password", in.Password), &ve)
	if !domain.IsKnownRole(in.Role) {
		ve = append(ve, domain.FieldError{Field: "Role", Message: msgInvalidRole})
	}
	exists, err := s.users.EmailExists(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if exists {
		ve = append(ve, domain.FieldError{Field: "Email", Message: msgEmailExists})
	}
	if len(ve) > 0 {
		return nil, ve
	}

	ok, err := s.roles.RoleExists(ctx, in.Role)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if !ok {
		return nil, domain.NewValidationError("Role", msgInvalidRole)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		Username:       email,
		Email:          email,
		PasswordHash:   hash,
		EmailConfirmed: true,
		LockoutEnabled: true,
		IsActive:       true,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.NewValidationError("Email", msgEmailExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.roles.AddToRole(ctx, user.ID, in.Role); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Str("role", in.Role).Msg("role assignment failed, rolling back user")
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("user_id", user.ID).Msg("rollback of created user failed")
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrRoleAssignmentFailed, msgRoleRollback)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", in.Role).Msg("user created")
	return user, nil
}

// EnsureUser creates the account described by in unless the address is
// already taken. It reports whether an account was created.
func (s *UserService) EnsureUser(ctx context.Context, in domain.NewUser) (bool, error) {
	if err := s.roles.EnsureRoles(ctx, domain.Roles...); err != nil {
		return false, fmt.Errorf("ensure roles: %w", err)
	}
	exists, err := s.users.EmailExists(ctx, domain.NormalizeEmail(in.Email), "")
	if err != nil {
		return false, fmt.Errorf("ensure user: %w", err)
	}
	if exists {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateUser edits profile fields and, when role is non-empty and differs
// from the current membership, changes the role.
func (s *UserService) UpdateUser(ctx context.Context, id string, profile domain.UserProfile, role string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if role != "" && !domain.IsKnownRole(role) {
		return domain.NewValidationError("Role", msgInvalidRole)
	}

	email := domain.NormalizeEmail(profile.Email)
	if email != user.Email {
		// the protected account is matched by username, which follows the email
		if s.isProtected(user) {
			return domain.NewValidationError("Email", msgProtectedEmail)
		}
		exists, err := s.users.EmailExists(ctx, email, id)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if exists {
			return domain.NewValidationError("Email", msgEmailExists)
		}
	}

	user.ApplyProfile(profile)
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return domain.NewValidationError("Email", msgEmailExists)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if role == "" {
		return nil
	}
	current, err := s.roles.RolesOf(ctx, id)
	if err != nil {
		return fmt.Errorf("update user: roles: %w", err)
	}
	if len(current) == 1 && current[0] == role {
		return nil
	}
	return s.ChangeRole(ctx, id, role)
}

// DeleteUser deactivates an account. The protected administrator account is
// refused.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if s.isProtected(user) {
		return domain.ErrProtectedAccount
	}

	user.IsActive = false
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if err := s.activity.Record(ctx, id, domain.ActivityAccountDeactivated); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.Info().Str("user_id", id).Msg("user deactivated")
	return nil
}

func (s *UserService) isProtected(user *domain.User) bool {
	return s.protected != "" && strings.EqualFold(user.Username, s.protected)
}

// ChangeRole replaces every membership of the user with role.
func (s *UserService) ChangeRole(ctx context.Context, id, role string) error {
	if !domain.IsKnownRole(role) {
		return domain.NewValidationError("Role", msgInvalidRole)
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return err
	}

	if err := s.roles.ReplaceRoles(ctx, id, role); err != nil {
		if errors.Is(err, domain.ErrInvalidRole) {
			return domain.NewValidationError("Role", msgInvalidRole)
		}
		return fmt.Errorf("change role: %w", err)
	}

	if err := s.activity.Record(ctx, id, domain.ActivityRoleChanged); err != nil {
		return fmt.Errorf("change role: %w", err)
	}

	s.log.Info().Str("user_id", id).Str("role", role).Msg("role changed")
	return nil
}

// Stats counts active users overall and per role.
func (s *UserService) Stats(ctx context.Context) (*domain.UserStats, error) {
	return loadStats(ctx, s.users)
}

// UserActivities returns the most recent activity entries for an active user.
func (s *UserService) UserActivities(ctx context.Context, id string, limit int) ([]domain.Activity, error) {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return nil, err
	}
	items, err := s.history.ListByUser(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("user activities: %w", err)
	}
	return items, nil
}

func loadStats(ctx context.Context, users ports.UserRepository) (*domain.UserStats, error) {
	total, err := users.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: total: %w", err)
	}
	owners, err := users.CountActiveInRole(ctx, domain.RoleHomeOwner)
	if err != nil {
		return nil, fmt.Errorf("stats: home owners: %w", err)
	}
	staff, err := users.CountActiveInRole(ctx, domain.RoleStaff)
	if err != nil {
		return nil, fmt.Errorf("stats: staff: %w", err)
	}
	return &domain.UserStats{TotalUsers: total, HomeOwners: owners, Staff: staff}, nil
}
