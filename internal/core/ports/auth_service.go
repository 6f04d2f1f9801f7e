package ports

import (
	"context"

	"github.com/homeowner/portal/internal/core/domain"
)

// AuthService drives the account flows: sign-up, sign-in, email
// confirmation and password recovery.
type AuthService interface {
	Register(ctx context.Context, in domain.Registration) (*domain.User, error)
	Login(ctx context.Context, email, password string, rememberMe bool) (*domain.LoginResult, error)
	VerifyTwoFactor(ctx context.Context, challenge, code string, rememberMe bool) (*domain.LoginResult, error)
	Logout(ctx context.Context, principal *domain.Principal) error
	ConfirmEmail(ctx context.Context, userID, code string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, password string) error
}

// SessionAuthenticator resolves a session token into a principal.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}

// DashboardService picks the dashboard for the signed-in user.
type DashboardService interface {
	Resolve(ctx context.Context, principal *domain.Principal) (*domain.Dashboard, error)
}

// Authorizer answers role/resource/action questions.
type Authorizer interface {
	Allowed(roles []string, resource, action string) (bool, error)
}
