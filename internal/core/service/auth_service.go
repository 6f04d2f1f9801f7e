package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

const (
	msgEmailRegistered    = "This email is already registered."
	msgRegistrationFailed = "Registration failed. Please try again."
)

// AuthOptions holds the identity settings.
type AuthOptions struct {
	MaxFailedAccessAttempts int
	LockoutDuration         time.Duration
	EmailTokenTTL           time.Duration
	ResetTokenTTL           time.Duration
	TwoFactorTTL            time.Duration
	// AutoConfirmEmail confirms new accounts immediately (development only).
	AutoConfirmEmail bool
	BaseURL          string
	PasswordPolicy   domain.PasswordPolicy
	BcryptCost       int
}

func (o *AuthOptions) defaults() {
	if o.MaxFailedAccessAttempts <= 0 {
		o.MaxFailedAccessAttempts = 5
	}
	if o.LockoutDuration <= 0 {
		o.LockoutDuration = 15 * time.Minute
	}
	if o.EmailTokenTTL <= 0 {
		o.EmailTokenTTL = 24 * time.Hour
	}
	if o.ResetTokenTTL <= 0 {
		o.ResetTokenTTL = time.Hour
	}
	if o.TwoFactorTTL <= 0 {
		o.TwoFactorTTL = 5 * time.Minute
	}
	if o.PasswordPolicy.MinLength == 0 {
		o.PasswordPolicy = domain.DefaultPasswordPolicy()
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Users    ports.UserRepository
	Roles    ports.RoleRepository
	Activity ports.ActivityRecorder
	Tokens   ports.TokenStore
	Sessions ports.SessionStore
	Mailer   ports.Mailer
	Issuer   *SessionIssuer
}

// AuthService implements registration, sign-in and account recovery.
type AuthService struct {
	users    ports.UserRepository
	roles    ports.RoleRepository
	activity ports.ActivityRecorder
	tokens   ports.TokenStore
	sessions ports.SessionStore
	mailer   ports.Mailer
	issuer   *SessionIssuer
	hasher   passwordHasher
	opts     AuthOptions
	log      zerolog.Logger
}

func NewAuthService(deps AuthDeps, opts AuthOptions, log zerolog.Logger) *AuthService {
	opts.defaults()
	return &AuthService{
		users:    deps.Users,
		roles:    deps.Roles,
		activity: deps.Activity,
		tokens:   deps.Tokens,
		sessions: deps.Sessions,
		mailer:   deps.Mailer,
		issuer:   deps.Issuer,
		hasher:   newPasswordHasher(opts.BcryptCost),
		opts:     opts,
		log:      log,
	}
}

// Register creates an unconfirmed HomeOwner account and sends the
// confirmation link.
func (s *AuthService) Register(ctx context.Context, in domain.Registration) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	ctx = audit.DefaultActor(ctx, email)

	if err := s.opts.PasswordPolicy.Validate("Password", in.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, domain.NewValidationError("Email", msgEmailRegistered)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	user := &domain.User{
		ID:                    uuid.NewString(),
		Username:              email,
		Email:                 email,
		PasswordHash:          hash,
		LockoutEnabled:        true,
		IsActive:              true,
		PhoneNumber:           strings.TrimSpace(in.PhoneNumber),
		FirstName:             strings.TrimSpace(in.FirstName),
		LastName:              strings.TrimSpace(in.LastName),
		PropertyAddress:       strings.TrimSpace(in.PropertyAddress),
		EmergencyContactName:  strings.TrimSpace(in.EmergencyContactName),
		EmergencyContactPhone: strings.TrimSpace(in.EmergencyContactPhone),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.NewValidationError("Email", msgEmailRegistered)
		}
		return nil, fmt.Errorf("register: create user: %w", err)
	}

	if err := s.roles.AddToRole(ctx, user.ID, domain.RoleHomeOwner); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("registration role assignment failed, rolling back")
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("user_id", user.ID).Msg("registration rollback failed")
		}
		return nil, domain.NewValidationError("", msgRegistrationFailed)
	}

	if err := s.activity.Record(ctx, user.ID, domain.ActivityRegistration); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	code, err := s.tokens.Issue(ctx, domain.TokenEmailConfirmation, user.ID, s.opts.EmailTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("register: confirmation token: %w", err)
	}

	if s.opts.AutoConfirmEmail {
		if err := s.confirm(ctx, user, code, domain.ActivityEmailAutoConfirmed); err != nil {
			return nil, fmt.Errorf("register: auto-confirm: %w", err)
		}
		s.log.Info().Str("user_id", user.ID).Msg("email auto-confirmed")
	} else {
		link := s.link("/Account/confirm-email", url.Values{"userId": {user.ID}, "code": {code}})
		s.send(ctx, domain.Message{
			To:      user.Email,
			Subject: "Confirm your email",
			Body:    "Please confirm your account by visiting " + link,
		})
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login checks credentials and applies the lockout policy. A second factor,
// when enabled, is reported through LoginResult.RequiresTwoFactor.
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*domain.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if !user.EmailConfirmed {
		return nil, domain.ErrEmailNotConfirmed
	}

	ctx = audit.DefaultActor(ctx, user.Username)
	now := audit.Now(ctx)

	if user.IsLockedOut(now) {
		return nil, domain.ErrLockedOut
	}

	if !s.hasher.Matches(user.PasswordHash, password) {
		return nil, s.registerFailure(ctx, user, now)
	}

	user.AccessFailedCount = 0
	user.LockoutEnd = nil

	if user.TwoFactorEnabled {
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		challenge, err := s.startTwoFactor(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		return &domain.LoginResult{
			User:              user,
			RequiresTwoFactor: true,
			Challenge:         challenge,
			ChallengeTTL:      s.opts.TwoFactorTTL,
		}, nil
	}

	return s.signIn(ctx, user, now, rememberMe)
}

// VerifyTwoFactor completes a sign-in started by Login. Challenges are
// single use.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, challenge, code string, rememberMe bool) (*domain.LoginResult, error) {
	subject, err := s.tokens.Consume(ctx, domain.TokenTwoFactor, challenge)
	if err != nil {
		return nil, err
	}

	userID, want, ok := strings.Cut(subject, ":")
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(code))) != 1 {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("verify two-factor: %w", err)
	}

	ctx = audit.DefaultActor(ctx, user.Username)
	now := audit.Now(ctx)
	if user.IsLockedOut(now) {
		return nil, domain.ErrLockedOut
	}
	return s.signIn(ctx, user, now, rememberMe)
}

// Logout records the sign-out and revokes the session until its expiry.
func (s *AuthService) Logout(ctx context.Context, principal *domain.Principal) error {
	if principal == nil {
		return nil
	}
	ctx = audit.DefaultActor(ctx, principal.Username)

	if err := s.activity.Record(ctx, principal.UserID, domain.ActivityLogout); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.sessions.Revoke(ctx, principal.SessionID, principal.ExpiresAt); err != nil {
		return fmt.Errorf("logout: revoke session: %w", err)
	}

	s.log.Info().Str("user_id", principal.UserID).Msg("user logged out")
	return nil
}

// ConfirmEmail redeems a confirmation code for userID.
func (s *AuthService) ConfirmEmail(ctx context.Context, userID, code string) error {
	if userID == "" || code == "" {
		return domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	ctx = audit.DefaultActor(ctx, user.Username)
	return s.confirm(ctx, user, code, domain.ActivityEmailConfirmed)
}

// ForgotPassword sends a reset link to confirmed accounts. It returns nil
// for unknown and unconfirmed addresses so callers cannot tell them apart.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.log.Debug().Msg("password reset requested for unknown address")
		return nil
	}
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	if !user.EmailConfirmed {
		s.log.Debug().Str("user_id", user.ID).Msg("password reset requested for unconfirmed account")
		return nil
	}

	ctx = audit.DefaultActor(ctx, user.Username)

	code, err := s.tokens.Issue(ctx, domain.TokenPasswordReset, user.ID, s.opts.ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("forgot password: reset token: %w", err)
	}

	link := s.link("/Account/reset-password", url.Values{"email": {user.Email}, "code": {code}})
	s.send(ctx, domain.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body:    "Reset your password by visiting " + link,
	})

	if err := s.activity.Record(ctx, user.ID, domain.ActivityPasswordResetRequested); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// ResetPassword replaces the password of the account that owns code and
// clears any lockout.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, password string) error {
	if err := s.opts.PasswordPolicy.Validate("Password", password); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	subject, err := s.tokens.Consume(ctx, domain.TokenPasswordReset, code)
	if err != nil {
		return err
	}
	if subject != user.ID {
		return domain.ErrInvalidToken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("reset password: hash: %w", err)
	}

	ctx = audit.DefaultActor(ctx, user.Username)
	user.PasswordHash = hash
	user.AccessFailedCount = 0
	user.LockoutEnd = nil
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	if err := s.activity.Record(ctx, user.ID, domain.ActivityPasswordReset); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// Authenticate resolves a session token. Revoked sessions and deactivated
// accounts are rejected with domain.ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if revoked {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	roles, err := s.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("authenticate: roles: %w", err)
	}

	return &domain.Principal{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName(),
		Roles:     roles,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *AuthService) registerFailure(ctx context.Context, user *domain.User, now time.Time) error {
	if !user.LockoutEnabled {
		return domain.ErrInvalidCredentials
	}

	failures, err := s.users.RecordAccessFailure(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("login: record failure: %w", err)
	}
	if failures < s.opts.MaxFailedAccessAttempts {
		return domain.ErrInvalidCredentials
	}

	until := now.Add(s.opts.LockoutDuration)
	if err := s.users.LockOut(ctx, user.ID, until); err != nil {
		return fmt.Errorf("login: lock account: %w", err)
	}
	if err := s.activity.Record(ctx, user.ID, domain.ActivityLockedOut); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record lockout")
	}

	s.log.Warn().Str("user_id", user.ID).Time("until", until).Msg("account locked out")
	return domain.ErrLockedOut
}

func (s *AuthService) signIn(ctx context.Context, user *domain.User, now time.Time, rememberMe bool) (*domain.LoginResult, error) {
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if err := s.activity.Record(ctx, user.ID, domain.ActivityLogin); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	session, err := s.issuer.Issue(user, now, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return &domain.LoginResult{User: user, Session: session}, nil
}

func (s *AuthService) startTwoFactor(ctx context.Context, user *domain.User) (string, error) {
	code, err := sixDigitCode()
	if err != nil {
		return "", fmt.Errorf("two-factor code: %w", err)
	}
	challenge, err := s.tokens.Issue(ctx, domain.TokenTwoFactor, user.ID+":"+code, s.opts.TwoFactorTTL)
	if err != nil {
		return "", fmt.Errorf("two-factor challenge: %w", err)
	}

	s.send(ctx, domain.Message{
		To:      user.Email,
		Subject: "Your sign-in code",
		Body:    "Your sign-in code is " + code,
	})
	return challenge, nil
}

func (s *AuthService) confirm(ctx context.Context, user *domain.User, code, activity string) error {
	subject, err := s.tokens.Consume(ctx, domain.TokenEmailConfirmation, code)
	if err != nil {
		return err
	}
	if subject != user.ID {
		return domain.ErrInvalidToken
	}

	if !user.EmailConfirmed {
		user.EmailConfirmed = true
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("confirm email: %w", err)
		}
	}

	return s.activity.Record(ctx, user.ID, activity)
}

// send delivers msg; delivery failures are logged and never fail the flow.
func (s *AuthService) send(ctx context.Context, msg domain.Message) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to send mail")
	}
}

func (s *AuthService) link(path string, q url.Values) string {
	return s.opts.BaseURL + path + "?" + q.Encode()
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
