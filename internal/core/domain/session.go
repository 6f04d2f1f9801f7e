package domain

import "time"

// Principal is the authenticated caller resolved from a session token.
type Principal struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Roles     []string  `json:"roles"`
	SessionID string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HasRole reports whether the principal holds role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Session is a signed session token and its expiry.
type Session struct {
	Token      string
	ID         string
	ExpiresAt  time.Time
	Persistent bool
}

// LoginResult is the outcome of a password check that did not fail. Either
// Session is set, or RequiresTwoFactor is true and Challenge identifies the
// pending second-factor step that stays valid for ChallengeTTL.
type LoginResult struct {
	User              *User
	Session           *Session
	RequiresTwoFactor bool
	Challenge         string
	ChallengeTTL      time.Duration
}

// TokenPurpose scopes one-time tokens so a token issued for one flow cannot
// be replayed in another.
type TokenPurpose string

const (
	TokenEmailConfirmation TokenPurpose = "email_confirmation"
	TokenPasswordReset     TokenPurpose = "password_reset"
	TokenTwoFactor         TokenPurpose = "two_factor"
)

// Message is an outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}
