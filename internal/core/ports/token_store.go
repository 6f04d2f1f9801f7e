package ports

import (
	"context"
	"time"

	"github.com/homeowner/portal/internal/core/domain"
)

// TokenStore issues single-use tokens bound to a subject.
type TokenStore interface {
	Issue(ctx context.Context, purpose domain.TokenPurpose, subject string, ttl time.Duration) (string, error)
	// Consume returns the subject and invalidates the token. Unknown or
	// expired tokens yield domain.ErrInvalidToken.
	Consume(ctx context.Context, purpose domain.TokenPurpose, token string) (string, error)
}

// SessionStore tracks revoked session ids until they would have expired.
type SessionStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Mailer delivers outbound messages.
type Mailer interface {
	Send(ctx context.Context, msg domain.Message) error
}
