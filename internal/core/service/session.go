package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/homeowner/portal/internal/core/domain"
)

// sessionClaims is the payload of the session cookie.
type sessionClaims struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Persistent bool   `json:"persistent,omitempty"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies HS256 session tokens.
type SessionIssuer struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
}

// NewSessionIssuer returns an issuer. ttl applies to browser sessions,
// rememberTTL to "remember me" sign-ins.
func NewSessionIssuer(secret string, ttl, rememberTTL time.Duration) *SessionIssuer {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if rememberTTL <= 0 {
		rememberTTL = 14 * 24 * time.Hour
	}
	return &SessionIssuer{secret: []byte(secret), ttl: ttl, rememberTTL: rememberTTL}
}

// Issue signs a new session for user.
func (s *SessionIssuer) Issue(user *domain.User, now time.Time, persistent bool) (*domain.Session, error) {
	ttl := s.ttl
	if persistent {
		ttl = s.rememberTTL
	}
	exp := now.Add(ttl)
	id := uuid.NewString()

	claims := sessionClaims{
		Username:   user.Username,
		Email:      user.Email,
		Persistent: persistent,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	return &domain.Session{Token: token, ID: id, ExpiresAt: exp, Persistent: persistent}, nil
}

// Parse verifies the signature and expiry of token.
func (s *SessionIssuer) Parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, errors.Join(domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
