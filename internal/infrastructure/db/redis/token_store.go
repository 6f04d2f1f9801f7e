package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homeowner/portal/internal/core/domain"
)

const tokenBytes = 32

// TokenStore keeps single-use tokens for email confirmation, password reset
// and sign-in challenges. Consuming a token deletes it atomically.
// Key format: token:<purpose>:<token>
type TokenStore struct {
	client redis.Cmdable
}

// NewTokenStore creates a TokenStore wrapping the given Redis client.
func NewTokenStore(client redis.Cmdable) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) Issue(ctx context.Context, purpose domain.TokenPurpose, subject string, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, tokenKey(purpose, token), subject, ttl).Err(); err != nil {
		return "", fmt.Errorf("store %s token: %w", purpose, err)
	}
	return token, nil
}

func (s *TokenStore) Consume(ctx context.Context, purpose domain.TokenPurpose, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidToken
	}
	subject, err := s.client.GetDel(ctx, tokenKey(purpose, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrInvalidToken
		}
		return "", fmt.Errorf("consume %s token: %w", purpose, err)
	}
	return subject, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func tokenKey(purpose domain.TokenPurpose, token string) string {
	return fmt.Sprintf("token:%s:%s", purpose, token)
}
