package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "dev-secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "portal_session", cfg.Session.CookieName)
	assert.Equal(t, 5, cfg.Identity.MaxFailedAccessAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Identity.LockoutDuration)
	assert.Equal(t, 24*time.Hour, cfg.Identity.EmailTokenTTL)
	assert.Equal(t, 8, cfg.Identity.PasswordMinLength)
	assert.Equal(t, "file:portal.db", cfg.Database.URL)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Empty(t, cfg.Mongo.URI)
	assert.Equal(t, "admin@homeowner.local", cfg.Admin.Username)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":                          "production",
		"JWT_SECRET":                   "0123456789abcdef0123456789abcdef",
		"SESSION_TTL":                  "45m",
		"DATABASE_URL":                 "postgres://portal@db/portal",
		"IDENTITY_MAX_FAILED_ATTEMPTS": "3",
		"MONGO_URI":                    "mongodb://mongo:27017",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "postgres://portal@db/portal", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Identity.MaxFailedAccessAttempts)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
}

func TestLoadFrom_Validation(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")

	_, err = LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV":        "production",
		"JWT_SECRET": "short",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}
