package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	BaseURL  string `env:"BASE_URL,  default=http://localhost:8080"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Session  SessionConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Identity IdentityConfig
	Admin    AdminConfig
}

type SessionConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	TTL           time.Duration `env:"SESSION_TTL,             default=30m"`
	RememberMeTTL time.Duration `env:"SESSION_REMEMBER_ME_TTL, default=336h"`
	CookieName    string        `env:"SESSION_COOKIE_NAME,     default=portal_session"`
	CookieSecure  bool          `env:"SESSION_COOKIE_SECURE,   default=false"`
}

type DatabaseConfig struct {
	// URL is a postgres:// DSN or a SQLite file/memory DSN.
	URL         string `env:"DATABASE_URL,          default=file:portal.db"`
	AutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE, default=true"`
}

// MongoConfig configures the activity archive. An empty URI disables it.
type MongoConfig struct {
	URI            string `env:"MONGO_URI"`
	Database       string `env:"MONGO_DB,        default=homeowner_portal"`
	ArchiveWorkers int    `env:"ARCHIVE_WORKERS, default=4"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	DB       int    `env:"REDIS_DB,       default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

type IdentityConfig struct {
	MaxFailedAccessAttempts int           `env:"IDENTITY_MAX_FAILED_ATTEMPTS, default=5"`
	LockoutDuration         time.Duration `env:"IDENTITY_LOCKOUT_DURATION,    default=15m"`
	EmailTokenTTL           time.Duration `env:"IDENTITY_EMAIL_TOKEN_TTL,     default=24h"`
	ResetTokenTTL           time.Duration `env:"IDENTITY_RESET_TOKEN_TTL,     default=1h"`
	TwoFactorTTL            time.Duration `env:"IDENTITY_TWO_FACTOR_TTL,      default=5m"`
	PasswordMinLength       int           `env:"IDENTITY_PASSWORD_MIN_LENGTH, default=8"`
	BcryptCost              int           `env:"IDENTITY_BCRYPT_COST,         default=10"`
}

// AdminConfig describes the seeded administrator. Its username can never be
// deactivated from the admin console.
type AdminConfig struct {
	Username  string `env:"ADMIN_USERNAME,   default=admin@homeowner.local"`
	Password  string `env:"ADMIN_PASSWORD"`
	FirstName string `env:"ADMIN_FIRST_NAME, default=Site"`
	LastName  string `env:"ADMIN_LAST_NAME,  default=Administrator"`
}

// IsDevelopment reports whether the portal runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate checks settings envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if !c.IsDevelopment() && len(c.Session.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes outside development"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Identity.MaxFailedAccessAttempts <= 0 {
		errs = append(errs, errors.New("IDENTITY_MAX_FAILED_ATTEMPTS must be positive"))
	}
	if c.Identity.PasswordMinLength < 6 {
		errs = append(errs, errors.New("IDENTITY_PASSWORD_MIN_LENGTH must be at least 6"))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	return errors.Join(errs...)
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(context.Background(), envconfig.OsLookuper())
}

// LoadFrom builds a Config from lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
