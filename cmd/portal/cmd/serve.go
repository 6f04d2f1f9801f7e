package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/homeowner/portal/docs"
	"github.com/homeowner/portal/internal/api"
	"github.com/homeowner/portal/internal/api/handler"
	"github.com/homeowner/portal/internal/core/authz"
	"github.com/homeowner/portal/internal/core/ports"
	"github.com/homeowner/portal/internal/core/service"
	bunstore "github.com/homeowner/portal/internal/infrastructure/db/bun"
	mongostore "github.com/homeowner/portal/internal/infrastructure/db/mongo"
	redisstore "github.com/homeowner/portal/internal/infrastructure/db/redis"
	"github.com/homeowner/portal/internal/infrastructure/http/handlers"
	"github.com/homeowner/portal/internal/infrastructure/mail"
	"github.com/homeowner/portal/internal/infrastructure/queue"
	"github.com/homeowner/portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portal web server",
	Long:  `Connects to the database, Redis and the optional activity archive, then serves the portal until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Component("serve")
		ctx := context.Background()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			group, err := bunstore.Migrate(ctx, db)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if group.ID != 0 {
				log.Info().Int64("group", group.ID).Msg("applied migration group")
			}
		}

		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()

		checks := map[string]handlers.Check{
			"database": db.PingContext,
			"redis":    redisstore.Check(rdb),
		}

		// The archive stays a nil interface when Mongo is not configured.
		var archive ports.ActivityArchive
		workersCtx, stopWorkers := context.WithCancel(context.Background())
		defer stopWorkers()
		var dispatcher *queue.ArchiveDispatcher
		if cfg.Mongo.URI != "" {
			store, err := mongostore.Connect(ctx, mongostore.Config{
				URI:      cfg.Mongo.URI,
				Database: cfg.Mongo.Database,
			})
			if err != nil {
				return fmt.Errorf("failed to connect to mongo: %w", err)
			}
			defer func() {
				if err := store.Close(context.Background()); err != nil {
					log.Warn().Err(err).Msg("mongo disconnect failed")
				}
			}()

			mirror := mongostore.NewActivityArchive(store.DB)
			if err := mirror.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("failed to create archive indexes: %w", err)
			}
			dispatcher = queue.NewArchiveDispatcher(cfg.Mongo.ArchiveWorkers, mirror, logger.Component("archive"))
			dispatcher.Start(workersCtx)
			archive = dispatcher
			checks["mongo"] = store.Ping
		} else {
			log.Info().Msg("MONGO_URI not set, activity archive disabled")
		}

		repos := newRepositories(db, archive)
		users := repos.userService()
		if cfg.Admin.Password != "" {
			created, err := seedAdmin(ctx, users)
			if err != nil {
				return fmt.Errorf("failed to seed administrator: %w", err)
			}
			if created {
				log.Info().Str("username", cfg.Admin.Username).Msg("administrator account created")
			}
		}

		enforcer, err := authz.NewEnforcer(nil)
		if err != nil {
			return err
		}

		issuer := service.NewSessionIssuer(cfg.Session.JWTSecret, cfg.Session.TTL, cfg.Session.RememberMeTTL)
		auth := service.NewAuthService(service.AuthDeps{
			Users:    repos.users,
			Roles:    repos.roles,
			Activity: repos.tracker,
			Tokens:   redisstore.NewTokenStore(rdb),
			Sessions: redisstore.NewSessionStore(rdb),
			Mailer:   mail.NewLogMailer(logger.Component("mail")),
			Issuer:   issuer,
		}, service.AuthOptions{
			MaxFailedAccessAttempts: cfg.Identity.MaxFailedAccessAttempts,
			LockoutDuration:         cfg.Identity.LockoutDuration,
			EmailTokenTTL:           cfg.Identity.EmailTokenTTL,
			ResetTokenTTL:           cfg.Identity.ResetTokenTTL,
			TwoFactorTTL:            cfg.Identity.TwoFactorTTL,
			AutoConfirmEmail:        cfg.IsDevelopment(),
			BaseURL:                 cfg.BaseURL,
			PasswordPolicy:          passwordPolicy(),
			BcryptCost:              cfg.Identity.BcryptCost,
		}, logger.Component("auth"))

		e, err := api.NewRouter(api.Deps{
			Auth:              auth,
			Sessions:          auth,
			Dashboards:        service.NewDashboardService(repos.users, repos.roles, repos.activities, logger.Component("dashboard")),
			Users:             users,
			Authorizer:        enforcer,
			Cookie:            handler.SessionCookie{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure},
			ProtectedUsername: cfg.Admin.Username,
			PasswordPolicy:    passwordPolicy(),
			Checks:            checks,
			Log:               logger.Component("http"),
		})
		if err != nil {
			return err
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.Addr()).Str("env", cfg.Env).Msg("starting server")
			serverErrors <- e.Start(cfg.Addr())
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				_ = e.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
		}

		stopWorkers()
		if dispatcher != nil {
			dispatcher.Wait()
		}
		log.Info().Msg("server stopped")
		return nil
	},
}
