package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/api/handler"
	"github.com/homeowner/portal/internal/api/middleware"
	"github.com/homeowner/portal/internal/api/view"
	"github.com/homeowner/portal/internal/core/authz"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
	infrahttp "github.com/homeowner/portal/internal/infrastructure/http"
	"github.com/homeowner/portal/internal/infrastructure/http/handlers"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Auth       ports.AuthService
	Sessions   ports.SessionAuthenticator
	Dashboards ports.DashboardService
	Users      ports.UserService
	Authorizer ports.Authorizer

	Cookie            handler.SessionCookie
	ProtectedUsername string
	PasswordPolicy    domain.PasswordPolicy

	// Checks feed the readiness probe.
	Checks map[string]handlers.Check
	// Registry receives the HTTP metrics; nil means the default registry.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) (*echo.Echo, error) {
	renderer, err := view.New()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = handler.NewValidator(d.PasswordPolicy)
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.SecureHeaders())
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portal",
		Registerer: registerer,
	}))
	e.Use(echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
		TokenLookup:    "form:_csrf,header:X-CSRF-Token",
		ContextKey:     "csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   d.Cookie.Secure,
		CookieSameSite: http.SameSiteStrictMode,
	}))
	e.Use(middleware.Session(d.Sessions, d.Cookie.Name, d.Log))

	// --- Operational endpoints (no session required) ---
	infrahttp.RegisterOps(e, d.Checks, gatherer)

	// --- Account pages ---
	account := handler.NewAccountHandler(d.Auth, d.Cookie, d.Log)
	acct := e.Group("/Account")
	acct.GET("/login", account.LoginPage)
	acct.POST("/login", account.Login)
	acct.GET("/login-with-2fa", account.TwoFactorPage)
	acct.POST("/login-with-2fa", account.TwoFactor)
	acct.POST("/logout", account.Logout, middleware.RequireAuth())
	acct.GET("/register", account.RegisterPage)
	acct.POST("/register", account.Register)
	acct.GET("/register-confirmation", account.RegisterConfirmation)
	acct.GET("/confirm-email", account.ConfirmEmail)
	acct.GET("/forgot-password", account.ForgotPasswordPage)
	acct.POST("/forgot-password", account.ForgotPassword)
	acct.GET("/forgot-password-confirmation", account.ForgotPasswordConfirmation)
	acct.GET("/reset-password", account.ResetPasswordPage)
	acct.POST("/reset-password", account.ResetPassword)
	acct.GET("/lockout", account.Lockout)
	acct.GET("/access-denied", account.AccessDenied)

	// --- Dashboards ---
	dashboards := handler.NewDashboardHandler(d.Dashboards)
	e.GET("/", dashboards.Home)
	e.GET("/Dashboard", dashboards.Dashboard,
		middleware.Authorize(d.Authorizer, authz.ResourceDashboard, authz.ActionRead))

	// --- Admin console ---
	admin := handler.NewAdminHandler(d.Users, d.ProtectedUsername, d.Log)
	canWrite := middleware.Authorize(d.Authorizer, authz.ResourceAdminConsole, authz.ActionWrite)
	console := e.Group("/Admin", middleware.Authorize(d.Authorizer, authz.ResourceAdminConsole, authz.ActionRead))
	console.GET("", admin.Index)
	console.GET("/Dashboard", admin.Dashboard)
	console.GET("/CreateUser", admin.CreateUserPage)
	console.POST("/CreateUser", admin.CreateUser, canWrite)
	console.GET("/Edit/:id", admin.EditPage)
	console.POST("/Edit/:id", admin.Edit, canWrite)
	console.GET("/Delete/:id", admin.DeletePage)
	console.POST("/Delete/:id", admin.Delete, canWrite)
	console.GET("/Activities/:id", admin.Activities)

	// --- JSON API ---
	userAPI := handler.NewUserAPIHandler(d.Users)
	v1 := e.Group("/api/v1")
	v1.GET("/me", userAPI.Me, middleware.Authorize(d.Authorizer, authz.ResourceProfile, authz.ActionRead))

	users := v1.Group("/users", middleware.Authorize(d.Authorizer, authz.ResourceUsersAPI, authz.ActionRead))
	users.GET("", userAPI.List)
	users.GET("/:id", userAPI.Get)
	users.GET("/:id/activities", userAPI.Activities)
	users.PUT("/:id/role", userAPI.ChangeRole,
		middleware.Authorize(d.Authorizer, authz.ResourceUsersAPI, authz.ActionWrite))

	return e, nil
}
