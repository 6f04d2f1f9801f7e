package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/api/metrics"
	"github.com/homeowner/portal/internal/api/middleware"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

const (
	twoFactorCookie     = "portal_2fa"
	defaultTwoFactorTTL = 5 * time.Minute

	msgInvalidLogin     = "Invalid login attempt."
	msgConfirmEmail     = "Please confirm your email before logging in."
	msgUnexpected       = "An unexpected error occurred. Please try again."
	msgInvalidCode      = "Invalid authenticator code."
	msgCodeExpired      = "Your sign-in code has expired. Please log in again."
	msgForgotFailed     = "An error occurred. Please try again."
	msgResetInvalid     = "Unable to reset password. The link is invalid or has expired."
	msgResetDone        = "Your password has been reset. Please sign in."
	msgConfirmFailed    = "Error confirming your email."
	msgUnableToLoadUser = "Unable to load user."
	msgResetCodeMissing = "A code must be supplied for password reset."
)

// SessionCookie names the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	Secure bool
}

// AccountHandler serves the sign-in, registration and recovery pages.
type AccountHandler struct {
	auth   ports.AuthService
	cookie SessionCookie
	log    zerolog.Logger
}

func NewAccountHandler(auth ports.AuthService, cookie SessionCookie, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{auth: auth, cookie: cookie, log: log}
}

// LoginPage handles GET /Account/login.
func (h *AccountHandler) LoginPage(c echo.Context) error {
	page := newPage(c, "Log in")
	page.Form = &loginForm{ReturnURL: safeReturnURL(c.QueryParam("returnUrl"))}
	return render(c, "account/login", page)
}

// Login handles POST /Account/login.
func (h *AccountHandler) Login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	form.ReturnURL = safeReturnURL(form.ReturnURL)

	page := newPage(c, "Log in")
	page.Form = &form
	if err := c.Validate(&form); err != nil {
		if errs, ok := formErrors(err); ok {
			page.Errors = errs
			return render(c, "account/login", page)
		}
		return err
	}

	result, err := h.auth.Login(c.Request().Context(), form.Email, form.Password, form.RememberMe)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		page.Errors = summary(msgInvalidLogin)
		return render(c, "account/login", page)
	case errors.Is(err, domain.ErrEmailNotConfirmed):
		metrics.LoginAttemptsTotal.WithLabelValues("unconfirmed").Inc()
		page.Errors = summary(msgConfirmEmail)
		return render(c, "account/login", page)
	case errors.Is(err, domain.ErrLockedOut):
		metrics.LoginAttemptsTotal.WithLabelValues("locked_out").Inc()
		return seeOther(c, "/Account/lockout")
	case err != nil:
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		h.log.Error().Err(err).Msg("login failed")
		page.Errors = summary(msgUnexpected)
		return render(c, "account/login", page)
	}

	if result.RequiresTwoFactor {
		metrics.LoginAttemptsTotal.WithLabelValues("two_factor").Inc()
		h.setTwoFactorCookie(c, result.Challenge, result.ChallengeTTL)
		q := url.Values{"rememberMe": {strconv.FormatBool(form.RememberMe)}}
		if form.ReturnURL != "" {
			q.Set("returnUrl", form.ReturnURL)
		}
		return seeOther(c, "/Account/login-with-2fa?"+q.Encode())
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	h.setSessionCookie(c, result.Session)
	return seeOther(c, localRedirect(form.ReturnURL))
}

// TwoFactorPage handles GET /Account/login-with-2fa.
func (h *AccountHandler) TwoFactorPage(c echo.Context) error {
	if cookie, err := c.Cookie(twoFactorCookie); err != nil || cookie.Value == "" {
		return c.Redirect(http.StatusFound, middleware.LoginPath)
	}
	remember, _ := strconv.ParseBool(c.QueryParam("rememberMe"))

	page := newPage(c, "Two-factor authentication")
	page.Form = &twoFactorForm{
		RememberMe: remember,
		ReturnURL:  safeReturnURL(c.QueryParam("returnUrl")),
	}
	return render(c, "account/login_2fa", page)
}

// TwoFactor handles POST /Account/login-with-2fa. A challenge allows a single
// attempt; a wrong code sends the user back to the login form.
func (h *AccountHandler) TwoFactor(c echo.Context) error {
	var form twoFactorForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	form.ReturnURL = safeReturnURL(form.ReturnURL)

	cookie, err := c.Cookie(twoFactorCookie)
	if err != nil || cookie.Value == "" {
		setFlash(c, flashError, msgCodeExpired)
		return seeOther(c, middleware.LoginPath)
	}

	page := newPage(c, "Two-factor authentication")
	page.Form = &form
	if err := c.Validate(&form); err != nil {
		if errs, ok := formErrors(err); ok {
			page.Errors = errs
			return render(c, "account/login_2fa", page)
		}
		return err
	}

	result, err := h.auth.VerifyTwoFactor(c.Request().Context(), cookie.Value, form.Code, form.RememberMe)
	h.clearCookie(c, twoFactorCookie)
	switch {
	case errors.Is(err, domain.ErrLockedOut):
		metrics.AccountFlowsTotal.WithLabelValues("two_factor", "failure").Inc()
		return seeOther(c, "/Account/lockout")
	case errors.Is(err, domain.ErrInvalidCredentials):
		metrics.AccountFlowsTotal.WithLabelValues("two_factor", "failure").Inc()
		setFlash(c, flashError, msgInvalidCode)
		return seeOther(c, middleware.LoginPath)
	case errors.Is(err, domain.ErrInvalidToken):
		metrics.AccountFlowsTotal.WithLabelValues("two_factor", "failure").Inc()
		setFlash(c, flashError, msgCodeExpired)
		return seeOther(c, middleware.LoginPath)
	case err != nil:
		metrics.AccountFlowsTotal.WithLabelValues("two_factor", "failure").Inc()
		return err
	}

	metrics.AccountFlowsTotal.WithLabelValues("two_factor", "success").Inc()
	h.setSessionCookie(c, result.Session)
	return seeOther(c, localRedirect(form.ReturnURL))
}

// Logout handles POST /Account/logout. Failures are logged and surface on
// the error page.
func (h *AccountHandler) Logout(c echo.Context) error {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return seeOther(c, "/")
	}
	if err := h.auth.Logout(c.Request().Context(), principal); err != nil {
		h.log.Error().Err(err).Str("user_id", principal.UserID).Msg("logout failed")
		return err
	}
	h.clearCookie(c, h.cookie.Name)
	return seeOther(c, "/")
}

// RegisterPage handles GET /Account/register.
func (h *AccountHandler) RegisterPage(c echo.Context) error {
	page := newPage(c, "Register")
	page.Form = &registerForm{}
	return render(c, "account/register", page)
}

// Register handles POST /Account/register.
func (h *AccountHandler) Register(c echo.Context) error {
	var form registerForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	page := newPage(c, "Register")
	page.Form = &form
	if err := c.Validate(&form); err != nil {
		if errs, ok := formErrors(err); ok {
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			page.Errors = errs
			return render(c, "account/register", page)
		}
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), form.registration())
	if err != nil {
		if errs, ok := formErrors(err); ok {
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			page.Errors = errs
			return render(c, "account/register", page)
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		h.log.Error().Err(err).Msg("registration failed")
		page.Errors = summary(msgUnexpected)
		return render(c, "account/register", page)
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return seeOther(c, "/Account/register-confirmation?email="+url.QueryEscape(user.Email))
}

// RegisterConfirmation handles GET /Account/register-confirmation.
func (h *AccountHandler) RegisterConfirmation(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return c.Redirect(http.StatusFound, "/")
	}
	page := newPage(c, "Register confirmation")
	page.Data = email
	return render(c, "account/register_confirmation", page)
}

// ConfirmEmail handles GET /Account/confirm-email?userId=&code=.
func (h *AccountHandler) ConfirmEmail(c echo.Context) error {
	userID, code := c.QueryParam("userId"), c.QueryParam("code")
	if userID == "" || code == "" {
		return c.Redirect(http.StatusFound, "/")
	}

	err := h.auth.ConfirmEmail(c.Request().Context(), userID, code)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		metrics.AccountFlowsTotal.WithLabelValues("confirm_email", "failure").Inc()
		return echo.NewHTTPError(http.StatusNotFound, msgUnableToLoadUser)
	case errors.Is(err, domain.ErrInvalidToken):
		metrics.AccountFlowsTotal.WithLabelValues("confirm_email", "failure").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, msgConfirmFailed)
	case err != nil:
		metrics.AccountFlowsTotal.WithLabelValues("confirm_email", "failure").Inc()
		return err
	}

	metrics.AccountFlowsTotal.WithLabelValues("confirm_email", "success").Inc()
	return render(c, "account/confirm_email", newPage(c, "Confirm email"))
}

// ForgotPasswordPage handles GET /Account/forgot-password.
func (h *AccountHandler) ForgotPasswordPage(c echo.Context) error {
	page := newPage(c, "Forgot your password?")
	page.Form = &forgotForm{}
	return render(c, "account/forgot_password", page)
}

// ForgotPassword handles POST /Account/forgot-password. Known, unknown and
// unconfirmed addresses all land on the same confirmation page.
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var form forgotForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	page := newPage(c, "Forgot your password?")
	page.Form = &form
	if err := c.Validate(&form); err != nil {
		if errs, ok := formErrors(err); ok {
			page.Errors = errs
			return render(c, "account/forgot_password", page)
		}
		return err
	}

	if err := h.auth.ForgotPassword(c.Request().Context(), form.Email); err != nil {
		metrics.AccountFlowsTotal.WithLabelValues("forgot_password", "failure").Inc()
		h.log.Error().Err(err).Msg("forgot password failed")
		page.Errors = summary(msgForgotFailed)
		return render(c, "account/forgot_password", page)
	}

	metrics.AccountFlowsTotal.WithLabelValues("forgot_password", "success").Inc()
	return seeOther(c, "/Account/forgot-password-confirmation")
}

// ForgotPasswordConfirmation handles GET /Account/forgot-password-confirmation.
func (h *AccountHandler) ForgotPasswordConfirmation(c echo.Context) error {
	return render(c, "account/forgot_password_confirmation", newPage(c, "Forgot password confirmation"))
}

// ResetPasswordPage handles GET /Account/reset-password?code=&email=.
func (h *AccountHandler) ResetPasswordPage(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, msgResetCodeMissing)
	}
	page := newPage(c, "Reset password")
	page.Form = &resetForm{Code: code, Email: c.QueryParam("email")}
	return render(c, "account/reset_password", page)
}

// ResetPassword handles POST /Account/reset-password.
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var form resetForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	page := newPage(c, "Reset password")
	page.Form = &form
	if err := c.Validate(&form); err != nil {
		if errs, ok := formErrors(err); ok {
			page.Errors = errs
			return render(c, "account/reset_password", page)
		}
		return err
	}

	err := h.auth.ResetPassword(c.Request().Context(), form.Email, form.Code, form.Password)
	if err != nil {
		metrics.AccountFlowsTotal.WithLabelValues("reset_password", "failure").Inc()
		if errs, ok := formErrors(err); ok {
			page.Errors = errs
			return render(c, "account/reset_password", page)
		}
		if errors.Is(err, domain.ErrInvalidToken) {
			page.Errors = summary(msgResetInvalid)
			return render(c, "account/reset_password", page)
		}
		return err
	}

	metrics.AccountFlowsTotal.WithLabelValues("reset_password", "success").Inc()
	setFlash(c, flashSuccess, msgResetDone)
	return seeOther(c, middleware.LoginPath)
}

// Lockout handles GET /Account/lockout.
func (h *AccountHandler) Lockout(c echo.Context) error {
	return render(c, "account/lockout", newPage(c, "Locked out"))
}

// AccessDenied handles GET /Account/access-denied.
func (h *AccountHandler) AccessDenied(c echo.Context) error {
	return render(c, "account/access_denied", newPage(c, "Access denied"))
}

func (h *AccountHandler) setSessionCookie(c echo.Context, s *domain.Session) {
	cookie := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    s.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.Persistent {
		cookie.Expires = s.ExpiresAt
		cookie.MaxAge = int(time.Until(s.ExpiresAt).Seconds())
	}
	c.SetCookie(cookie)
}

func (h *AccountHandler) setTwoFactorCookie(c echo.Context, challenge string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultTwoFactorTTL
	}
	c.SetCookie(&http.Cookie{
		Name:     twoFactorCookie,
		Value:    challenge,
		Path:     "/Account",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AccountHandler) clearCookie(c echo.Context, name string) {
	path := "/"
	if name == twoFactorCookie {
		path = "/Account"
	}
	c.SetCookie(&http.Cookie{Name: name, Value: "", Path: path, MaxAge: -1, HttpOnly: true, Secure: h.cookie.Secure})
}

func localRedirect(returnURL string) string {
	if returnURL == "" {
		return "/"
	}
	return returnURL
}
