package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

const principalKey = "principal"

const (
	LoginPath        = "/Account/login"
	AccessDeniedPath = "/Account/access-denied"
)

// PrincipalFrom returns the signed-in principal or nil.
func PrincipalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}

// IsAPI reports whether the request targets the JSON API.
func IsAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// Session resolves the session cookie into a principal and makes the
// principal the audit actor for the rest of the request. Requests without a
// valid session continue anonymously; an invalid cookie is cleared.
func Session(auth ports.SessionAuthenticator, cookieName string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			req := c.Request()
			principal, err := auth.Authenticate(req.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidToken) {
					log.Error().Err(err).Str("path", req.URL.Path).Msg("session lookup failed")
				}
				c.SetCookie(&http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
				return next(c)
			}

			c.Set(principalKey, principal)
			c.SetRequest(req.WithContext(audit.WithActor(req.Context(), principal.Username)))
			return next(c)
		}
	}
}

// RequireAuth rejects anonymous requests: pages redirect to the login form
// with a return URL, API calls get 401.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if PrincipalFrom(c) == nil {
				return challenge(c)
			}
			return next(c)
		}
	}
}

func challenge(c echo.Context) error {
	if IsAPI(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.Redirect(http.StatusFound, LoginPath+"?returnUrl="+url.QueryEscape(c.Request().URL.RequestURI()))
}
