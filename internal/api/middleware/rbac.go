package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/homeowner/portal/internal/core/ports"
)

// Authorize enforces the access policy for resource and action against the
// principal's roles. Anonymous callers are challenged as in RequireAuth;
// signed-in callers without access are sent to the access-denied page, or
// get 403 on the API.
func Authorize(authorizer ports.Authorizer, resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := PrincipalFrom(c)
			if principal == nil {
				return challenge(c)
			}

			ok, err := authorizer.Allowed(principal.Roles, resource, action)
			if err != nil {
				return err
			}
			if !ok {
				if IsAPI(c) {
					return echo.NewHTTPError(http.StatusForbidden, "forbidden")
				}
				return c.Redirect(http.StatusFound, AccessDeniedPath)
			}
			return next(c)
		}
	}
}
