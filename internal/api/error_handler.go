package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/api/middleware"
	"github.com/homeowner/portal/internal/api/view"
	"github.com/homeowner/portal/internal/core/domain"
)

const msgTryAgain = "An unexpected error occurred. Please try again."

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Answers /api requests with a JSON envelope and everything else with
//     the error page.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, fields := resolveError(err, log, c)

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		if middleware.IsAPI(c) || c.Echo().Renderer == nil {
			_ = c.JSON(code, errorResponse{Error: msg, Fields: fields})
			return
		}

		csrf, _ := c.Get("csrf").(string)
		page := view.Page{
			Title:     "Error",
			Principal: middleware.PrincipalFrom(c),
			CSRF:      csrf,
			Data: view.ErrorData{
				Status:    code,
				Message:   msg,
				RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
			},
		}
		if rerr := c.Render(code, "error", page); rerr != nil {
			log.Error().Err(rerr).Msg("render error page")
			_ = c.String(code, msg)
		}
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, map[string]string) {
	// Echo's own errors (bind failures, 404 from router, CSRF, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			logUnexpected(log, c, err)
			return he.Code, msgTryAgain, nil
		}
		return he.Code, fmt.Sprintf("%v", he.Message), nil
	}

	var ve domain.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, "validation failed", ve.ByField()
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found", nil
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, "access denied", nil
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusBadRequest, "invalid or expired token", nil
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials", nil
	case errors.Is(err, domain.ErrLockedOut):
		return http.StatusLocked, "account locked out", nil
	case errors.Is(err, domain.ErrProtectedAccount):
		return http.StatusConflict, "account is protected", nil
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusConflict, "email already registered", nil
	}

	logUnexpected(log, c, err)
	return http.StatusInternalServerError, msgTryAgain, nil
}

// logUnexpected records the real cause; clients only see a generic message.
func logUnexpected(log zerolog.Logger, c echo.Context, err error) {
	evt := log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
	if p := middleware.PrincipalFrom(c); p != nil {
		evt = evt.Str("user_id", p.UserID)
	}
	evt.Msg("unhandled error")
}
