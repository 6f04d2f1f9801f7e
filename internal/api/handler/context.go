package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/homeowner/portal/internal/api/middleware"
	"github.com/homeowner/portal/internal/api/view"
	"github.com/homeowner/portal/internal/core/domain"
)

const csrfKey = "csrf"

// newPage fills the parts of view.Page every template relies on: the
// signed-in principal, the CSRF token and any pending flash message.
func newPage(c echo.Context, title string) view.Page {
	token, _ := c.Get(csrfKey).(string)
	return view.Page{
		Title:     title,
		Principal: middleware.PrincipalFrom(c),
		CSRF:      token,
		Flash:     takeFlash(c),
	}
}

func render(c echo.Context, name string, page view.Page) error {
	return c.Render(http.StatusOK, name, page)
}

// formErrors extracts field messages from a validation failure.
func formErrors(err error) (map[string]string, bool) {
	var ve domain.ValidationErrors
	if errors.As(err, &ve) {
		return ve.ByField(), true
	}
	return nil, false
}

// summary wraps msg as a form-level error.
func summary(msg string) map[string]string {
	return map[string]string{"": msg}
}

// safeReturnURL only lets local paths through so the login form cannot be
// used as an open redirect.
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	return raw
}

// seeOther redirects after a successful POST.
func seeOther(c echo.Context, location string) error {
	return c.Redirect(http.StatusSeeOther, location)
}
