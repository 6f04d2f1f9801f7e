package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/homeowner/portal/internal/core/authz"
	"github.com/homeowner/portal/internal/core/domain"
)

func TestAuthorize(t *testing.T) {
	enforcer, err := authz.NewEnforcer(authz.DefaultPolicy)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}

	admin := &domain.Principal{UserID: "a", Roles: []string{domain.RoleAdmin}}
	staff := &domain.Principal{UserID: "s", Roles: []string{domain.RoleStaff}}

	tests := []struct {
		name         string
		path         string
		principal    *domain.Principal
		resource     string
		action       string
		wantStatus   int
		wantLocation string
	}{
		{"admin reaches console", "/Admin", admin, authz.ResourceAdminConsole, authz.ActionRead, http.StatusOK, ""},
		{"staff is denied console", "/Admin", staff, authz.ResourceAdminConsole, authz.ActionRead, http.StatusFound, AccessDeniedPath},
		{"staff is denied api", "/api/v1/users", staff, authz.ResourceUsersAPI, authz.ActionRead, http.StatusForbidden, ""},
		{"admin writes api", "/api/v1/users/1/role", admin, authz.ResourceUsersAPI, authz.ActionWrite, http.StatusOK, ""},
		{"staff reads dashboard", "/Dashboard", staff, authz.ResourceDashboard, authz.ActionRead, http.StatusOK, ""},
		{"anonymous is challenged", "/Admin", nil, authz.ResourceAdminConsole, authz.ActionRead, http.StatusFound, "/Account/login?returnUrl=%2FAdmin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, tt.path, nil), rec)
			if tt.principal != nil {
				c.Set(principalKey, tt.principal)
			}

			handler := Authorize(enforcer, tt.resource, tt.action)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})
			if err := handler(c); err != nil {
				e.HTTPErrorHandler(err, c)
			}

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get(echo.HeaderLocation); got != tt.wantLocation {
				t.Fatalf("expected location %q, got %q", tt.wantLocation, got)
			}
		})
	}
}
