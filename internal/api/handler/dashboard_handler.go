package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/homeowner/portal/internal/api/middleware"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

// DashboardHandler serves the landing page and the role dashboards.
type DashboardHandler struct {
	dashboards ports.DashboardService
}

func NewDashboardHandler(dashboards ports.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Home handles GET /.
func (h *DashboardHandler) Home(c echo.Context) error {
	return render(c, "home", newPage(c, "Home"))
}

// Dashboard handles GET /Dashboard and renders the dashboard of the user's
// first role.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	d, err := h.dashboards.Resolve(c.Request().Context(), middleware.PrincipalFrom(c))
	if errors.Is(err, domain.ErrAccessDenied) {
		return c.Redirect(http.StatusFound, middleware.AccessDeniedPath)
	}
	if err != nil {
		return err
	}

	page := newPage(c, "Dashboard")
	page.Data = d
	return render(c, "dashboard/"+string(d.Kind), page)
}
