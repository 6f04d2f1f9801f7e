package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/api/metrics"
	"github.com/homeowner/portal/internal/api/middleware"
	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

const (
	adminActivityLimit = 50

	msgUserUpdated      = "User updated successfully"
	msgUserDeleted      = "User deleted successfully"
	msgCannotDeleteMain = "Cannot delete the admin account"
	msgDeleteFailed     = "Failed to delete user"
)

// AdminHandler serves the user management console.
type AdminHandler struct {
	users     ports.UserService
	protected string
	log       zerolog.Logger
}

// NewAdminHandler returns an AdminHandler. protectedUsername is the account
// the console refuses to delete.
func NewAdminHandler(users ports.UserService, protectedUsername string, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{users: users, protected: domain.NormalizeEmail(protectedUsername), log: log}
}

type adminDashboard struct {
	AdminName  string
	LastAccess time.Time
	Stats      *domain.UserStats
}

type userActivities struct {
	User       *domain.UserSummary
	Activities []domain.Activity
}

// Index handles GET /Admin.
func (h *AdminHandler) Index(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	page := newPage(c, "User Management")
	page.Data = users
	return render(c, "admin/index", page)
}

// Dashboard handles GET /Admin/Dashboard.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	stats, err := h.users.Stats(ctx)
	if err != nil {
		return err
	}

	name := ""
	if p := middleware.PrincipalFrom(c); p != nil {
		name = p.FullName
		if name == "" {
			name = p.Username
		}
	}

	page := newPage(c, "Admin Dashboard")
	page.Data = adminDashboard{AdminName: name, LastAccess: audit.Now(ctx), Stats: stats}
	return render(c, "admin/dashboard", page)
}

// CreateUserPage handles GET /Admin/CreateUser.
func (h *AdminHandler) CreateUserPage(c echo.Context) error {
	page := newPage(c, "Create User")
	page.Form = &createUserForm{}
	return render(c, "admin/create", page)
}

// CreateUser handles POST /Admin/CreateUser.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var form createUserForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	page := newPage(c, "Create User")
	page.Form = &form
	if err := c.Validate(&form); err != nil {
		if errs, ok := formErrors(err); ok {
			page.Errors = errs
			return render(c, "admin/create", page)
		}
		return err
	}

	user, err := h.users.CreateUser(c.Request().Context(), domain.NewUser{
		Email:     form.Email,
		Password:  form.Password,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Role:      form.Role,
	})
	if err != nil {
		metrics.AdminOperationsTotal.WithLabelValues("create", "failure").Inc()
		if errs, ok := formErrors(err); ok {
			page.Errors = errs
			return render(c, "admin/create", page)
		}
		if errors.Is(err, domain.ErrRoleAssignmentFailed) {
			page.Errors = summary(strings.TrimPrefix(err.Error(), domain.ErrRoleAssignmentFailed.Error()+": "))
			return render(c, "admin/create", page)
		}
		return err
	}

	metrics.AdminOperationsTotal.WithLabelValues("create", "success").Inc()
	setFlash(c, flashSuccess, fmt.Sprintf("User %s created successfully with role %s", user.Email, form.Role))
	return seeOther(c, "/Admin")
}

// EditPage handles GET /Admin/Edit/:id.
func (h *AdminHandler) EditPage(c echo.Context) error {
	target, err := h.load(c)
	if err != nil {
		return err
	}
	page := newPage(c, "Edit User")
	page.Form = editFormFor(target)
	return render(c, "admin/edit", page)
}

// Edit handles POST /Admin/Edit/:id.
func (h *AdminHandler) Edit(c echo.Context) error {
	var form editUserForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	form.ID = c.Param("id")

	page := newPage(c, "Edit User")
	page.Form = &form
	if err := c.Validate(&form); err != nil {
		if errs, ok := formErrors(err); ok {
			page.Errors = errs
			return render(c, "admin/edit", page)
		}
		return err
	}

	err := h.users.UpdateUser(c.Request().Context(), form.ID, form.profile(), form.Role)
	if err != nil {
		metrics.AdminOperationsTotal.WithLabelValues("update", "failure").Inc()
		if errors.Is(err, domain.ErrUserNotFound) {
			return notFound(form.ID)
		}
		if errs, ok := formErrors(err); ok {
			page.Errors = errs
			return render(c, "admin/edit", page)
		}
		return err
	}

	metrics.AdminOperationsTotal.WithLabelValues("update", "success").Inc()
	setFlash(c, flashSuccess, msgUserUpdated)
	return seeOther(c, "/Admin")
}

// DeletePage handles GET /Admin/Delete/:id.
func (h *AdminHandler) DeletePage(c echo.Context) error {
	target, err := h.load(c)
	if err != nil {
		return err
	}
	if h.isProtected(target.User) {
		setFlash(c, flashError, msgCannotDeleteMain)
		return c.Redirect(http.StatusFound, "/Admin")
	}
	page := newPage(c, "Delete User")
	page.Data = target
	return render(c, "admin/delete", page)
}

// Delete handles POST /Admin/Delete/:id. The account is deactivated, not
// removed.
func (h *AdminHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	err := h.users.DeleteUser(c.Request().Context(), id)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		metrics.AdminOperationsTotal.WithLabelValues("delete", "failure").Inc()
		return notFound(id)
	case errors.Is(err, domain.ErrProtectedAccount):
		metrics.AdminOperationsTotal.WithLabelValues("delete", "failure").Inc()
		setFlash(c, flashError, msgCannotDeleteMain)
	case err != nil:
		metrics.AdminOperationsTotal.WithLabelValues("delete", "failure").Inc()
		h.log.Error().Err(err).Str("user_id", id).Msg("delete user failed")
		setFlash(c, flashError, msgDeleteFailed)
	default:
		metrics.AdminOperationsTotal.WithLabelValues("delete", "success").Inc()
		setFlash(c, flashSuccess, msgUserDeleted)
	}
	return seeOther(c, "/Admin")
}

// Activities handles GET /Admin/Activities/:id.
func (h *AdminHandler) Activities(c echo.Context) error {
	target, err := h.load(c)
	if err != nil {
		return err
	}
	items, err := h.users.UserActivities(c.Request().Context(), target.User.ID, adminActivityLimit)
	if err != nil {
		return err
	}
	page := newPage(c, "User Activity")
	page.Data = userActivities{User: target, Activities: items}
	return render(c, "admin/activities", page)
}

func (h *AdminHandler) load(c echo.Context) (*domain.UserSummary, error) {
	id := c.Param("id")
	target, err := h.users.GetUser(c.Request().Context(), id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, notFound(id)
	}
	return target, err
}

func (h *AdminHandler) isProtected(u domain.User) bool {
	return h.protected != "" && strings.EqualFold(u.Username, h.protected)
}

func notFound(id string) error {
	return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("User with ID %s not found", id))
}
