package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/homeowner/portal/internal/api/metrics"
	"github.com/homeowner/portal/internal/api/middleware"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 200
)

// UserAPIHandler exposes user administration as JSON.
type UserAPIHandler struct {
	users ports.UserService
}

func NewUserAPIHandler(users ports.UserService) *UserAPIHandler {
	return &UserAPIHandler{users: users}
}

// --- Request / Response types ---

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type userResponse struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	FirstName             string     `json:"first_name"`
	LastName              string     `json:"last_name"`
	PhoneNumber           string     `json:"phone_number,omitempty"`
	PropertyAddress       string     `json:"property_address,omitempty"`
	EmergencyContactName  string     `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string     `json:"emergency_contact_phone,omitempty"`
	EmailConfirmed        bool       `json:"email_confirmed"`
	TwoFactorEnabled      bool       `json:"two_factor_enabled"`
	Roles                 []string   `json:"roles"`
	LastLoginAt           *time.Time `json:"last_login_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	CreatedBy             string     `json:"created_by"`
	ModifiedAt            time.Time  `json:"modified_at"`
	ModifiedBy            string     `json:"modified_by"`
}

type userListResponse struct {
	Users []userResponse `json:"users"`
	Total int            `json:"total"`
}

type activityResponse struct {
	ID        int64     `json:"id"`
	Type      string    `json:"activity_type"`
	Time      time.Time `json:"activity_time"`
	CreatedBy string    `json:"created_by"`
}

type activityListResponse struct {
	UserID     string             `json:"user_id"`
	Activities []activityResponse `json:"activities"`
}

func toUserResponse(s domain.UserSummary) userResponse {
	u := s.User
	roles := s.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		PhoneNumber:           u.PhoneNumber,
		PropertyAddress:       u.PropertyAddress,
		EmergencyContactName:  u.EmergencyContactName,
		EmergencyContactPhone: u.EmergencyContactPhone,
		EmailConfirmed:        u.EmailConfirmed,
		TwoFactorEnabled:      u.TwoFactorEnabled,
		Roles:                 roles,
		LastLoginAt:           u.LastLoginAt,
		CreatedAt:             u.CreatedAt,
		CreatedBy:             u.CreatedBy,
		ModifiedAt:            u.ModifiedAt,
		ModifiedBy:            u.ModifiedBy,
	}
}

// List handles GET /api/v1/users.
//
// @Summary      List active users
// @Tags         users
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  userListResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/v1/users [get]
func (h *UserAPIHandler) List(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, userListResponse{Users: out, Total: len(out)})
}

// Get handles GET /api/v1/users/:id.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Security     SessionCookie
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/users/{id} [get]
func (h *UserAPIHandler) Get(c echo.Context) error {
	u, err := h.users.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*u))
}

// ChangeRole handles PUT /api/v1/users/:id/role.
//
// @Summary      Replace the role of a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        X-CSRF-Token  header    string             true  "CSRF token"
// @Param        id            path      string             true  "User id"
// @Param        body          body      changeRoleRequest  true  "New role"
// @Success      200           {object}  userResponse
// @Failure      400           {object}  errorResponse
// @Failure      404           {object}  errorResponse
// @Failure      422           {object}  errorResponse
// @Router       /api/v1/users/{id}/role [put]
func (h *UserAPIHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	if err := h.users.ChangeRole(ctx, id, req.Role); err != nil {
		metrics.AdminOperationsTotal.WithLabelValues("change_role", "failure").Inc()
		return err
	}
	metrics.AdminOperationsTotal.WithLabelValues("change_role", "success").Inc()

	u, err := h.users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*u))
}

// Activities handles GET /api/v1/users/:id/activities.
//
// @Summary      Recent activity of a user
// @Tags         users
// @Produce      json
// @Security     SessionCookie
// @Param        id     path      string   true   "User id"
// @Param        limit  query     integer  false  "Maximum entries (default 20, max 200)"
// @Success      200    {object}  activityListResponse
// @Failure      400    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /api/v1/users/{id}/activities [get]
func (h *UserAPIHandler) Activities(c echo.Context) error {
	limit := defaultActivityLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxActivityLimit)
	}

	id := c.Param("id")
	items, err := h.users.UserActivities(c.Request().Context(), id, limit)
	if err != nil {
		return err
	}

	out := make([]activityResponse, 0, len(items))
	for _, a := range items {
		out = append(out, activityResponse{ID: a.ID, Type: a.Type, Time: a.Time, CreatedBy: a.CreatedBy})
	}
	return c.JSON(http.StatusOK, activityListResponse{UserID: id, Activities: out})
}

// Me handles GET /api/v1/me.
//
// @Summary      The signed-in user
// @Tags         users
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/v1/me [get]
func (h *UserAPIHandler) Me(c echo.Context) error {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	u, err := h.users.GetUser(c.Request().Context(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*u))
}

// errorResponse documents the JSON error envelope.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
