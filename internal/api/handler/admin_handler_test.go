package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/domain"
)

const adminUsername = "admin@homeowner.local"

func summaryFor(id, email string, roles ...string) *domain.UserSummary {
	return &domain.UserSummary{
		User:  domain.User{ID: id, Username: email, Email: email, FirstName: "Jane", LastName: "Doe", IsActive: true},
		Roles: roles,
	}
}

func withID(c echo.Context, id string) {
	c.SetParamNames("id")
	c.SetParamValues(id)
}

func TestAdminHandler_CreateUser(t *testing.T) {
	values := url.Values{
		"Email":           {"sam@example.com"},
		"FirstName":       {"Sam"},
		"LastName":        {"Staff"},
		"Password":        {"Secret#123"},
		"ConfirmPassword": {"Secret#123"},
		"Role":            {domain.RoleStaff},
	}

	t.Run("success flashes and redirects", func(t *testing.T) {
		e, _ := newTestEcho()
		stub := &stubUserService{
			createFn: func(ctx context.Context, in domain.NewUser) (*domain.User, error) {
				if in.Email != "sam@example.com" || in.Role != domain.RoleStaff {
					t.Fatalf("unexpected input %+v", in)
				}
				return &domain.User{ID: "u2", Email: in.Email}, nil
			},
		}
		h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
		c, rec := postForm(e, "/Admin/CreateUser", values)

		if err := h.CreateUser(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if loc := rec.Header().Get(echo.HeaderLocation); loc != "/Admin" {
			t.Fatalf("unexpected redirect %q", loc)
		}

		next, _ := getPage(e, "/Admin")
		next.Request().AddCookie(cookieFrom(rec, flashCookie))
		if got := takeFlash(next).Success; got != "User sam@example.com created successfully with role Staff" {
			t.Fatalf("unexpected flash %q", got)
		}
	})

	t.Run("service validation is shown on the form", func(t *testing.T) {
		e, r := newTestEcho()
		stub := &stubUserService{
			createFn: func(ctx context.Context, in domain.NewUser) (*domain.User, error) {
				return nil, domain.NewValidationError("Email", "Email already exists")
			},
		}
		h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
		c, _ := postForm(e, "/Admin/CreateUser", values)

		if err := h.CreateUser(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if r.name != "admin/create" || r.page.FieldError("Email") != "Email already exists" {
			t.Fatalf("unexpected render %q %v", r.name, r.page.Errors)
		}
	})

	t.Run("rolled back creation shows a summary", func(t *testing.T) {
		e, r := newTestEcho()
		stub := &stubUserService{
			createFn: func(ctx context.Context, in domain.NewUser) (*domain.User, error) {
				return nil, fmt.Errorf("%w: %s", domain.ErrRoleAssignmentFailed, "Failed to assign role. User creation rolled back.")
			},
		}
		h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
		c, _ := postForm(e, "/Admin/CreateUser", values)

		if err := h.CreateUser(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if got := r.page.SummaryError(); got != "Failed to assign role. User creation rolled back." {
			t.Fatalf("unexpected summary %q", got)
		}
	})
}

func TestAdminHandler_Edit(t *testing.T) {
	values := url.Values{
		"Email":     {"jane@example.com"},
		"FirstName": {"Janet"},
		"LastName":  {"Doe"},
		"Role":      {domain.RoleStaff},
	}

	t.Run("updates profile and role", func(t *testing.T) {
		e, _ := newTestEcho()
		stub := &stubUserService{
			updateFn: func(ctx context.Context, id string, p domain.UserProfile, role string) error {
				if id != "42" || p.FirstName != "Janet" || role != domain.RoleStaff {
					t.Fatalf("unexpected args %s %+v %s", id, p, role)
				}
				return nil
			},
		}
		h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
		c, rec := postForm(e, "/Admin/Edit/42", values)
		withID(c, "42")

		if err := h.Edit(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/Admin" {
			t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
		}
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		e, _ := newTestEcho()
		stub := &stubUserService{
			updateFn: func(ctx context.Context, id string, p domain.UserProfile, role string) error {
				return domain.ErrUserNotFound
			},
		}
		h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
		c, _ := postForm(e, "/Admin/Edit/99", values)
		withID(c, "99")

		var he *echo.HTTPError
		err := h.Edit(c)
		if !errors.As(err, &he) || he.Code != http.StatusNotFound || he.Message != "User with ID 99 not found" {
			t.Fatalf("expected 404, got %v", err)
		}
	})

	t.Run("edit page prefills the form", func(t *testing.T) {
		e, r := newTestEcho()
		stub := &stubUserService{
			getFn: func(ctx context.Context, id string) (*domain.UserSummary, error) {
				return summaryFor(id, "jane@example.com", domain.RoleHomeOwner), nil
			},
		}
		h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
		c, _ := getPage(e, "/Admin/Edit/42")
		withID(c, "42")

		if err := h.EditPage(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		form, ok := r.page.Form.(*editUserForm)
		if !ok || form.ID != "42" || form.Role != domain.RoleHomeOwner {
			t.Fatalf("unexpected form %+v", r.page.Form)
		}
	})
}

func TestAdminHandler_DeleteProtectedAccount(t *testing.T) {
	t.Run("confirmation page refuses", func(t *testing.T) {
		e, r := newTestEcho()
		stub := &stubUserService{
			getFn: func(ctx context.Context, id string) (*domain.UserSummary, error) {
				return summaryFor(id, adminUsername, domain.RoleAdmin), nil
			},
		}
		h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
		c, rec := getPage(e, "/Admin/Delete/1")
		withID(c, "1")

		if err := h.DeletePage(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if r.name != "" {
			t.Fatalf("confirmation page should not render, got %q", r.name)
		}
		if rec.Header().Get(echo.HeaderLocation) != "/Admin" || cookieFrom(rec, flashCookie) == nil {
			t.Fatalf("expected redirect with flash")
		}
	})

	t.Run("post is refused by the service", func(t *testing.T) {
		e, _ := newTestEcho()
		stub := &stubUserService{
			deleteFn: func(ctx context.Context, id string) error { return domain.ErrProtectedAccount },
		}
		h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
		c, rec := postForm(e, "/Admin/Delete/1", url.Values{})
		withID(c, "1")

		if err := h.Delete(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		next, _ := getPage(e, "/Admin")
		next.Request().AddCookie(cookieFrom(rec, flashCookie))
		if got := takeFlash(next).Error; got != msgCannotDeleteMain {
			t.Fatalf("unexpected flash %q", got)
		}
	})
}

func TestAdminHandler_Delete(t *testing.T) {
	e, _ := newTestEcho()
	var deleted string
	stub := &stubUserService{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
	c, rec := postForm(e, "/Admin/Delete/7", url.Values{})
	withID(c, "7")

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if deleted != "7" {
		t.Fatalf("expected user 7 to be deleted, got %q", deleted)
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
}

func TestAdminHandler_Activities(t *testing.T) {
	e, r := newTestEcho()
	stub := &stubUserService{
		getFn: func(ctx context.Context, id string) (*domain.UserSummary, error) {
			return summaryFor(id, "jane@example.com", domain.RoleHomeOwner), nil
		},
		activitiesFn: func(ctx context.Context, id string, limit int) ([]domain.Activity, error) {
			if limit != adminActivityLimit {
				t.Fatalf("unexpected limit %d", limit)
			}
			return []domain.Activity{{ID: 1, UserID: id, Type: domain.ActivityLogin}}, nil
		},
	}
	h := NewAdminHandler(stub, adminUsername, zerolog.Nop())
	c, _ := getPage(e, "/Admin/Activities/42")
	withID(c, "42")

	if err := h.Activities(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data, ok := r.page.Data.(userActivities)
	if !ok || len(data.Activities) != 1 || data.User.User.ID != "42" {
		t.Fatalf("unexpected data %+v", r.page.Data)
	}
}
