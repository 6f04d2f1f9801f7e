package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/homeowner/portal/internal/api/view"
	"github.com/homeowner/portal/internal/core/domain"
)

// captureRenderer records the last page rendered instead of executing templates.
type captureRenderer struct {
	name string
	page view.Page
}

func (r *captureRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	r.name = name
	r.page, _ = data.(view.Page)
	_, err := io.WriteString(w, name)
	return err
}

func newTestEcho() (*echo.Echo, *captureRenderer) {
	e := echo.New()
	r := &captureRenderer{}
	e.Renderer = r
	e.Validator = NewValidator(domain.DefaultPasswordPolicy())
	return e, r
}

func postForm(e *echo.Echo, path string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func getPage(e *echo.Echo, path string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), rec), rec
}

func cookieFrom(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- Service stubs ---

type stubAuthService struct {
	registerFn      func(ctx context.Context, in domain.Registration) (*domain.User, error)
	loginFn         func(ctx context.Context, email, password string, rememberMe bool) (*domain.LoginResult, error)
	verifyFn        func(ctx context.Context, challenge, code string, rememberMe bool) (*domain.LoginResult, error)
	logoutFn        func(ctx context.Context, principal *domain.Principal) error
	confirmEmailFn  func(ctx context.Context, userID, code string) error
	forgotFn        func(ctx context.Context, email string) error
	resetPasswordFn func(ctx context.Context, email, code, password string) error
}

func (s *stubAuthService) Register(ctx context.Context, in domain.Registration) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*domain.LoginResult, error) {
	return s.loginFn(ctx, email, password, rememberMe)
}

func (s *stubAuthService) VerifyTwoFactor(ctx context.Context, challenge, code string, rememberMe bool) (*domain.LoginResult, error) {
	return s.verifyFn(ctx, challenge, code, rememberMe)
}

func (s *stubAuthService) Logout(ctx context.Context, principal *domain.Principal) error {
	return s.logoutFn(ctx, principal)
}

func (s *stubAuthService) ConfirmEmail(ctx context.Context, userID, code string) error {
	return s.confirmEmailFn(ctx, userID, code)
}

func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) error {
	return s.forgotFn(ctx, email)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, email, code, password string) error {
	return s.resetPasswordFn(ctx, email, code, password)
}

type stubDashboardService struct {
	resolveFn func(ctx context.Context, principal *domain.Principal) (*domain.Dashboard, error)
}

func (s *stubDashboardService) Resolve(ctx context.Context, principal *domain.Principal) (*domain.Dashboard, error) {
	return s.resolveFn(ctx, principal)
}

type stubUserService struct {
	listFn       func(ctx context.Context) ([]domain.UserSummary, error)
	getFn        func(ctx context.Context, id string) (*domain.UserSummary, error)
	createFn     func(ctx context.Context, in domain.NewUser) (*domain.User, error)
	updateFn     func(ctx context.Context, id string, profile domain.UserProfile, role string) error
	deleteFn     func(ctx context.Context, id string) error
	changeRoleFn func(ctx context.Context, id, role string) error
	statsFn      func(ctx context.Context) (*domain.UserStats, error)
	activitiesFn func(ctx context.Context, id string, limit int) ([]domain.Activity, error)
}

func (s *stubUserService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	return s.listFn(ctx)
}

func (s *stubUserService) GetUser(ctx context.Context, id string) (*domain.UserSummary, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	return s.createFn(ctx, in)
}

func (s *stubUserService) UpdateUser(ctx context.Context, id string, profile domain.UserProfile, role string) error {
	return s.updateFn(ctx, id, profile, role)
}

func (s *stubUserService) DeleteUser(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *stubUserService) ChangeRole(ctx context.Context, id, role string) error {
	return s.changeRoleFn(ctx, id, role)
}

func (s *stubUserService) Stats(ctx context.Context) (*domain.UserStats, error) {
	return s.statsFn(ctx)
}

func (s *stubUserService) UserActivities(ctx context.Context, id string, limit int) ([]domain.Activity, error) {
	return s.activitiesFn(ctx, id, limit)
}
