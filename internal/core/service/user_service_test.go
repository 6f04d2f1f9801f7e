package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
)

type userFixture struct {
	*authFixture
	users *UserService
}

func newUserFixture() *userFixture {
	f := newAuthFixture(AuthOptions{})
	tracker := NewActivityTracker(f.store, nil, zerolog.Nop())
	svc := NewUserService(f.store, f.store, tracker, f.store, UserServiceOptions{
		ProtectedUsername: "admin@example.com",
		BcryptCost:        4,
	}, zerolog.Nop())
	return &userFixture{authFixture: f, users: svc}
}

func adminCtx() context.Context {
	return audit.WithActor(context.Background(), "admin@example.com")
}

func fieldMessage(t *testing.T, err error, field string) string {
	t.Helper()
	var ve domain.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	return ve.ByField()[field]
}

func TestUserService_ListUsers_OrderedWithRoles(t *testing.T) {
	f := newUserFixture()
	f.seedUser("zed@example.com", true, domain.RoleHomeOwner)
	f.seedUser("amy@example.com", true, domain.RoleStaff)
	gone := f.seedUser("old@example.com", true, domain.RoleHomeOwner)
	gone.IsActive = false
	_ = f.store.Update(context.Background(), gone)

	list, err := f.users.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 active users, got %d", len(list))
	}
	if list[0].User.LastName != "amy" || list[1].User.LastName != "zed" {
		t.Fatalf("expected ordering by last name, got %s, %s", list[0].User.LastName, list[1].User.LastName)
	}
	if list[0].PrimaryRole() != domain.RoleStaff {
		t.Fatalf("expected roles attached, got %v", list[0].Roles)
	}
}

func TestUserService_GetUser_NotFound(t *testing.T) {
	f := newUserFixture()

	if _, err := f.users.GetUser(context.Background(), "nope"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_CreateUser(t *testing.T) {
	f := newUserFixture()

	u, err := f.users.CreateUser(adminCtx(), domain.NewUser{
		Email: "Staff@Example.com", Password: strongPassword, FirstName: "Sam", LastName: "Ray", Role: domain.RoleStaff,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	stored := f.store.raw(u.ID)
	if !stored.EmailConfirmed {
		t.Fatalf("admin-created users are confirmed")
	}
	if stored.CreatedBy != "admin@example.com" {
		t.Fatalf("expected admin as creator, got %q", stored.CreatedBy)
	}
	roles, _ := f.store.RolesOf(context.Background(), u.ID)
	if len(roles) != 1 || roles[0] != domain.RoleStaff {
		t.Fatalf("expected Staff role, got %v", roles)
	}
}

func TestUserService_CreateUser_Validation(t *testing.T) {
	f := newUserFixture()
	f.seedUser("taken@example.com", true, domain.RoleHomeOwner)

	_, err := f.users.CreateUser(adminCtx(), domain.NewUser{
		Email: "taken@example.com", Password: strongPassword, FirstName: "A", LastName: "B", Role: domain.RoleStaff,
	})
	if msg := fieldMessage(t, err, "Email"); msg != "Email already exists" {
		t.Fatalf("unexpected email message %q", msg)
	}

	_, err = f.users.CreateUser(adminCtx(), domain.NewUser{
		Email: "new@example.com", Password: strongPassword, FirstName: "A", LastName: "B", Role: "Janitor",
	})
	if msg := fieldMessage(t, err, "Role"); msg != "Selected role is invalid" {
		t.Fatalf("unexpected role message %q", msg)
	}
}

func TestUserService_CreateUser_RollbackOnRoleFailure(t *testing.T) {
	f := newUserFixture()
	f.store.addToRoleErr = errors.New("constraint violated")

	_, err := f.users.CreateUser(adminCtx(), domain.NewUser{
		Email: "new@example.com", Password: strongPassword, FirstName: "A", LastName: "B", Role: domain.RoleStaff,
	})
	if !errors.Is(err, domain.ErrRoleAssignmentFailed) {
		t.Fatalf("expected ErrRoleAssignmentFailed, got %v", err)
	}
	if exists, _ := f.store.EmailExists(context.Background(), "new@example.com", ""); exists {
		t.Fatalf("expected the user to be rolled back")
	}
}

func TestUserService_UpdateUser(t *testing.T) {
	f := newUserFixture()
	u := f.seedUser("nia@example.com", true, domain.RoleHomeOwner)
	f.seedUser("other@example.com", true, domain.RoleHomeOwner)

	err := f.users.UpdateUser(adminCtx(), u.ID, domain.UserProfile{
		FirstName: "Nia", LastName: "Long", Email: "other@example.com",
	}, "")
	if msg := fieldMessage(t, err, "Email"); msg != "Email already exists" {
		t.Fatalf("unexpected message %q", msg)
	}

	err = f.users.UpdateUser(adminCtx(), u.ID, domain.UserProfile{
		FirstName: "Nia", LastName: "Long", Email: "nia.long@example.com", PropertyAddress: "4 Oak Lane",
	}, domain.RoleHomeOwner)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	stored := f.store.raw(u.ID)
	if stored.Username != "nia.long@example.com" || stored.FirstName != "Nia" || stored.PropertyAddress != "4 Oak Lane" {
		t.Fatalf("unexpected stored user %+v", stored)
	}
	if stored.ModifiedBy != "admin@example.com" {
		t.Fatalf("expected admin as modifier, got %q", stored.ModifiedBy)
	}
	if n := f.store.countType(u.ID, domain.ActivityRoleChanged); n != 0 {
		t.Fatalf("unchanged role must not record a role change")
	}

	if err := f.users.UpdateUser(adminCtx(), u.ID, domain.UserProfile{
		FirstName: "Nia", LastName: "Long", Email: "nia.long@example.com",
	}, domain.RoleStaff); err != nil {
		t.Fatalf("UpdateUser with role: %v", err)
	}
	roles, _ := f.store.RolesOf(context.Background(), u.ID)
	if len(roles) != 1 || roles[0] != domain.RoleStaff {
		t.Fatalf("expected Staff role, got %v", roles)
	}
}

func TestUserService_DeleteUser_SoftDeletes(t *testing.T) {
	f := newUserFixture()
	u := f.seedUser("pat@example.com", true, domain.RoleHomeOwner)

	if err := f.users.DeleteUser(adminCtx(), u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	stored := f.store.raw(u.ID)
	if stored == nil || stored.IsActive {
		t.Fatalf("expected row kept with IsActive=false, got %+v", stored)
	}
	list, _ := f.users.ListUsers(context.Background())
	for _, s := range list {
		if s.User.ID == u.ID {
			t.Fatalf("deactivated user must not be listed")
		}
	}
	if _, err := f.users.GetUser(context.Background(), u.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
	if n := f.store.countType(u.ID, domain.ActivityAccountDeactivated); n != 1 {
		t.Fatalf("expected one deactivation activity, got %d", n)
	}
}

func TestUserService_DeleteUser_ProtectedAdmin(t *testing.T) {
	f := newUserFixture()
	admin := f.seedUser("admin@example.com", true, domain.RoleAdmin)

	if err := f.users.DeleteUser(adminCtx(), admin.ID); !errors.Is(err, domain.ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", err)
	}
	if !f.store.raw(admin.ID).IsActive {
		t.Fatalf("protected admin must stay active")
	}
}

func TestUserService_ProtectedAdmin_EmailIsLocked(t *testing.T) {
	f := newUserFixture()
	admin := f.seedUser("admin@example.com", true, domain.RoleAdmin)

	err := f.users.UpdateUser(adminCtx(), admin.ID, domain.UserProfile{
		FirstName: "Site", LastName: "Admin", Email: "renamed@example.com",
	}, "")
	if msg := fieldMessage(t, err, "Email"); msg != msgProtectedEmail {
		t.Fatalf("unexpected message %q", msg)
	}
	if got := f.store.raw(admin.ID).Username; got != "admin@example.com" {
		t.Fatalf("username must not change, got %q", got)
	}

	if err := f.users.UpdateUser(adminCtx(), admin.ID, domain.UserProfile{
		FirstName: "Site", LastName: "Owner", Email: "ADMIN@example.com",
	}, ""); err != nil {
		t.Fatalf("other profile fields stay editable: %v", err)
	}
	if got := f.store.raw(admin.ID).LastName; got != "Owner" {
		t.Fatalf("expected last name updated, got %q", got)
	}

	if err := f.users.DeleteUser(adminCtx(), admin.ID); !errors.Is(err, domain.ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount after edit, got %v", err)
	}
	if !f.store.raw(admin.ID).IsActive {
		t.Fatalf("protected admin must stay active")
	}
}

func TestUserService_DeleteUser_NotFound(t *testing.T) {
	f := newUserFixture()

	if err := f.users.DeleteUser(adminCtx(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_ChangeRole_LeavesSingleMembership(t *testing.T) {
	f := newUserFixture()
	u := f.seedUser("quin@example.com", true, domain.RoleHomeOwner)
	_ = f.store.AddToRole(context.Background(), u.ID, domain.RoleStaff)

	if err := f.users.ChangeRole(adminCtx(), u.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}

	roles, _ := f.store.RolesOf(context.Background(), u.ID)
	if len(roles) != 1 || roles[0] != domain.RoleAdmin {
		t.Fatalf("expected exactly [Admin], got %v", roles)
	}
	if n := f.store.countType(u.ID, domain.ActivityRoleChanged); n != 1 {
		t.Fatalf("expected one Role Changed activity, got %d", n)
	}

	err := f.users.ChangeRole(adminCtx(), u.ID, "Owner")
	if msg := fieldMessage(t, err, "Role"); msg != "Selected role is invalid" {
		t.Fatalf("unexpected message %q", msg)
	}
	if err := f.users.ChangeRole(adminCtx(), "missing", domain.RoleStaff); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_Stats(t *testing.T) {
	f := newUserFixture()
	f.seedUser("a@example.com", true, domain.RoleAdmin)
	f.seedUser("s@example.com", true, domain.RoleStaff)
	f.seedUser("h1@example.com", true, domain.RoleHomeOwner)
	f.seedUser("h2@example.com", true, domain.RoleHomeOwner)

	stats, err := f.users.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalUsers != 4 || stats.HomeOwners != 2 || stats.Staff != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestUserService_UserActivities(t *testing.T) {
	f := newUserFixture()
	u := f.seedUser("rae@example.com", true, domain.RoleHomeOwner)
	for i := 0; i < 3; i++ {
		if _, err := f.svc.Login(context.Background(), u.Email, strongPassword, false); err != nil {
			t.Fatalf("login: %v", err)
		}
	}

	items, err := f.users.UserActivities(context.Background(), u.ID, 2)
	if err != nil {
		t.Fatalf("UserActivities: %v", err)
	}
	if len(items) != 2 || items[0].ID < items[1].ID {
		t.Fatalf("expected two newest-first entries, got %+v", items)
	}
}

func TestUserService_EnsureUser_Idempotent(t *testing.T) {
	f := newUserFixture()
	in := domain.NewUser{Email: "admin@example.com", Password: strongPassword, FirstName: "Site", LastName: "Admin", Role: domain.RoleAdmin}

	created, err := f.users.EnsureUser(context.Background(), in)
	if err != nil || !created {
		t.Fatalf("expected creation, got %v %v", created, err)
	}
	created, err = f.users.EnsureUser(context.Background(), in)
	if err != nil || created {
		t.Fatalf("expected no-op, got %v %v", created, err)
	}
}
