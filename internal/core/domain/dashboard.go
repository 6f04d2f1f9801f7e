package domain

// DashboardKind selects which dashboard variant a user lands on.
type DashboardKind string

const (
	DashboardAdmin     DashboardKind = "admin"
	DashboardStaff     DashboardKind = "staff"
	DashboardHomeOwner DashboardKind = "homeowner"
)

// DashboardForRole maps a role to its dashboard.
func DashboardForRole(role string) (DashboardKind, bool) {
	switch role {
	case RoleAdmin:
		return DashboardAdmin, true
	case RoleStaff:
		return DashboardStaff, true
	case RoleHomeOwner:
		return DashboardHomeOwner, true
	}
	return "", false
}

// Dashboard carries the data rendered on a role dashboard. Only the fields
// relevant to Kind are populated.
type Dashboard struct {
	Kind       DashboardKind
	User       *User
	Stats      *UserStats
	Directory  []User
	Activities []Activity
}
