package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	RoleAdmin     = "Admin"
	RoleStaff     = "Staff"
	RoleHomeOwner = "HomeOwner"
)

// Roles lists the fixed role set in precedence order.
var Roles = []string{RoleAdmin, RoleStaff, RoleHomeOwner}

// IsKnownRole reports whether role is one of the fixed roles.
func IsKnownRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SortRoles orders names by precedence; unknown names sort last.
func SortRoles(names []string) {
	rank := func(name string) int {
		for i, r := range Roles {
			if r == name {
				return i
			}
		}
		return len(Roles)
	}
	sort.SliceStable(names, func(i, j int) bool { return rank(names[i]) < rank(names[j]) })
}

// User models a person with an account on the portal.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	EmailConfirmed    bool       `json:"email_confirmed"`
	PhoneNumber       string     `json:"phone_number,omitempty"`
	TwoFactorEnabled  bool       `json:"two_factor_enabled"`
	LockoutEnabled    bool       `json:"lockout_enabled"`
	LockoutEnd        *time.Time `json:"lockout_end,omitempty"`
	AccessFailedCount int        `json:"access_failed_count"`

	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	PropertyAddress       string `json:"property_address,omitempty"`
	EmergencyContactName  string `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string `json:"emergency_contact_phone,omitempty"`

	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by"`
	ModifiedAt time.Time `json:"modified_at"`
	ModifiedBy string    `json:"modified_by"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsLockedOut reports whether the lockout window is still open at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// ApplyProfile copies editable profile fields onto the user. The username
// always follows the email address.
func (u *User) ApplyProfile(p UserProfile) {
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.Email = NormalizeEmail(p.Email)
	u.Username = u.Email
	u.PhoneNumber = p.PhoneNumber
	u.PropertyAddress = p.PropertyAddress
	u.EmergencyContactName = p.EmergencyContactName
	u.EmergencyContactPhone = p.EmergencyContactPhone
}

// UserProfile is the set of fields a user or an administrator may edit.
type UserProfile struct {
	FirstName             string
	LastName              string
	Email                 string
	PhoneNumber           string
	PropertyAddress       string
	EmergencyContactName  string
	EmergencyContactPhone string
}

// Registration is the self-service sign-up input.
type Registration struct {
	Email                 string
	Password              string
	FirstName             string
	LastName              string
	PhoneNumber           string
	PropertyAddress       string
	EmergencyContactName  string
	EmergencyContactPhone string
}

// NewUser is the administrator-driven account creation input.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// UserSummary pairs a user with its role names.
type UserSummary struct {
	User  User     `json:"user"`
	Roles []string `json:"roles"`
}

// PrimaryRole returns the first role or an empty string.
func (s UserSummary) PrimaryRole() string {
	if len(s.Roles) == 0 {
		return ""
	}
	return s.Roles[0]
}

// UserStats backs the admin dashboard counters.
type UserStats struct {
	TotalUsers int `json:"total_users"`
	HomeOwners int `json:"home_owners"`
	Staff      int `json:"staff"`
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
