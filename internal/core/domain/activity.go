package domain

import "time"

const (
	ActivityLogin                  = "Login"
	ActivityLogout                 = "Logout"
	ActivityRegistration           = "Registration"
	ActivityEmailAutoConfirmed     = "Email Auto-Confirmed"
	ActivityEmailConfirmed         = "Email Confirmed"
	ActivityPasswordResetRequested = "Password Reset Requested"
	ActivityPasswordReset          = "Password Reset"
	ActivityRoleChanged            = "Role Changed"
	ActivityAccountDeactivated     = "Account Deactivated"
	ActivityLockedOut              = "Locked Out"
)

// Activity is an immutable entry in a user's activity log.
type Activity struct {
	ID     int64     `json:"id"`
	UserID string    `json:"user_id"`
	Type   string    `json:"activity_type"`
	Time   time.Time `json:"activity_time"`

	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by"`
	ModifiedAt time.Time `json:"modified_at"`
	ModifiedBy string    `json:"modified_by"`
}
