// Package models holds the relational row types. Every audited row stamps
// its created/modified columns from a BeforeAppendModel hook, so callers
// never set them.
package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
)

// AuditColumns is embedded by audited rows.
type AuditColumns struct {
	CreatedAt  time.Time `bun:"created_at,notnull"`
	CreatedBy  string    `bun:"created_by,type:varchar(256),notnull"`
	ModifiedAt time.Time `bun:"modified_at,notnull"`
	ModifiedBy string    `bun:"modified_by,type:varchar(256),notnull"`
}

func (a *AuditColumns) SetCreated(at time.Time, by string) {
	a.CreatedAt, a.CreatedBy = at, by
}

func (a *AuditColumns) SetModified(at time.Time, by string) {
	a.ModifiedAt, a.ModifiedBy = at, by
}

func stamp(ctx context.Context, row audit.Auditable, query bun.Query) {
	switch query.(type) {
	case *bun.InsertQuery:
		audit.Stamp(ctx, row, audit.Insert)
	case *bun.UpdateQuery:
		audit.Stamp(ctx, row, audit.Update)
	}
}

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string `bun:"id,pk,type:varchar(36)"`
	Username     string `bun:"username,type:varchar(256),notnull"`
	Email        string `bun:"email,type:varchar(256),notnull"`
	PasswordHash string `bun:"password_hash,notnull"`

	EmailConfirmed    bool       `bun:"email_confirmed,notnull"`
	PhoneNumber       string     `bun:"phone_number,type:varchar(32)"`
	TwoFactorEnabled  bool       `bun:"two_factor_enabled,notnull"`
	LockoutEnabled    bool       `bun:"lockout_enabled,notnull"`
	LockoutEnd        *time.Time `bun:"lockout_end"`
	AccessFailedCount int        `bun:"access_failed_count,notnull"`

	FirstName             string `bun:"first_name,type:varchar(50),notnull"`
	LastName              string `bun:"last_name,type:varchar(50),notnull"`
	PropertyAddress       string `bun:"property_address,type:varchar(200)"`
	EmergencyContactName  string `bun:"emergency_contact_name,type:varchar(50)"`
	EmergencyContactPhone string `bun:"emergency_contact_phone,type:varchar(20)"`

	IsActive    bool       `bun:"is_active,notnull"`
	LastLoginAt *time.Time `bun:"last_login_at"`

	AuditColumns
}

var _ bun.BeforeAppendModelHook = (*User)(nil)

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	stamp(ctx, &u.AuditColumns, query)
	return nil
}

// UserFromDomain copies u into a row.
func UserFromDomain(u *domain.User) *User {
	return &User{
		ID:                    u.ID,
		Username:              u.Username,
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		EmailConfirmed:        u.EmailConfirmed,
		PhoneNumber:           u.PhoneNumber,
		TwoFactorEnabled:      u.TwoFactorEnabled,
		LockoutEnabled:        u.LockoutEnabled,
		LockoutEnd:            u.LockoutEnd,
		AccessFailedCount:     u.AccessFailedCount,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		PropertyAddress:       u.PropertyAddress,
		EmergencyContactName:  u.EmergencyContactName,
		EmergencyContactPhone: u.EmergencyContactPhone,
		IsActive:              u.IsActive,
		LastLoginAt:           u.LastLoginAt,
		AuditColumns: AuditColumns{
			CreatedAt:  u.CreatedAt,
			CreatedBy:  u.CreatedBy,
			ModifiedAt: u.ModifiedAt,
			ModifiedBy: u.ModifiedBy,
		},
	}
}

// ToDomain converts the row back.
func (u *User) ToDomain() *domain.User {
	return &domain.User{
		ID:                    u.ID,
		Username:              u.Username,
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		EmailConfirmed:        u.EmailConfirmed,
		PhoneNumber:           u.PhoneNumber,
		TwoFactorEnabled:      u.TwoFactorEnabled,
		LockoutEnabled:        u.LockoutEnabled,
		LockoutEnd:            utcPtr(u.LockoutEnd),
		AccessFailedCount:     u.AccessFailedCount,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		PropertyAddress:       u.PropertyAddress,
		EmergencyContactName:  u.EmergencyContactName,
		EmergencyContactPhone: u.EmergencyContactPhone,
		IsActive:              u.IsActive,
		LastLoginAt:           utcPtr(u.LastLoginAt),
		CreatedAt:             u.CreatedAt.UTC(),
		CreatedBy:             u.CreatedBy,
		ModifiedAt:            u.ModifiedAt.UTC(),
		ModifiedBy:            u.ModifiedBy,
	}
}

type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,type:varchar(50),notnull,unique"`
}

type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID string `bun:"user_id,pk,type:varchar(36)"`
	RoleID int64  `bun:"role_id,pk"`
}

type Activity struct {
	bun.BaseModel `bun:"table:user_activities,alias:ua"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       string    `bun:"user_id,type:varchar(36),notnull"`
	ActivityType string    `bun:"activity_type,type:varchar(100),notnull"`
	ActivityTime time.Time `bun:"activity_time,notnull"`

	AuditColumns
}

var _ bun.BeforeAppendModelHook = (*Activity)(nil)

func (a *Activity) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	stamp(ctx, &a.AuditColumns, query)
	return nil
}

func ActivityFromDomain(a *domain.Activity) *Activity {
	return &Activity{
		ID:           a.ID,
		UserID:       a.UserID,
		ActivityType: a.Type,
		ActivityTime: a.Time,
	}
}

func (a *Activity) ToDomain() domain.Activity {
	return domain.Activity{
		ID:         a.ID,
		UserID:     a.UserID,
		Type:       a.ActivityType,
		Time:       a.ActivityTime.UTC(),
		CreatedAt:  a.CreatedAt.UTC(),
		CreatedBy:  a.CreatedBy,
		ModifiedAt: a.ModifiedAt.UTC(),
		ModifiedBy: a.ModifiedBy,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
