package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/homeowner/portal/internal/infrastructure/db/bun/models"
)

func init() {
	Migrations.MustRegister(up_20240115000001, down_20240115000001)
}

type index struct {
	model  interface{}
	name   string
	column string
	unique bool
}

// up_20240115000001 creates users, roles, memberships and the activity log.
func up_20240115000001(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*models.Role)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create roles table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*models.UserRole)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		ForeignKey(`("role_id") REFERENCES "roles" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create user_roles table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*models.Activity)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create user_activities table: %w", err)
	}

	indexes := []index{
		{(*models.User)(nil), "idx_users_email", "email", true},
		{(*models.User)(nil), "idx_users_username", "username", true},
		{(*models.User)(nil), "idx_users_phone_number", "phone_number", false},
		{(*models.User)(nil), "idx_users_created_at", "created_at", false},
		{(*models.UserRole)(nil), "idx_user_roles_role_id", "role_id", false},
		{(*models.Activity)(nil), "idx_user_activities_user_id", "user_id", false},
		{(*models.Activity)(nil), "idx_user_activities_activity_time", "activity_time", false},
		{(*models.Activity)(nil), "idx_user_activities_activity_type", "activity_type", false},
	}
	for _, ix := range indexes {
		q := db.NewCreateIndex().
			Model(ix.model).
			Index(ix.name).
			Column(ix.column).
			IfNotExists()
		if ix.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", ix.name, err)
		}
	}

	return nil
}

func down_20240115000001(ctx context.Context, db *bun.DB) error {
	for _, m := range []interface{}{
		(*models.Activity)(nil),
		(*models.UserRole)(nil),
		(*models.Role)(nil),
		(*models.User)(nil),
	} {
		if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
