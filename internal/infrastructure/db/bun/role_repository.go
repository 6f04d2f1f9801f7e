package bun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/infrastructure/db/bun/models"
)

type RoleRepository struct {
	db *bun.DB
}

func NewRoleRepository(db *bun.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) EnsureRoles(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	rows := make([]models.Role, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.Role{Name: name})
	}
	if _, err := r.db.NewInsert().
		Model(&rows).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("ensure roles: %w", err)
	}
	return nil
}

func (r *RoleRepository) RoleExists(ctx context.Context, name string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.Role)(nil)).
		Where("r.name = ?", name).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}

func (r *RoleRepository) RolesOf(ctx context.Context, userID string) ([]string, error) {
	var names []string
	if err := r.db.NewSelect().
		Model((*models.Role)(nil)).
		Column("r.name").
		Join("JOIN user_roles AS ur ON ur.role_id = r.id").
		Where("ur.user_id = ?", userID).
		Scan(ctx, &names); err != nil {
		return nil, fmt.Errorf("roles of user: %w", err)
	}
	domain.SortRoles(names)
	return names, nil
}

type membership struct {
	UserID string `bun:"user_id"`
	Name   string `bun:"name"`
}

func (r *RoleRepository) RolesFor(ctx context.Context, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []membership
	if err := r.db.NewSelect().
		Model((*models.Role)(nil)).
		ColumnExpr("ur.user_id, r.name").
		Join("JOIN user_roles AS ur ON ur.role_id = r.id").
		Where("ur.user_id IN (?)", bun.In(userIDs)).
		Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("roles for users: %w", err)
	}
	for _, m := range rows {
		out[m.UserID] = append(out[m.UserID], m.Name)
	}
	for id := range out {
		domain.SortRoles(out[id])
	}
	return out, nil
}

func (r *RoleRepository) AddToRole(ctx context.Context, userID, role string) error {
	return addMembership(ctx, r.db, userID, role)
}

// ReplaceRoles drops every membership of userID and adds role in a single
// transaction.
func (r *RoleRepository) ReplaceRoles(ctx context.Context, userID, role string) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.UserRole)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear roles: %w", err)
		}
		return addMembership(ctx, tx, userID, role)
	})
}

func addMembership(ctx context.Context, db bun.IDB, userID, role string) error {
	var roleID int64
	err := db.NewSelect().
		Model((*models.Role)(nil)).
		Column("r.id").
		Where("r.name = ?", role).
		Scan(ctx, &roleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrInvalidRole
		}
		return fmt.Errorf("find role: %w", err)
	}

	if _, err := db.NewInsert().
		Model(&models.UserRole{UserID: userID, RoleID: roleID}).
		On("CONFLICT DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("add to role: %w", err)
	}
	return nil
}
