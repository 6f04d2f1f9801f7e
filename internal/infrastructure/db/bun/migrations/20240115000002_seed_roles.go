package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/infrastructure/db/bun/models"
)

func init() {
	Migrations.MustRegister(up_20240115000002, down_20240115000002)
}

// up_20240115000002 seeds the fixed role set in precedence order.
func up_20240115000002(ctx context.Context, db *bun.DB) error {
	roles := make([]models.Role, 0, len(domain.Roles))
	for _, name := range domain.Roles {
		roles = append(roles, models.Role{Name: name})
	}

	if _, err := db.NewInsert().
		Model(&roles).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	return nil
}

func down_20240115000002(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDelete().
		Model((*models.Role)(nil)).
		Where("name IN (?)", bun.In(domain.Roles)).
		Exec(ctx); err != nil {
		return fmt.Errorf("remove roles: %w", err)
	}
	return nil
}
