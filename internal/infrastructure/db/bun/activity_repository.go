package bun

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/infrastructure/db/bun/models"
)

type ActivityRepository struct {
	db bun.IDB
}

func NewActivityRepository(db bun.IDB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Append(ctx context.Context, activity *domain.Activity) error {
	row := models.ActivityFromDomain(activity)
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	activity.ID = row.ID
	activity.CreatedAt, activity.CreatedBy = row.CreatedAt, row.CreatedBy
	activity.ModifiedAt, activity.ModifiedBy = row.ModifiedAt, row.ModifiedBy
	return nil
}

// ListByUser returns the newest entries first. A non-positive limit returns
// the whole history.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	var rows []models.Activity
	q := r.db.NewSelect().
		Model(&rows).
		Where("ua.user_id = ?", userID).
		Order("ua.activity_time DESC", "ua.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	out := make([]domain.Activity, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}
