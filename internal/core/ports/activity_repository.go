package ports

import (
	"context"

	"github.com/homeowner/portal/internal/core/domain"
)

// ActivityRepository is the append-only activity log.
type ActivityRepository interface {
	Append(ctx context.Context, activity *domain.Activity) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Activity, error)
}

// ActivityArchive mirrors recorded activities to a secondary audit store.
// Failures are reported but never undo the primary write.
type ActivityArchive interface {
	Archive(ctx context.Context, activity domain.Activity) error
}

// ActivityRecorder appends an activity for a user.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, activityType string) error
}
