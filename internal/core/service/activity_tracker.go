package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/core/ports"
)

// ActivityTracker appends entries to the activity log and mirrors them to
// the archive when one is configured.
type ActivityTracker struct {
	repo    ports.ActivityRepository
	archive ports.ActivityArchive
	log     zerolog.Logger
}

// NewActivityTracker returns a tracker. archive may be nil.
func NewActivityTracker(repo ports.ActivityRepository, archive ports.ActivityArchive, log zerolog.Logger) *ActivityTracker {
	return &ActivityTracker{repo: repo, archive: archive, log: log}
}

// Record appends a single activity for userID, timestamped with the context clock.
func (t *ActivityTracker) Record(ctx context.Context, userID, activityType string) error {
	a := &domain.Activity{
		UserID: userID,
		Type:   activityType,
		Time:   audit.Now(ctx),
	}

	if err := t.repo.Append(ctx, a); err != nil {
		return fmt.Errorf("record activity %q: %w", activityType, err)
	}

	// Mirror is best effort; the primary log is authoritative.
	if t.archive != nil {
		if err := t.archive.Archive(ctx, *a); err != nil {
			t.log.Warn().Err(err).Str("user_id", userID).Str("activity", activityType).Msg("failed to archive activity")
		}
	}

	t.log.Debug().
		Str("user_id", userID).
		Str("activity", activityType).
		Str("actor", audit.Actor(ctx)).
		Msg("activity recorded")

	return nil
}
