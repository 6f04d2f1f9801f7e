package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
)

const activityCollection = "activity_events"

// ActivityArchive mirrors activity log entries into MongoDB for long-term
// retention. The relational log stays authoritative.
type ActivityArchive struct {
	coll *mongo.Collection
}

// NewActivityArchive creates an ActivityArchive over db.
func NewActivityArchive(db *mongo.Database) *ActivityArchive {
	return &ActivityArchive{coll: db.Collection(activityCollection)}
}

type activityDoc struct {
	ActivityID   int64     `bson:"activity_id"`
	UserID       string    `bson:"user_id"`
	Type         string    `bson:"activity_type"`
	ActivityTime time.Time `bson:"activity_time"`
	CreatedBy    string    `bson:"created_by"`
	ArchivedAt   time.Time `bson:"archived_at"`
}

// EnsureIndexes creates the lookup and idempotency indexes.
func (a *ActivityArchive) EnsureIndexes(ctx context.Context) error {
	_, err := a.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "activity_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "activity_time", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create archive indexes: %w", err)
	}
	return nil
}

// Archive stores activity. Replays of an already archived entry are ignored.
func (a *ActivityArchive) Archive(ctx context.Context, activity domain.Activity) error {
	doc := activityDoc{
		ActivityID:   activity.ID,
		UserID:       activity.UserID,
		Type:         activity.Type,
		ActivityTime: activity.Time.UTC(),
		CreatedBy:    activity.CreatedBy,
		ArchivedAt:   audit.Now(ctx),
	}
	if _, err := a.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("archive activity: %w", err)
	}
	return nil
}
