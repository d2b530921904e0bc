package mongo

import (
	"context"
	"time"

	"matchvision/sports-video-app/internal/domain"
	"matchvision/sports-video-app/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const jobSlotCollectionName = "job_slots"

// mongoJobSlotRepository implements repository.JobSlotRepository.
//
// Mutual exclusion relies on the unique index over (videoId, analysisType)
// plus a guarded upsert: the acquire filter only matches a slot that is not
// running, so a concurrent acquire either matches nothing and collides with
// the unique index on insert, or loses the single-document update race.
// Either way exactly one caller wins.
type mongoJobSlotRepository struct {
	collection *mongo.Collection
}

// NewMongoJobSlotRepository creates a new JobSlot repository backed by MongoDB.
func NewMongoJobSlotRepository(db *mongo.Database) repository.JobSlotRepository {
	return &mongoJobSlotRepository{
		collection: db.Collection(jobSlotCollectionName),
	}
}

// Acquire transitions the (video, analysis type) slot from idle to running.
// Returns repository.ErrSlotHeld when another job already holds it.
func (r *mongoJobSlotRepository) Acquire(ctx context.Context, videoID primitive.ObjectID, analysisType domain.AnalysisType) error {
	now := time.Now().UTC()
	filter := bson.M{
		"videoId":      videoID,
		"analysisType": analysisType,
		"state":        bson.M{"$ne": domain.JobRunning},
	}
	update := bson.M{
		"$set": bson.M{
			"state":     domain.JobRunning,
			"startedAt": now,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"videoId":      videoID,
			"analysisType": analysisType,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The filter excluded an existing running slot, so the upsert
			// tried to insert a duplicate key: the slot is held.
			return repository.ErrSlotHeld
		}
		return err
	}
	return nil
}

// Release returns the slot to idle regardless of the job outcome.
func (r *mongoJobSlotRepository) Release(ctx context.Context, videoID primitive.ObjectID, analysisType domain.AnalysisType) error {
	filter := bson.M{"videoId": videoID, "analysisType": analysisType}
	update := bson.M{
		"$set": bson.M{
			"state":     domain.JobIdle,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ReleaseStale resets running slots older than maxAge back to idle and
// returns the slots that were reset so callers can record the failures.
func (r *mongoJobSlotRepository) ReleaseStale(ctx context.Context, maxAge time.Duration) ([]domain.JobSlot, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	filter := bson.M{
		"state":     domain.JobRunning,
		"startedAt": bson.M{"$lt": cutoff},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stale []domain.JobSlot
	if err = cursor.All(ctx, &stale); err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	// Reset each slot individually with the startedAt guard intact, so a
	// slot legitimately re-acquired between the scan and the reset is left
	// alone.
	released := stale[:0]
	for _, slot := range stale {
		res, err := r.collection.UpdateOne(ctx, bson.M{
			"_id":       slot.ID,
			"state":     domain.JobRunning,
			"startedAt": slot.StartedAt,
		}, bson.M{
			"$set": bson.M{
				"state":     domain.JobIdle,
				"updatedAt": time.Now().UTC(),
			},
		})
		if err != nil {
			return released, err
		}
		if res.ModifiedCount == 1 {
			released = append(released, slot)
		}
	}
	return released, nil
}

// DeleteByVideoID removes all job slots owned by a video.
func (r *mongoJobSlotRepository) DeleteByVideoID(ctx context.Context, videoID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"videoId": videoID})
	return err
}

// EnsureJobSlotIndexes creates necessary indexes for the job slots collection.
// The unique compound index is what makes Acquire safe under concurrency.
func EnsureJobSlotIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "videoId", Value: 1}, {Key: "analysisType", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Supports the stale-slot recovery sweep.
			Keys:    bson.D{{Key: "state", Value: 1}, {Key: "startedAt", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Without the unique index, concurrent acquires can both win.
		log.WithError(err).WithField("collection", collection.Name()).
			Error("Failed to create job slot indexes")
	}
}
