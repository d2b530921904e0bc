package mongo

import (
	"context"
	"errors"
	"time"

	"matchvision/sports-video-app/internal/domain"
	"matchvision/sports-video-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const analysisCollectionName = "analysis_results"

// mongoAnalysisRepository implements repository.AnalysisRepository
type mongoAnalysisRepository struct {
	collection *mongo.Collection
}

// NewMongoAnalysisRepository creates a new AnalysisResult repository backed by MongoDB.
func NewMongoAnalysisRepository(db *mongo.Database) repository.AnalysisRepository {
	return &mongoAnalysisRepository{
		collection: db.Collection(analysisCollectionName),
	}
}

// Create inserts a new analysis result.
func (r *mongoAnalysisRepository) Create(ctx context.Context, analysis *domain.AnalysisResult) (primitive.ObjectID, error) {
	if analysis.VideoID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("analysis video ID is required")
	}
	if !domain.ValidAnalysisType(analysis.AnalysisType) {
		return primitive.NilObjectID, errors.New("unsupported analysis type")
	}

	analysis.ID = primitive.NewObjectID()
	analysis.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, analysis)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByVideoID retrieves all analysis results for a video, newest first.
func (r *mongoAnalysisRepository) GetByVideoID(ctx context.Context, videoID primitive.ObjectID) ([]domain.AnalysisResult, error) {
	filter := bson.M{"videoId": videoID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var analyses []domain.AnalysisResult
	if err = cursor.All(ctx, &analyses); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return analyses, nil
}

// CountByType returns, for one video, how many results exist per analysis
// type. Drives the completion-policy recomputation after a job finishes.
func (r *mongoAnalysisRepository) CountByType(ctx context.Context, videoID primitive.ObjectID) (map[domain.AnalysisType]int64, error) {
	matchStage := bson.D{{Key: "$match", Value: bson.M{"videoId": videoID}}}
	groupStage := bson.D{{Key: "$group", Value: bson.M{
		"_id":   "$analysisType",
		"count": bson.M{"$sum": 1},
	}}}

	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{matchStage, groupStage})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := make(map[domain.AnalysisType]int64)
	for cursor.Next(ctx) {
		var row struct {
			Type  domain.AnalysisType `bson:"_id"`
			Count int64               `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Type] = row.Count
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// DeleteByVideoID removes all analysis results owned by a video.
func (r *mongoAnalysisRepository) DeleteByVideoID(ctx context.Context, videoID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"videoId": videoID})
	return err
}

// EnsureAnalysisIndexes creates necessary indexes for the analysis results collection.
func EnsureAnalysisIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "videoId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "videoId", Value: 1}, {Key: "analysisType", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
