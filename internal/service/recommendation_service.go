package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"matchvision/sports-video-app/internal/domain"
	"matchvision/sports-video-app/internal/metrics"
	"matchvision/sports-video-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultRecommendationLimit = 5

// --- Service Interface ---
type RecommendationService interface {
	Recommend(ctx context.Context, videoID primitive.ObjectID, limit int) ([]domain.Recommendation, error)
}

// --- Service Implementation ---

// recommendationService implements the RecommendationService interface with
// an on-demand scan over the completed catalog. Acceptable at catalog scale;
// a precomputed team-to-video index would replace the scan if the catalog
// grows.
type recommendationService struct {
	videoRepo repository.VideoRepository
}

// NewRecommendationService creates a new instance of recommendationService.
func NewRecommendationService(videoRepo repository.VideoRepository) RecommendationService {
	return &recommendationService{videoRepo: videoRepo}
}

// Recommend ranks completed videos of the same sport by similarity to the
// source video. The result never includes the source itself, never exceeds
// limit, and is ordered by score descending with a deterministic tie-break
// (newer first, then id ascending).
func (s *recommendationService) Recommend(ctx context.Context, videoID primitive.ObjectID, limit int) ([]domain.Recommendation, error) {
	if limit <= 0 {
		limit = defaultRecommendationLimit
	}

	source, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	// Hard filter: only completed videos of the same sport are candidates.
	// Cross-sport similarity is not meaningful, and unanalyzed or failed
	// videos lack confirmed content signal.
	completed := domain.StatusCompleted
	candidates, err := s.videoRepo.List(ctx, repository.VideoFilter{
		SportType: &source.SportType,
		Status:    &completed,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecommendationScans.Inc()
	metrics.RecommendationCandidates.Observe(float64(len(candidates)))

	recommendations := make([]domain.Recommendation, 0, len(candidates))
	for i := range candidates {
		candidate := candidates[i]
		if candidate.ID == source.ID {
			continue
		}
		recommendations = append(recommendations, domain.Recommendation{
			Video:           candidate,
			SimilarityScore: domain.Similarity(source, &candidate),
			Reason:          buildReason(source, &candidate),
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		a, b := recommendations[i], recommendations[j]
		if a.SimilarityScore != b.SimilarityScore {
			return a.SimilarityScore > b.SimilarityScore
		}
		if !a.Video.CreatedAt.Equal(b.Video.CreatedAt) {
			return a.Video.CreatedAt.After(b.Video.CreatedAt)
		}
		return a.Video.ID.Hex() < b.Video.ID.Hex()
	})

	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	return recommendations, nil
}

// buildReason produces the human-readable justification shown next to a
// recommendation.
func buildReason(source, candidate *domain.Video) string {
	var parts []string
	if shared := domain.SharedTeams(source, candidate); len(shared) > 0 {
		parts = append(parts, fmt.Sprintf("shared teams: %s", strings.Join(shared, ", ")))
	}
	parts = append(parts, fmt.Sprintf("same sport: %s", source.SportType))
	if domain.RecencyFactor(source, candidate) > 0.5 {
		parts = append(parts, "recorded around the same time")
	}
	return strings.Join(parts, "; ")
}
