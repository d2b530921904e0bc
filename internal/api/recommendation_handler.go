package api

import (
	"net/http"
	"strconv"

	"matchvision/sports-video-app/internal/domain"
	"matchvision/sports-video-app/internal/service"

	"github.com/gin-gonic/gin"
)

// RecommendationHandler holds the recommendation service dependency.
type RecommendationHandler struct {
	recommendationService service.RecommendationService
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recommendationService service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendationService: recommendationService}
}

// --- DTOs for API ---

// RecommendationResponse pairs a video with its similarity score.
type RecommendationResponse struct {
	Video           VideoResponse `json:"video"`
	SimilarityScore float64       `json:"similarityScore"`
	Reason          string        `json:"reason"`
}

// MapRecommendationsToResponse converts domain recommendations to DTOs.
func MapRecommendationsToResponse(recs []domain.Recommendation) []RecommendationResponse {
	responses := make([]RecommendationResponse, len(recs))
	for i := range recs {
		responses[i] = RecommendationResponse{
			Video:           MapVideoToResponse(&recs[i].Video),
			SimilarityScore: recs[i].SimilarityScore,
			Reason:          recs[i].Reason,
		}
	}
	return responses
}

// --- Handler Methods ---

// GetRecommendations godoc
// @Summary Recommend related videos
// @Description Ranks completed videos of the same sport by similarity to the given video.
// @Tags Recommendations
// @Produce json
// @Param id path string true "Video ID"
// @Param limit query int false "Maximum results (default 5)"
// @Success 200 {array} RecommendationResponse
// @Failure 404 {object} gin.H "Video not found"
// @Router /videos/{id}/recommendations [get]
func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	videoID, ok := videoIDParam(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	recommendations, err := h.recommendationService.Recommend(c.Request.Context(), videoID, limit)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapRecommendationsToResponse(recommendations))
}
