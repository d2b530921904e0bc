package api

import (
	"net/http"
	"time"

	"matchvision/sports-video-app/internal/domain"
	"matchvision/sports-video-app/internal/service"

	"github.com/gin-gonic/gin"
)

// AnalysisHandler holds the analysis service dependency.
type AnalysisHandler struct {
	analysisService service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

// --- DTOs for API ---

// RequestAnalysisRequest defines the expected JSON for requesting an analysis.
type RequestAnalysisRequest struct {
	AnalysisType string         `json:"analysisType" binding:"required"`
	Parameters   map[string]any `json:"parameters"`
}

// AnalysisResponse is the DTO for returning analysis result details.
type AnalysisResponse struct {
	ID              string         `json:"id"`
	VideoID         string         `json:"videoId"`
	AnalysisType    string         `json:"analysisType"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	ConfidenceScore float64        `json:"confidenceScore"`
	Payload         map[string]any `json:"payload,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// MapAnalysisToResponse converts a domain.AnalysisResult to AnalysisResponse DTO.
func MapAnalysisToResponse(a *domain.AnalysisResult) AnalysisResponse {
	if a == nil {
		return AnalysisResponse{}
	}
	return AnalysisResponse{
		ID:              a.ID.Hex(),
		VideoID:         a.VideoID.Hex(),
		AnalysisType:    string(a.AnalysisType),
		Parameters:      a.Parameters,
		ConfidenceScore: a.ConfidenceScore,
		Payload:         a.Payload,
		CreatedAt:       a.CreatedAt,
	}
}

// MapAnalysesToResponse converts a slice of domain.AnalysisResult to a slice of AnalysisResponse DTO.
func MapAnalysesToResponse(analyses []domain.AnalysisResult) []AnalysisResponse {
	if len(analyses) == 0 {
		return nil
	}
	responses := make([]AnalysisResponse, len(analyses))
	for i := range analyses {
		responses[i] = MapAnalysisToResponse(&analyses[i])
	}
	return responses
}

// --- Handler Methods ---

// RequestAnalysis godoc
// @Summary Run an analysis job
// @Description Runs one analysis of the given type against the video. At most one job per (video, analysis type) runs at a time; concurrent requests get 409.
// @Tags Analyses
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param request body RequestAnalysisRequest true "Analysis type and parameters"
// @Success 201 {object} AnalysisResponse "Analysis completed"
// @Failure 400 {object} gin.H "Validation error"
// @Failure 404 {object} gin.H "Video not found"
// @Failure 409 {object} gin.H "Analysis already running"
// @Failure 502 {object} gin.H "Inference failed"
// @Failure 504 {object} gin.H "Analysis timed out"
// @Router /videos/{id}/analyses [post]
func (h *AnalysisHandler) RequestAnalysis(c *gin.Context) {
	videoID, ok := videoIDParam(c)
	if !ok {
		return
	}

	var req RequestAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	analysis, err := h.analysisService.RequestAnalysis(
		c.Request.Context(),
		videoID,
		domain.AnalysisType(req.AnalysisType),
		req.Parameters,
	)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapAnalysisToResponse(analysis))
}

// ListAnalyses godoc
// @Summary List analysis results
// @Description Returns all analysis results for a video, newest first.
// @Tags Analyses
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {array} AnalysisResponse
// @Failure 404 {object} gin.H "Video not found"
// @Router /videos/{id}/analyses [get]
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	videoID, ok := videoIDParam(c)
	if !ok {
		return
	}

	analyses, err := h.analysisService.ListAnalyses(c.Request.Context(), videoID)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	responses := MapAnalysesToResponse(analyses)
	if responses == nil {
		responses = []AnalysisResponse{}
	}
	c.JSON(http.StatusOK, responses)
}
