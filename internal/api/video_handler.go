package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"matchvision/sports-video-app/internal/domain"
	"matchvision/sports-video-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VideoHandler holds the upload service dependency.
type VideoHandler struct {
	uploadService service.UploadService
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(uploadService service.UploadService) *VideoHandler {
	return &VideoHandler{uploadService: uploadService}
}

// --- DTOs for API (Data Transfer Objects) ---

// VideoResponse is the DTO for returning video details.
type VideoResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	SportType   string             `json:"sportType"`
	Teams       []string           `json:"teams,omitempty"`
	MatchDate   *time.Time         `json:"matchDate,omitempty"`
	FileName    string             `json:"fileName"`
	ContentType string             `json:"contentType"`
	FileSize    int64              `json:"fileSize"`
	Duration    *float64           `json:"duration,omitempty"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Analyses    []AnalysisResponse `json:"analyses,omitempty"`
}

// MapVideoToResponse converts a domain.Video to VideoResponse DTO.
func MapVideoToResponse(v *domain.Video) VideoResponse {
	if v == nil {
		return VideoResponse{}
	}
	return VideoResponse{
		ID:          v.ID.Hex(),
		Title:       v.Title,
		Description: v.Description,
		SportType:   string(v.SportType),
		Teams:       v.Teams,
		MatchDate:   v.MatchDate,
		FileName:    v.FileName,
		ContentType: v.ContentType,
		FileSize:    v.FileSize,
		Duration:    v.Duration,
		Status:      string(v.Status),
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		Analyses:    MapAnalysesToResponse(v.Analyses),
	}
}

// MapVideosToResponse converts a slice of domain.Video to a slice of VideoResponse DTO.
func MapVideosToResponse(videos []domain.Video) []VideoResponse {
	responses := make([]VideoResponse, len(videos))
	for i := range videos {
		responses[i] = MapVideoToResponse(&videos[i])
	}
	return responses
}

// --- Handler Methods ---

// UploadVideo godoc
// @Summary Upload a match video
// @Description Accepts a multipart upload (file plus metadata form fields) and creates the video in uploaded status.
// @Tags Videos
// @Accept mpfd
// @Produce json
// @Param file formData file true "Video file (mp4, avi, mov, mkv, webm)"
// @Param title formData string true "Video title"
// @Param description formData string false "Video description"
// @Param sport_type formData string true "Sport type (soccer, basketball, tennis, baseball, hockey)"
// @Param teams formData string false "Team names, comma separated"
// @Param match_date formData string false "Match date (RFC3339)"
// @Success 201 {object} VideoResponse "Video created"
// @Failure 400 {object} gin.H "Validation error"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /videos [post]
func (h *VideoHandler) UploadVideo(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Video file is required: "+err.Error())
		return
	}

	title := c.PostForm("title")
	description := c.PostForm("description")
	sportType := c.PostForm("sport_type")

	var teams []string
	if raw := c.PostForm("teams"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				teams = append(teams, t)
			}
		}
	}

	var matchDate *time.Time
	if raw := c.PostForm("match_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid match_date, expected RFC3339 timestamp.")
			return
		}
		matchDate = &parsed
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Failed to open uploaded file: "+err.Error())
		return
	}
	defer file.Close()

	video, err := h.uploadService.UploadVideo(c.Request.Context(), service.UploadInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		FileSize:    fileHeader.Size,
		Body:        file,
		Title:       title,
		Description: description,
		SportType:   domain.SportType(sportType),
		Teams:       teams,
		MatchDate:   matchDate,
	})
	if err != nil {
		mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapVideoToResponse(video))
}

// ListVideos godoc
// @Summary List videos
// @Description Lists videos newest first, optionally filtered by sport type and status, with attached analysis results.
// @Tags Videos
// @Produce json
// @Param sport_type query string false "Filter by sport type"
// @Param status query string false "Filter by status (uploaded, processing, completed, failed)"
// @Param limit query int false "Page size (default 20)"
// @Param offset query int false "Page offset"
// @Success 200 {array} VideoResponse
// @Failure 400 {object} gin.H "Validation error"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /videos [get]
func (h *VideoHandler) ListVideos(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)

	videos, err := h.uploadService.ListVideos(c.Request.Context(), service.ListFilter{
		SportType: c.Query("sport_type"),
		Status:    c.Query("status"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapVideosToResponse(videos))
}

// GetVideo godoc
// @Summary Get a video
// @Description Returns one video with its analysis results.
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} VideoResponse
// @Failure 400 {object} gin.H "Invalid ID"
// @Failure 404 {object} gin.H "Not found"
// @Router /videos/{id} [get]
func (h *VideoHandler) GetVideo(c *gin.Context) {
	videoID, ok := videoIDParam(c)
	if !ok {
		return
	}

	video, err := h.uploadService.GetVideo(c.Request.Context(), videoID)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapVideoToResponse(video))
}

// DeleteVideo godoc
// @Summary Delete a video
// @Description Deletes a video, its analysis results, and the stored file.
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} gin.H "Deleted"
// @Failure 400 {object} gin.H "Invalid ID"
// @Failure 404 {object} gin.H "Not found"
// @Router /videos/{id} [delete]
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	videoID, ok := videoIDParam(c)
	if !ok {
		return
	}

	if err := h.uploadService.DeleteVideo(c.Request.Context(), videoID); err != nil {
		mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "video deleted"})
}

// GetPlaybackURL godoc
// @Summary Get a playback URL
// @Description Returns a temporary presigned URL for viewing the stored video file.
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} gin.H "Playback URL"
// @Failure 404 {object} gin.H "Not found"
// @Router /videos/{id}/playback [get]
func (h *VideoHandler) GetPlaybackURL(c *gin.Context) {
	videoID, ok := videoIDParam(c)
	if !ok {
		return
	}

	url, err := h.uploadService.GetPlaybackURL(c.Request.Context(), videoID)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playbackUrl": url})
}

// videoIDParam parses the :id path parameter, aborting with 400 on failure.
func videoIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	videoID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid video ID format.")
		return primitive.NilObjectID, false
	}
	return videoID, true
}

// mapServiceError translates service-layer sentinel errors to HTTP status codes.
func mapServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnsupportedAnalysisType):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrVideoNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAnalysisConflict):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAnalysisTimeout):
		abortWithError(c, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, service.ErrInferenceFailed), errors.Is(err, service.ErrStorageFailed):
		abortWithError(c, http.StatusBadGateway, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Internal server error.")
	}
}
