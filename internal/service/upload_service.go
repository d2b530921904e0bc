package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"matchvision/sports-video-app/internal/domain"
	"matchvision/sports-video-app/internal/metrics"
	"matchvision/sports-video-app/internal/queue"
	"matchvision/sports-video-app/internal/repository"
	"matchvision/sports-video-app/internal/storage"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrValidationFailed = errors.New("upload validation failed")
	ErrVideoNotFound    = errors.New("video not found")
	ErrStorageFailed    = errors.New("file storage operation failed")
)

// allowedExtensions is the fixed allow-list of video container formats.
var allowedExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
}

const defaultListLimit = 20

// UploadInput carries the raw file content plus declared metadata for one
// upload request.
type UploadInput struct {
	FileName    string
	ContentType string
	FileSize    int64
	Body        io.Reader

	Title       string
	Description string
	SportType   domain.SportType
	Teams       []string
	MatchDate   *time.Time
}

// ListFilter narrows ListVideos. Empty strings mean no filter.
type ListFilter struct {
	SportType string
	Status    string
	Limit     int64
	Offset    int64
}

// --- Service Interface ---
type UploadService interface {
	UploadVideo(ctx context.Context, input UploadInput) (*domain.Video, error)
	ListVideos(ctx context.Context, filter ListFilter) ([]domain.Video, error)
	GetVideo(ctx context.Context, videoID primitive.ObjectID) (*domain.Video, error)
	DeleteVideo(ctx context.Context, videoID primitive.ObjectID) error
	GetPlaybackURL(ctx context.Context, videoID primitive.ObjectID) (string, error)
}

// --- Service Implementation ---

// uploadService implements the UploadService interface.
type uploadService struct {
	videoRepo    repository.VideoRepository
	analysisRepo repository.AnalysisRepository
	jobSlotRepo  repository.JobSlotRepository
	fileStorage  storage.FileStorage
	intake       queue.IntakePublisher
	maxFileSize  int64
}

// NewUploadService creates a new instance of uploadService.
func NewUploadService(
	videoRepo repository.VideoRepository,
	analysisRepo repository.AnalysisRepository,
	jobSlotRepo repository.JobSlotRepository,
	fileStorage storage.FileStorage,
	intake queue.IntakePublisher,
	maxFileSize int64,
) UploadService {
	return &uploadService{
		videoRepo:    videoRepo,
		analysisRepo: analysisRepo,
		jobSlotRepo:  jobSlotRepo,
		fileStorage:  fileStorage,
		intake:       intake,
		maxFileSize:  maxFileSize,
	}
}

// validateUpload checks all constraints before any persistence happens.
func (s *uploadService) validateUpload(input UploadInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidationFailed)
	}
	if input.SportType == "" {
		return fmt.Errorf("%w: sport type is required", ErrValidationFailed)
	}
	if !domain.ValidSportType(input.SportType) {
		return fmt.Errorf("%w: unsupported sport type %q", ErrValidationFailed, input.SportType)
	}
	ext := strings.ToLower(path.Ext(input.FileName))
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("%w: unsupported file extension %q", ErrValidationFailed, ext)
	}
	if input.FileSize <= 0 {
		return fmt.Errorf("%w: empty file", ErrValidationFailed)
	}
	if input.FileSize > s.maxFileSize {
		return fmt.Errorf("%w: file size %d exceeds limit %d", ErrValidationFailed, input.FileSize, s.maxFileSize)
	}
	return nil
}

// UploadVideo validates the upload, stores the file, creates the video
// record in uploaded status, and emits the intake scheduling signal.
// File write and record creation succeed together or the stored object is
// deleted again.
func (s *uploadService) UploadVideo(ctx context.Context, input UploadInput) (*domain.Video, error) {
	if err := s.validateUpload(input); err != nil {
		metrics.UploadRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	ext := strings.ToLower(path.Ext(input.FileName))
	objectKey := path.Join("videos", uuid.New().String()+ext)

	if err := s.fileStorage.Upload(ctx, objectKey, input.ContentType, input.Body, input.FileSize); err != nil {
		metrics.UploadRejected.WithLabelValues("storage").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}

	teams := normalizeTeamList(input.Teams)
	video := &domain.Video{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		SportType:   input.SportType,
		Teams:       teams,
		MatchDate:   input.MatchDate,
		ObjectKey:   objectKey,
		FileName:    input.FileName,
		ContentType: input.ContentType,
		FileSize:    input.FileSize,
		Status:      domain.StatusUploaded,
	}

	videoID, err := s.videoRepo.Create(ctx, video)
	if err != nil {
		// Compensate: the record never became visible, so the stored
		// object must go too.
		if delErr := s.fileStorage.Delete(ctx, objectKey); delErr != nil {
			log.WithError(delErr).WithField("object_key", objectKey).
				Warn("Failed to clean up stored object after record-create failure")
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	video.ID = videoID

	metrics.VideosUploaded.WithLabelValues(string(video.SportType)).Inc()
	metrics.UploadBytes.Add(float64(video.FileSize))

	// Intake scheduling is best effort: a broker outage must not undo an
	// otherwise successful upload.
	if s.intake != nil {
		msg := queue.IntakeMessage{
			VideoID:     videoID.Hex(),
			ObjectKey:   objectKey,
			FileName:    input.FileName,
			ContentType: input.ContentType,
			FileSize:    input.FileSize,
			UploadedAt:  video.CreatedAt,
		}
		if err := s.intake.PublishIntake(ctx, msg); err != nil {
			log.WithError(err).WithField("video_id", videoID.Hex()).
				Warn("Failed to publish intake message")
		}
	}

	log.WithFields(log.Fields{
		"video_id":   videoID.Hex(),
		"sport_type": video.SportType,
		"file_size":  video.FileSize,
	}).Info("Video uploaded")

	return video, nil
}

// ListVideos returns videos matching the filter, newest first, with their
// analysis results attached.
func (s *uploadService) ListVideos(ctx context.Context, filter ListFilter) ([]domain.Video, error) {
	repoFilter := repository.VideoFilter{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = defaultListLimit
	}

	if filter.SportType != "" {
		sport := domain.SportType(filter.SportType)
		if !domain.ValidSportType(sport) {
			return nil, fmt.Errorf("%w: unsupported sport type %q", ErrValidationFailed, filter.SportType)
		}
		repoFilter.SportType = &sport
	}
	if filter.Status != "" {
		status := domain.VideoStatus(filter.Status)
		switch status {
		case domain.StatusUploaded, domain.StatusProcessing, domain.StatusCompleted, domain.StatusFailed:
			repoFilter.Status = &status
		default:
			return nil, fmt.Errorf("%w: unsupported status %q", ErrValidationFailed, filter.Status)
		}
	}

	videos, err := s.videoRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	for i := range videos {
		analyses, err := s.analysisRepo.GetByVideoID(ctx, videos[i].ID)
		if err != nil {
			return nil, err
		}
		videos[i].Analyses = analyses
	}

	return videos, nil
}

// GetVideo retrieves a single video with its analysis results attached.
func (s *uploadService) GetVideo(ctx context.Context, videoID primitive.ObjectID) (*domain.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	analyses, err := s.analysisRepo.GetByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	video.Analyses = analyses

	return video, nil
}

// DeleteVideo removes a video, its analysis results, its job slots, and
// finally the stored object. Object deletion is best effort: the metadata
// is already gone and an orphaned object is only wasted space.
func (s *uploadService) DeleteVideo(ctx context.Context, videoID primitive.ObjectID) error {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVideoNotFound
		}
		return err
	}

	if err := s.analysisRepo.DeleteByVideoID(ctx, videoID); err != nil {
		return err
	}
	if err := s.jobSlotRepo.DeleteByVideoID(ctx, videoID); err != nil {
		return err
	}
	if err := s.videoRepo.Delete(ctx, videoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVideoNotFound
		}
		return err
	}

	if err := s.fileStorage.Delete(ctx, video.ObjectKey); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"video_id":   videoID.Hex(),
			"object_key": video.ObjectKey,
		}).Warn("Failed to delete stored object for removed video")
	}

	log.WithField("video_id", videoID.Hex()).Info("Video deleted")
	return nil
}

// GetPlaybackURL returns a temporary presigned URL for viewing the stored file.
func (s *uploadService) GetPlaybackURL(ctx context.Context, videoID primitive.ObjectID) (string, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrVideoNotFound
		}
		return "", err
	}

	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, video.ObjectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	return url, nil
}

// normalizeTeamList trims, drops empties, and dedupes while keeping order.
func normalizeTeamList(teams []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range teams {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
