package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"matchvision/sports-video-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxFileSize = 100 * 1024 * 1024

type uploadFixture struct {
	videoRepo    *memVideoRepo
	analysisRepo *memAnalysisRepo
	jobSlotRepo  *memJobSlotRepo
	storage      *memStorage
	publisher    *memPublisher
	service      UploadService
}

func newUploadFixture() *uploadFixture {
	f := &uploadFixture{
		videoRepo:    newMemVideoRepo(),
		analysisRepo: newMemAnalysisRepo(),
		jobSlotRepo:  newMemJobSlotRepo(),
		storage:      newMemStorage(),
		publisher:    &memPublisher{},
	}
	f.service = NewUploadService(f.videoRepo, f.analysisRepo, f.jobSlotRepo, f.storage, f.publisher, testMaxFileSize)
	return f
}

func validUpload() UploadInput {
	return UploadInput{
		FileName:    "final.mp4",
		ContentType: "video/mp4",
		FileSize:    1024,
		Body:        strings.NewReader("fake video bytes"),
		Title:       "El Clasico",
		SportType:   domain.SportSoccer,
		Teams:       []string{"Real Madrid", "Barcelona"},
	}
}

func TestUploadVideoSuccess(t *testing.T) {
	f := newUploadFixture()

	video, err := f.service.UploadVideo(context.Background(), validUpload())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusUploaded, video.Status)
	assert.False(t, video.CreatedAt.After(video.UpdatedAt), "createdAt must be <= updatedAt")
	assert.NotEmpty(t, video.ObjectKey)
	assert.Equal(t, []string{"Real Madrid", "Barcelona"}, video.Teams)
	assert.Equal(t, 1, f.storage.objectCount())

	// The intake scheduling signal references the new video.
	require.Len(t, f.publisher.messages, 1)
	assert.Equal(t, video.ID.Hex(), f.publisher.messages[0].VideoID)
	assert.Equal(t, video.ObjectKey, f.publisher.messages[0].ObjectKey)
}

func TestUploadVideoValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadInput)
	}{
		{"missing title", func(in *UploadInput) { in.Title = "   " }},
		{"missing sport type", func(in *UploadInput) { in.SportType = "" }},
		{"unknown sport type", func(in *UploadInput) { in.SportType = "curling" }},
		{"bad extension", func(in *UploadInput) { in.FileName = "final.exe" }},
		{"no extension", func(in *UploadInput) { in.FileName = "final" }},
		{"empty file", func(in *UploadInput) { in.FileSize = 0 }},
		{"oversize file", func(in *UploadInput) { in.FileSize = testMaxFileSize + 1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newUploadFixture()
			input := validUpload()
			tc.mutate(&input)

			_, err := f.service.UploadVideo(context.Background(), input)
			assert.ErrorIs(t, err, ErrValidationFailed)

			// Fail fast: nothing persisted, nothing stored, nothing queued.
			videos, listErr := f.service.ListVideos(context.Background(), ListFilter{})
			require.NoError(t, listErr)
			assert.Empty(t, videos)
			assert.Zero(t, f.storage.objectCount())
			assert.Empty(t, f.publisher.messages)
		})
	}
}

func TestUploadVideoStorageFailure(t *testing.T) {
	f := newUploadFixture()
	f.storage.failUpload = errors.New("bucket unavailable")

	_, err := f.service.UploadVideo(context.Background(), validUpload())
	assert.ErrorIs(t, err, ErrStorageFailed)

	videos, listErr := f.service.ListVideos(context.Background(), ListFilter{})
	require.NoError(t, listErr)
	assert.Empty(t, videos, "no video record may exist after a storage failure")
}

func TestUploadVideoRecordFailureCompensatesStorage(t *testing.T) {
	f := newUploadFixture()
	f.videoRepo.failCreate = errors.New("write conflict")

	_, err := f.service.UploadVideo(context.Background(), validUpload())
	assert.ErrorIs(t, err, ErrStorageFailed)

	// The stored object was cleaned up so neither side is visible.
	assert.Zero(t, f.storage.objectCount())
	assert.Len(t, f.storage.deleted, 1)
}

func TestUploadVideoQueueFailureDoesNotFailUpload(t *testing.T) {
	f := newUploadFixture()
	f.publisher.failWith = errors.New("broker down")

	video, err := f.service.UploadVideo(context.Background(), validUpload())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUploaded, video.Status)
}

func TestListVideosFilters(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	soccer, err := f.service.UploadVideo(ctx, validUpload())
	require.NoError(t, err)

	hoops := validUpload()
	hoops.Title = "Game 7"
	hoops.SportType = domain.SportBasketball
	hoops.Body = strings.NewReader("more bytes")
	_, err = f.service.UploadVideo(ctx, hoops)
	require.NoError(t, err)

	require.NoError(t, f.videoRepo.UpdateStatus(ctx, soccer.ID, domain.StatusProcessing))
	require.NoError(t, f.videoRepo.UpdateStatus(ctx, soccer.ID, domain.StatusCompleted))

	bySport, err := f.service.ListVideos(ctx, ListFilter{SportType: "soccer"})
	require.NoError(t, err)
	require.Len(t, bySport, 1)
	assert.Equal(t, soccer.ID, bySport[0].ID)

	byStatus, err := f.service.ListVideos(ctx, ListFilter{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, soccer.ID, byStatus[0].ID)

	_, err = f.service.ListVideos(ctx, ListFilter{Status: "uploading"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.service.ListVideos(ctx, ListFilter{SportType: "chess"})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestGetVideoAttachesAnalyses(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	video, err := f.service.UploadVideo(ctx, validUpload())
	require.NoError(t, err)

	_, err = f.analysisRepo.Create(ctx, &domain.AnalysisResult{
		VideoID:         video.ID,
		AnalysisType:    domain.AnalysisGoalDetection,
		ConfidenceScore: 0.9,
	})
	require.NoError(t, err)

	got, err := f.service.GetVideo(ctx, video.ID)
	require.NoError(t, err)
	require.Len(t, got.Analyses, 1)
	assert.Equal(t, domain.AnalysisGoalDetection, got.Analyses[0].AnalysisType)
}

func TestDeleteVideoCascades(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	video, err := f.service.UploadVideo(ctx, validUpload())
	require.NoError(t, err)
	other, err := f.service.UploadVideo(ctx, func() UploadInput {
		in := validUpload()
		in.Title = "Another match"
		in.Body = strings.NewReader("other bytes")
		return in
	}())
	require.NoError(t, err)

	for _, id := range []struct {
		video *domain.Video
	}{{video}, {other}} {
		_, err = f.analysisRepo.Create(ctx, &domain.AnalysisResult{
			VideoID:      id.video.ID,
			AnalysisType: domain.AnalysisGoalDetection,
		})
		require.NoError(t, err)
	}

	require.NoError(t, f.service.DeleteVideo(ctx, video.ID))

	_, err = f.service.GetVideo(ctx, video.ID)
	assert.ErrorIs(t, err, ErrVideoNotFound)

	analyses, err := f.analysisRepo.GetByVideoID(ctx, video.ID)
	require.NoError(t, err)
	assert.Empty(t, analyses)

	// The other video's results are untouched.
	otherAnalyses, err := f.analysisRepo.GetByVideoID(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, otherAnalyses, 1)

	// The stored object is gone.
	assert.Contains(t, f.storage.deleted, video.ObjectKey)

	assert.ErrorIs(t, f.service.DeleteVideo(ctx, video.ID), ErrVideoNotFound)
}

func TestGetPlaybackURL(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	video, err := f.service.UploadVideo(ctx, validUpload())
	require.NoError(t, err)

	url, err := f.service.GetPlaybackURL(ctx, video.ID)
	require.NoError(t, err)
	assert.Contains(t, url, video.ObjectKey)
}
