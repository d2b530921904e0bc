package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchvision/sports-video-app/internal/domain"
	"matchvision/sports-video-app/internal/inference"
	"matchvision/sports-video-app/internal/metrics"
	"matchvision/sports-video-app/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrUnsupportedAnalysisType = errors.New("unsupported analysis type")
	ErrAnalysisConflict        = errors.New("analysis already running for this video and type")
	ErrAnalysisTimeout         = errors.New("analysis timed out")
	ErrInferenceFailed         = errors.New("inference failed")
)

// CompletionPolicy names for AnalysisConfig.CompletionPolicy.
const (
	CompletionPolicyAny = "any"
	CompletionPolicyAll = "all"
)

// --- Service Interface ---
type AnalysisService interface {
	RequestAnalysis(ctx context.Context, videoID primitive.ObjectID, analysisType domain.AnalysisType, parameters map[string]any) (*domain.AnalysisResult, error)
	ListAnalyses(ctx context.Context, videoID primitive.ObjectID) ([]domain.AnalysisResult, error)
	// ReapStaleSlots resets running job slots older than the configured age
	// and records the failure on their videos. It is the recovery path for
	// a crash between inference and result persistence.
	ReapStaleSlots(ctx context.Context) error
}

// --- Service Implementation ---

// analysisService implements the AnalysisService interface. It is the
// orchestrator: it enforces one running job per (video, analysis type),
// drives the video status machine, and treats the inference engine as an
// opaque collaborator that may be slow or fail.
type analysisService struct {
	videoRepo        repository.VideoRepository
	analysisRepo     repository.AnalysisRepository
	jobSlotRepo      repository.JobSlotRepository
	engine           inference.Engine
	inferenceTimeout time.Duration
	staleSlotAge     time.Duration
	completionPolicy string
}

// NewAnalysisService creates a new instance of analysisService.
func NewAnalysisService(
	videoRepo repository.VideoRepository,
	analysisRepo repository.AnalysisRepository,
	jobSlotRepo repository.JobSlotRepository,
	engine inference.Engine,
	inferenceTimeout time.Duration,
	staleSlotAge time.Duration,
	completionPolicy string,
) AnalysisService {
	if inferenceTimeout <= 0 {
		inferenceTimeout = 2 * time.Minute
	}
	if staleSlotAge <= 0 {
		staleSlotAge = 10 * time.Minute
	}
	if completionPolicy != CompletionPolicyAll {
		completionPolicy = CompletionPolicyAny
	}
	return &analysisService{
		videoRepo:        videoRepo,
		analysisRepo:     analysisRepo,
		jobSlotRepo:      jobSlotRepo,
		engine:           engine,
		inferenceTimeout: inferenceTimeout,
		staleSlotAge:     staleSlotAge,
		completionPolicy: completionPolicy,
	}
}

// inferOutcome carries the result of one inference goroutine.
type inferOutcome struct {
	result *inference.Result
	err    error
}

// RequestAnalysis runs one analysis job for the video. Exactly one job per
// (video, analysis type) may run at a time; concurrent requests for the
// same key are rejected with ErrAnalysisConflict rather than queued.
func (s *analysisService) RequestAnalysis(ctx context.Context, videoID primitive.ObjectID, analysisType domain.AnalysisType, parameters map[string]any) (*domain.AnalysisResult, error) {
	if !domain.ValidAnalysisType(analysisType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAnalysisType, analysisType)
	}
	if err := domain.ValidateAnalysisParameters(analysisType, parameters); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	if err := s.jobSlotRepo.Acquire(ctx, videoID, analysisType); err != nil {
		if errors.Is(err, repository.ErrSlotHeld) {
			metrics.AnalysesTotal.WithLabelValues(string(analysisType), "conflict").Inc()
			return nil, ErrAnalysisConflict
		}
		return nil, err
	}

	priorStatus := video.Status
	if video.Status != domain.StatusProcessing && video.Status.CanTransition(domain.StatusProcessing) {
		if err := s.videoRepo.UpdateStatus(ctx, videoID, domain.StatusProcessing); err != nil {
			s.releaseSlot(videoID, analysisType)
			return nil, err
		}
	}

	logger := log.WithFields(log.Fields{
		"video_id":      videoID.Hex(),
		"analysis_type": analysisType,
	})
	logger.Info("Analysis job started")
	started := time.Now()

	// Run the inference under its own deadline. The buffered channel lets a
	// late result arrive after a timeout or cancellation without leaking
	// the goroutine; the result is simply discarded.
	inferCtx, cancel := context.WithTimeout(ctx, s.inferenceTimeout)
	defer cancel()

	outcomes := make(chan inferOutcome, 1)
	go func() {
		result, err := s.engine.Infer(inferCtx, video.ObjectKey, analysisType, parameters)
		outcomes <- inferOutcome{result: result, err: err}
	}()

	var outcome inferOutcome
	select {
	case outcome = <-outcomes:
	case <-inferCtx.Done():
		s.releaseSlot(videoID, analysisType)
		if ctx.Err() != nil {
			// Caller tore down its context: put the video back where it
			// was and report the cancellation.
			s.restoreStatus(videoID, priorStatus)
			metrics.AnalysesTotal.WithLabelValues(string(analysisType), "cancelled").Inc()
			logger.Warn("Analysis cancelled by caller")
			return nil, ctx.Err()
		}
		s.recordFailure(videoID)
		metrics.AnalysesTotal.WithLabelValues(string(analysisType), "timeout").Inc()
		logger.WithField("timeout", s.inferenceTimeout).Warn("Analysis timed out")
		return nil, ErrAnalysisTimeout
	}

	if outcome.err != nil {
		s.releaseSlot(videoID, analysisType)
		s.recordFailure(videoID)
		metrics.AnalysesTotal.WithLabelValues(string(analysisType), "failed").Inc()
		logger.WithError(outcome.err).Error("Analysis failed")
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, outcome.err)
	}

	analysis := &domain.AnalysisResult{
		VideoID:         videoID,
		AnalysisType:    analysisType,
		Parameters:      parameters,
		ConfidenceScore: outcome.result.ConfidenceScore,
		Payload:         outcome.result.Payload,
	}
	analysisID, err := s.analysisRepo.Create(ctx, analysis)
	if err != nil {
		// The slot stays held until the recovery sweep if release fails
		// too; recordFailure keeps the video status honest either way.
		s.releaseSlot(videoID, analysisType)
		s.recordFailure(videoID)
		metrics.AnalysesTotal.WithLabelValues(string(analysisType), "failed").Inc()
		logger.WithError(err).Error("Failed to persist analysis result")
		return nil, fmt.Errorf("%w: %v", ErrStorageFailed, err)
	}
	analysis.ID = analysisID

	if err := s.recomputeVideoStatus(context.WithoutCancel(ctx), videoID); err != nil {
		logger.WithError(err).Warn("Failed to recompute video status after analysis")
	}
	s.releaseSlot(videoID, analysisType)

	metrics.AnalysesTotal.WithLabelValues(string(analysisType), "succeeded").Inc()
	metrics.AnalysisDuration.WithLabelValues(string(analysisType)).Observe(time.Since(started).Seconds())
	logger.WithField("confidence", analysis.ConfidenceScore).Info("Analysis job succeeded")

	return analysis, nil
}

// ListAnalyses returns all analysis results for a video, newest first.
func (s *analysisService) ListAnalyses(ctx context.Context, videoID primitive.ObjectID) ([]domain.AnalysisResult, error) {
	if _, err := s.videoRepo.GetByID(ctx, videoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return s.analysisRepo.GetByVideoID(ctx, videoID)
}

// ReapStaleSlots resets orphaned running slots and records the failure on
// their videos.
func (s *analysisService) ReapStaleSlots(ctx context.Context) error {
	released, err := s.jobSlotRepo.ReleaseStale(ctx, s.staleSlotAge)
	if err != nil {
		return err
	}
	for _, slot := range released {
		metrics.StaleSlotsReleased.Inc()
		log.WithFields(log.Fields{
			"video_id":      slot.VideoID.Hex(),
			"analysis_type": slot.AnalysisType,
			"started_at":    slot.StartedAt,
		}).Warn("Reset stale running job slot")
		if err := s.recomputeVideoStatus(ctx, slot.VideoID); err != nil {
			log.WithError(err).WithField("video_id", slot.VideoID.Hex()).
				Warn("Failed to recompute video status after stale-slot reset")
		}
	}
	return nil
}

// releaseSlot returns the job slot to idle. It deliberately does not use the
// request context: slot release must happen even when the caller is gone.
func (s *analysisService) releaseSlot(videoID primitive.ObjectID, analysisType domain.AnalysisType) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.jobSlotRepo.Release(ctx, videoID, analysisType); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"video_id":      videoID.Hex(),
			"analysis_type": analysisType,
		}).Error("Failed to release job slot")
	}
}

// restoreStatus puts the video back to the status it had before this
// request, used when the caller cancels mid-flight.
func (s *analysisService) restoreStatus(videoID primitive.ObjectID, status domain.VideoStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.videoRepo.UpdateStatus(ctx, videoID, status); err != nil {
		log.WithError(err).WithField("video_id", videoID.Hex()).
			Warn("Failed to restore video status after cancellation")
	}
}

// recordFailure applies the failure rule: a video only becomes failed when
// it has zero successful analyses; successful history is never erased.
func (s *analysisService) recordFailure(videoID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.recomputeVideoStatus(ctx, videoID); err != nil {
		log.WithError(err).WithField("video_id", videoID.Hex()).
			Warn("Failed to recompute video status after analysis failure")
	}
}

// recomputeVideoStatus derives the video's overall status from its recorded
// analysis results and the completion policy:
//   - no results at all -> failed
//   - policy satisfied  -> completed
//   - otherwise the video stays in processing awaiting the remaining types.
func (s *analysisService) recomputeVideoStatus(ctx context.Context, videoID primitive.ObjectID) error {
	counts, err := s.analysisRepo.CountByType(ctx, videoID)
	if err != nil {
		return err
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	target := domain.StatusProcessing
	switch {
	case total == 0:
		target = domain.StatusFailed
	case s.completionSatisfied(counts):
		target = domain.StatusCompleted
	}
	if target == domain.StatusProcessing {
		return nil
	}

	err = s.videoRepo.UpdateStatus(ctx, videoID, target)
	if errors.Is(err, repository.ErrNotFound) {
		// Video deleted concurrently; nothing left to update.
		return nil
	}
	return err
}

// completionSatisfied applies the configured completion policy to the
// per-type success counts.
func (s *analysisService) completionSatisfied(counts map[domain.AnalysisType]int64) bool {
	if s.completionPolicy == CompletionPolicyAll {
		for _, t := range domain.AllAnalysisTypes {
			if counts[t] == 0 {
				return false
			}
		}
		return true
	}
	for _, c := range counts {
		if c > 0 {
			return true
		}
	}
	return false
}
