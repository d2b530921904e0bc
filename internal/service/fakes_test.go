package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"matchvision/sports-video-app/internal/domain"
	"matchvision/sports-video-app/internal/inference"
	"matchvision/sports-video-app/internal/queue"
	"matchvision/sports-video-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory implementations of the repository, storage, queue, and inference
// interfaces. They mirror the semantics of the Mongo-backed versions closely
// enough for orchestration tests, including the CAS behavior of Acquire.

type memVideoRepo struct {
	mu         sync.Mutex
	videos     map[primitive.ObjectID]*domain.Video
	failCreate error
}

func newMemVideoRepo() *memVideoRepo {
	return &memVideoRepo{videos: make(map[primitive.ObjectID]*domain.Video)}
}

func (r *memVideoRepo) Create(ctx context.Context, video *domain.Video) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return primitive.NilObjectID, r.failCreate
	}
	video.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	video.CreatedAt = now
	video.UpdatedAt = now
	if video.Status == "" {
		video.Status = domain.StatusUploaded
	}
	clone := *video
	r.videos[video.ID] = &clone
	return video.ID, nil
}

func (r *memVideoRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *v
	return &clone, nil
}

func (r *memVideoRepo) List(ctx context.Context, filter repository.VideoFilter) ([]domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Video
	for _, v := range r.videos {
		if filter.SportType != nil && v.SportType != *filter.SportType {
			continue
		}
		if filter.Status != nil && v.Status != *filter.Status {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= int64(len(out)) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memVideoRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.VideoStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.Status = status
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memVideoRepo) UpdateIntakeMetadata(ctx context.Context, id primitive.ObjectID, duration float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.Duration = &duration
	v.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memVideoRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.videos, id)
	return nil
}

type memAnalysisRepo struct {
	mu         sync.Mutex
	results    map[primitive.ObjectID][]domain.AnalysisResult
	failCreate error
}

func newMemAnalysisRepo() *memAnalysisRepo {
	return &memAnalysisRepo{results: make(map[primitive.ObjectID][]domain.AnalysisResult)}
}

func (r *memAnalysisRepo) Create(ctx context.Context, result *domain.AnalysisResult) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return primitive.NilObjectID, r.failCreate
	}
	result.ID = primitive.NewObjectID()
	result.CreatedAt = time.Now().UTC()
	r.results[result.VideoID] = append(r.results[result.VideoID], *result)
	return result.ID, nil
}

func (r *memAnalysisRepo) GetByVideoID(ctx context.Context, videoID primitive.ObjectID) ([]domain.AnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AnalysisResult, len(r.results[videoID]))
	copy(out, r.results[videoID])
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memAnalysisRepo) CountByType(ctx context.Context, videoID primitive.ObjectID) (map[domain.AnalysisType]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.AnalysisType]int64)
	for _, res := range r.results[videoID] {
		counts[res.AnalysisType]++
	}
	return counts, nil
}

func (r *memAnalysisRepo) DeleteByVideoID(ctx context.Context, videoID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.results, videoID)
	return nil
}

type slotKey struct {
	videoID      primitive.ObjectID
	analysisType domain.AnalysisType
}

type memJobSlotRepo struct {
	mu    sync.Mutex
	slots map[slotKey]domain.JobSlot
}

func newMemJobSlotRepo() *memJobSlotRepo {
	return &memJobSlotRepo{slots: make(map[slotKey]domain.JobSlot)}
}

func (r *memJobSlotRepo) Acquire(ctx context.Context, videoID primitive.ObjectID, analysisType domain.AnalysisType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey{videoID, analysisType}
	if slot, ok := r.slots[key]; ok && slot.State == domain.JobRunning {
		return repository.ErrSlotHeld
	}
	now := time.Now().UTC()
	r.slots[key] = domain.JobSlot{
		ID:           primitive.NewObjectID(),
		VideoID:      videoID,
		AnalysisType: analysisType,
		State:        domain.JobRunning,
		StartedAt:    now,
		UpdatedAt:    now,
	}
	return nil
}

func (r *memJobSlotRepo) Release(ctx context.Context, videoID primitive.ObjectID, analysisType domain.AnalysisType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey{videoID, analysisType}
	slot, ok := r.slots[key]
	if !ok {
		return repository.ErrNotFound
	}
	slot.State = domain.JobIdle
	slot.UpdatedAt = time.Now().UTC()
	r.slots[key] = slot
	return nil
}

func (r *memJobSlotRepo) ReleaseStale(ctx context.Context, maxAge time.Duration) ([]domain.JobSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-maxAge)
	var released []domain.JobSlot
	for key, slot := range r.slots {
		if slot.State == domain.JobRunning && slot.StartedAt.Before(cutoff) {
			released = append(released, slot)
			slot.State = domain.JobIdle
			slot.UpdatedAt = time.Now().UTC()
			r.slots[key] = slot
		}
	}
	return released, nil
}

func (r *memJobSlotRepo) DeleteByVideoID(ctx context.Context, videoID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.slots {
		if key.videoID == videoID {
			delete(r.slots, key)
		}
	}
	return nil
}

func (r *memJobSlotRepo) state(videoID primitive.ObjectID, analysisType domain.AnalysisType) domain.JobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotKey{videoID, analysisType}]
	if !ok {
		return domain.JobIdle
	}
	return slot.State
}

// backdate rewinds a running slot's StartedAt for stale-sweep tests.
func (r *memJobSlotRepo) backdate(videoID primitive.ObjectID, analysisType domain.AnalysisType, age time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey{videoID, analysisType}
	slot := r.slots[key]
	slot.StartedAt = slot.StartedAt.Add(-age)
	r.slots[key] = slot
}

type memStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	failUpload error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (s *memStorage) Upload(ctx context.Context, objectKey string, contentType string, body io.Reader, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpload != nil {
		return s.failUpload
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[objectKey] = data
	return nil
}

func (s *memStorage) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(ctx context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectKey)
	s.deleted = append(s.deleted, objectKey)
	return nil
}

func (s *memStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://storage.example.com/" + objectKey, nil
}

func (s *memStorage) objectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type memPublisher struct {
	mu       sync.Mutex
	messages []queue.IntakeMessage
	failWith error
}

func (p *memPublisher) PublishIntake(ctx context.Context, msg queue.IntakeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *memPublisher) Close() error { return nil }

// funcEngine adapts a function to the inference.Engine interface.
type funcEngine func(ctx context.Context, objectKey string, analysisType domain.AnalysisType, parameters map[string]any) (*inference.Result, error)

func (f funcEngine) Infer(ctx context.Context, objectKey string, analysisType domain.AnalysisType, parameters map[string]any) (*inference.Result, error) {
	return f(ctx, objectKey, analysisType, parameters)
}
