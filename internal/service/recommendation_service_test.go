package service

import (
	"context"
	"testing"
	"time"

	"matchvision/sports-video-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedCompletedVideo(t *testing.T, repo *memVideoRepo, title string, sport domain.SportType, teams []string, createdAt time.Time) primitive.ObjectID {
	t.Helper()
	id, err := repo.Create(context.Background(), &domain.Video{
		Title:     title,
		SportType: sport,
		Teams:     teams,
		ObjectKey: "videos/" + title + ".mp4",
		Status:    domain.StatusCompleted,
	})
	require.NoError(t, err)
	repo.mu.Lock()
	repo.videos[id].CreatedAt = createdAt
	repo.videos[id].UpdatedAt = createdAt
	repo.mu.Unlock()
	return id
}

func TestRecommendTeamOverlapScenario(t *testing.T) {
	repo := newMemVideoRepo()
	svc := NewRecommendationService(repo)
	now := time.Now().UTC()

	a := seedCompletedVideo(t, repo, "clasico", domain.SportSoccer,
		[]string{"Real Madrid", "Barcelona"}, now)
	b := seedCompletedVideo(t, repo, "city-match", domain.SportSoccer,
		[]string{"Real Madrid", "Man City"}, now)

	recs, err := svc.Recommend(context.Background(), a, 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, b, recs[0].Video.ID)
	// Jaccard: one shared team out of three distinct -> 1/3.
	assert.InDelta(t, 1.0/3.0, domain.TeamOverlap(&domain.Video{Teams: []string{"Real Madrid", "Barcelona"}}, &recs[0].Video), 1e-9)
	// Same creation instant -> full recency factor.
	assert.InDelta(t, (1.0/3.0)*0.7+0.3, recs[0].SimilarityScore, 1e-9)
	assert.Contains(t, recs[0].Reason, "Real Madrid")
}

func TestRecommendFiltersCandidates(t *testing.T) {
	repo := newMemVideoRepo()
	svc := NewRecommendationService(repo)
	now := time.Now().UTC()
	ctx := context.Background()

	source := seedCompletedVideo(t, repo, "source", domain.SportSoccer, []string{"Arsenal", "Chelsea"}, now)
	sameSport := seedCompletedVideo(t, repo, "candidate", domain.SportSoccer, []string{"Arsenal", "Spurs"}, now)
	seedCompletedVideo(t, repo, "hoops", domain.SportBasketball, []string{"Lakers"}, now)

	// A video of the right sport but not completed is not recommendable.
	pending, err := repo.Create(ctx, &domain.Video{
		Title:     "pending",
		SportType: domain.SportSoccer,
		Teams:     []string{"Arsenal", "Chelsea"},
		ObjectKey: "videos/pending.mp4",
		Status:    domain.StatusUploaded,
	})
	require.NoError(t, err)

	recs, err := svc.Recommend(ctx, source, 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, sameSport, recs[0].Video.ID)

	for _, rec := range recs {
		assert.NotEqual(t, source, rec.Video.ID, "the source video never recommends itself")
		assert.NotEqual(t, pending, rec.Video.ID)
		assert.Equal(t, domain.SportSoccer, rec.Video.SportType)
	}
}

func TestRecommendOrderingAndLimit(t *testing.T) {
	repo := newMemVideoRepo()
	svc := NewRecommendationService(repo)
	now := time.Now().UTC()

	source := seedCompletedVideo(t, repo, "source", domain.SportTennis, []string{"Alcaraz", "Sinner"}, now)

	// Eight candidates with decreasing team overlap and varying age.
	for i := 0; i < 4; i++ {
		seedCompletedVideo(t, repo, "strong", domain.SportTennis,
			[]string{"Alcaraz", "Sinner"}, now.Add(-time.Duration(i)*24*time.Hour))
	}
	for i := 0; i < 4; i++ {
		seedCompletedVideo(t, repo, "weak", domain.SportTennis,
			[]string{"Djokovic"}, now.Add(-time.Duration(i)*24*time.Hour))
	}

	recs, err := svc.Recommend(context.Background(), source, 5)
	require.NoError(t, err)
	assert.Len(t, recs, 5, "result is bounded by limit")

	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].SimilarityScore, recs[i].SimilarityScore,
			"scores are non-increasing")
	}

	// Among equal overlaps, newer candidates rank first.
	for i := 1; i < 4; i++ {
		assert.True(t, !recs[i-1].Video.CreatedAt.Before(recs[i].Video.CreatedAt))
	}
}

func TestRecommendDeterministicTieBreak(t *testing.T) {
	repo := newMemVideoRepo()
	svc := NewRecommendationService(repo)
	now := time.Now().UTC()

	source := seedCompletedVideo(t, repo, "source", domain.SportHockey, []string{"Bruins"}, now)
	seedCompletedVideo(t, repo, "tie-a", domain.SportHockey, []string{"Bruins"}, now)
	seedCompletedVideo(t, repo, "tie-b", domain.SportHockey, []string{"Bruins"}, now)

	first, err := svc.Recommend(context.Background(), source, 5)
	require.NoError(t, err)
	second, err := svc.Recommend(context.Background(), source, 5)
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].Video.ID, second[i].Video.ID,
			"same catalog state yields the same ranking")
	}
	// Equal score and timestamp fall back to id ascending.
	assert.Less(t, first[0].Video.ID.Hex(), first[1].Video.ID.Hex())
}

func TestRecommendEmptyTeams(t *testing.T) {
	repo := newMemVideoRepo()
	svc := NewRecommendationService(repo)
	now := time.Now().UTC()

	source := seedCompletedVideo(t, repo, "source", domain.SportSoccer, nil, now)
	seedCompletedVideo(t, repo, "candidate", domain.SportSoccer, []string{"Ajax"}, now)

	recs, err := svc.Recommend(context.Background(), source, 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	// No team signal: score is recency only.
	assert.InDelta(t, 0.3, recs[0].SimilarityScore, 1e-9)
}

func TestRecommendUnknownVideo(t *testing.T) {
	svc := NewRecommendationService(newMemVideoRepo())
	_, err := svc.Recommend(context.Background(), primitive.NewObjectID(), 5)
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
