package vote

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calhealth/trustscore/internal/repositories/facility"
	"github.com/calhealth/trustscore/pkg/apierr"
	"github.com/calhealth/trustscore/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

func newTestService(t *testing.T) (*Service, facility.Store) {
	store := facility.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), models.Facility{ID: "X", Name: "Facility X", Band: models.BandGood}))

	svc := NewService(store, Config{PerFacilityInterval: time.Minute, GlobalLimit: 20, GlobalWindow: 10 * time.Minute}, testLogger())
	t.Cleanup(svc.Close)
	return svc, store
}

// TestVote_S5_TwoClientsThenRateLimited follows spec scenario S5.
func TestVote_S5_TwoClientsThenRateLimited(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	s1, err := svc.Vote(ctx, "client-1", "X", models.VoteLike)
	require.NoError(t, err)
	assert.Equal(t, models.VoteSummary{Likes: 1, Dislikes: 0, VoteScore: 1}, s1)

	s2, err := svc.Vote(ctx, "client-2", "X", models.VoteLike)
	require.NoError(t, err)
	assert.Equal(t, models.VoteSummary{Likes: 2, Dislikes: 0, VoteScore: 2}, s2)

	_, err = svc.Vote(ctx, "client-1", "X", models.VoteLike)
	require.Error(t, err)
	assert.Equal(t, apierr.KindRateLimited, apierr.KindOf(err))
}

func TestVote_RejectsUnknownKind(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Vote(context.Background(), "client-1", "X", models.VoteKind("up"))
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
}

func TestVote_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Vote(context.Background(), "client-1", "missing", models.VoteLike)
	require.Error(t, err)
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
}

func TestVote_DislikeUpdatesCounters(t *testing.T) {
	svc, _ := newTestService(t)
	summary, err := svc.Vote(context.Background(), "client-1", "X", models.VoteDislike)
	require.NoError(t, err)
	assert.Equal(t, models.VoteSummary{Likes: 0, Dislikes: 1, VoteScore: -1}, summary)
}
