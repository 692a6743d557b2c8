// Package vote implements the like/dislike voting surface (spec §4.7):
// rate-limited by client identity, backed by facility.Store's atomic
// ApplyVote.
package vote

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/calhealth/trustscore/internal/platform/metrics"
	"github.com/calhealth/trustscore/internal/platform/tracing"
	"github.com/calhealth/trustscore/internal/repositories/facility"
	"github.com/calhealth/trustscore/pkg/apierr"
	"github.com/calhealth/trustscore/pkg/models"
)

// Config holds the two-bucket rate limit settings (spec §4.7).
type Config struct {
	PerFacilityInterval time.Duration
	GlobalLimit         int
	GlobalWindow        time.Duration
}

type Service struct {
	store   facility.Store
	limiter *Limiter
	logger  ectologger.Logger
}

func NewService(store facility.Store, cfg Config, logger ectologger.Logger) *Service {
	limiter := NewLimiter(cfg.PerFacilityInterval, cfg.GlobalLimit, cfg.GlobalWindow)
	go limiter.StartCleanup(cfg.GlobalWindow)
	return &Service{store: store, limiter: limiter, logger: logger}
}

// Close stops the limiter's background cleanup loop.
func (s *Service) Close() {
	s.limiter.Stop()
}

// Vote applies one like/dislike from clientID against facilityID, subject
// to the per-(client,facility) and per-client rate limits.
func (s *Service) Vote(ctx context.Context, clientID, facilityID string, kind models.VoteKind) (models.VoteSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "vote.Service.Vote")
	defer span.End()

	if kind != models.VoteLike && kind != models.VoteDislike {
		return models.VoteSummary{}, apierr.Validation("vote must be 'like' or 'dislike'")
	}

	if err := s.limiter.Allow(clientID, facilityID); err != nil {
		metrics.RecordVote(string(kind), "rate_limited")
		return models.VoteSummary{}, err
	}

	summary, err := s.store.ApplyVote(ctx, facilityID, kind)
	if err == facility.ErrNotFound {
		metrics.RecordVote(string(kind), "not_found")
		return models.VoteSummary{}, apierr.NotFound("facility %s not found", facilityID)
	}
	if err != nil {
		metrics.RecordVote(string(kind), "error")
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"facility_id": facilityID}).
			Error("failed to apply vote")
		return models.VoteSummary{}, apierr.Repository(err, "apply vote to %s", facilityID)
	}

	metrics.RecordVote(string(kind), "success")
	return summary, nil
}
