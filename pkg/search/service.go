// Package search implements the facility search/detail/top-picks surface
// (spec §4.6): request validation over facility.Store, leaving pagination,
// sorting, and slice counting to the repository.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/calhealth/trustscore/internal/platform/metrics"
	"github.com/calhealth/trustscore/internal/platform/tracing"
	"github.com/calhealth/trustscore/internal/repositories/facility"
	"github.com/calhealth/trustscore/pkg/apierr"
	"github.com/calhealth/trustscore/pkg/models"
)

const (
	maxTopPicksLimit          = 50
	defaultAutocompleteLimit  = 8
	maxAutocompleteLimit      = 20
)

// Service is a thin validation layer in front of facility.Store.
type Service struct {
	store  facility.Store
	logger ectologger.Logger
}

func NewService(store facility.Store, logger ectologger.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Search validates raw query parameters and runs the search against the
// repository, recording request latency by sort order.
func (s *Service) Search(ctx context.Context, raw RequestParams) (models.SearchPage, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Service.Search")
	defer span.End()

	query, err := ParseQuery(raw)
	if err != nil {
		return models.SearchPage{}, err
	}

	start := time.Now()
	page, err := s.store.Search(ctx, query)
	metrics.RecordSearch(string(query.Sort), time.Since(start).Seconds())
	if err != nil {
		return models.SearchPage{}, apierr.Repository(err, "search facilities")
	}
	return page, nil
}

// Get returns one facility by id.
func (s *Service) Get(ctx context.Context, id string) (models.Facility, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Service.Get")
	defer span.End()

	f, err := s.store.GetByID(ctx, id)
	if err == facility.ErrNotFound {
		return models.Facility{}, apierr.NotFound("facility %s not found", id)
	}
	if err != nil {
		return models.Facility{}, apierr.Repository(err, "get facility %s", id)
	}
	return f, nil
}

// TopPicks returns the community's top-voted facilities. An unset limit
// defaults to 10; a limit above maxTopPicksLimit is rejected with a
// validation error (spec §6: "400 if limit>50").
func (s *Service) TopPicks(ctx context.Context, limit int) ([]models.Facility, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Service.TopPicks")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	if limit > maxTopPicksLimit {
		return nil, apierr.Validation("limit must be <= %d", maxTopPicksLimit)
	}

	facilities, err := s.store.TopVoted(ctx, limit)
	if err != nil {
		return nil, apierr.Repository(err, "list top voted facilities")
	}
	return facilities, nil
}

// Autocomplete returns type-ahead suggestions for prefix, clamping limit
// into [1, maxAutocompleteLimit] and defaulting it to
// defaultAutocompleteLimit when unset. A blank prefix returns no
// suggestions rather than an error — there's nothing wrong with the
// request, there's just nothing to suggest yet.
func (s *Service) Autocomplete(ctx context.Context, prefix string, limit int) ([]models.AutocompleteSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "search.Service.Autocomplete")
	defer span.End()

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []models.AutocompleteSuggestion{}, nil
	}

	switch {
	case limit <= 0:
		limit = defaultAutocompleteLimit
	case limit > maxAutocompleteLimit:
		limit = maxAutocompleteLimit
	}

	suggestions, err := s.store.Autocomplete(ctx, prefix, limit)
	if err != nil {
		return nil, apierr.Repository(err, "autocomplete facilities")
	}
	return suggestions, nil
}
