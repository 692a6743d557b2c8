// Package facility defines the repository abstraction shared by both
// backends (durable SQL and ephemeral in-memory) and implements the
// ephemeral one directly. The durable backend lives alongside it in
// sqlstore.go.
package facility

import (
	"context"
	"errors"

	"github.com/calhealth/trustscore/pkg/models"
)

// ErrNotFound is returned by GetByID and GetByKey when no matching
// facility exists. Callers map it onto apierr.NotFound at the service
// boundary rather than every repository call site repeating that mapping.
var ErrNotFound = errors.New("facility: not found")

// Store is the repository contract both backends implement (spec §4.4).
// Geospatial and text predicates inside Search are executed by the store,
// not the caller, so each backend can use whatever indexing strategy suits
// it (SQL predicates vs. an in-process grid-bucket index).
type Store interface {
	// Upsert writes a facility, idempotent by ID. Callers are responsible
	// for resolving an existing facility's ID and vote counters before
	// calling Upsert with an update (pkg/merging does this).
	Upsert(ctx context.Context, f models.Facility) error

	// GetByID returns ErrNotFound if no facility has this id.
	GetByID(ctx context.Context, id string) (models.Facility, error)

	// GetByKey looks up a facility by its ingestion identity, used by the
	// merge engine to preserve an existing facility's id and vote counters
	// across re-ingestion. Returns ErrNotFound if none exists yet.
	GetByKey(ctx context.Context, key models.IngestionKey) (models.Facility, error)

	Search(ctx context.Context, q models.SearchQuery) (models.SearchPage, error)

	// Autocomplete returns up to limit type-ahead suggestions whose name,
	// city, or postal code match prefix, ranked by textual closeness first
	// and popularity/trust second. prefix is assumed non-empty; callers
	// validate and trim before calling.
	Autocomplete(ctx context.Context, prefix string, limit int) ([]models.AutocompleteSuggestion, error)

	// TopVoted returns up to limit facilities ordered by likes desc, then
	// vote_score desc, then trust_score desc, ties broken by id ascending.
	TopVoted(ctx context.Context, limit int) ([]models.Facility, error)

	// ApplyVote atomically increments the chosen counter and returns the
	// updated tally. Returns ErrNotFound if the facility doesn't exist.
	ApplyVote(ctx context.Context, id string, kind models.VoteKind) (models.VoteSummary, error)

	IngestionStats(ctx context.Context) (models.IngestionStats, error)
	RecordConnectorStatus(ctx context.Context, status models.ConnectorStatus) error
	RecordRefreshCompleted(ctx context.Context) error
}
