package facility

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/calhealth/trustscore/internal/platform/tracing"
	"github.com/calhealth/trustscore/pkg/geo"
	"github.com/calhealth/trustscore/pkg/models"
)

var facilityColumns = []string{
	"id", "jurisdiction", "source_facility_key", "name", "address", "city",
	"state", "postal_code", "latitude", "longitude", "trust_score", "band",
	"latest_inspection_date", "likes", "dislikes", "created_at", "updated_at",
}

// SQLStore is the durable backend: a relational store with rows indexed by
// id and by (jurisdiction, source_facility_key), executing geospatial and
// text predicates itself (spec §4.4). Geo math is expressed directly in SQL
// via the haversine formula — no PostGIS extension is assumed.
type SQLStore struct {
	db     *sqlx.DB
	logger ectologger.Logger
}

func NewSQLStore(db *sqlx.DB, logger ectologger.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

// Upsert writes a facility row, idempotent by id. As in the ephemeral
// backend, the row is addressed by primary key because the caller
// (pkg/merging) has already resolved any pre-existing id via GetByKey.
func (s *SQLStore) Upsert(ctx context.Context, f models.Facility) error {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.Upsert")
	defer span.End()

	now := time.Now().UTC()
	var lat, lon *float64
	if f.HasCoordinates() {
		lat, lon = f.Latitude, f.Longitude
	}

	query := `
		INSERT INTO facilities (
			id, jurisdiction, source_facility_key, name, address, city, state,
			postal_code, latitude, longitude, trust_score, band,
			latest_inspection_date, likes, dislikes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		ON CONFLICT (id) DO UPDATE SET
			jurisdiction = EXCLUDED.jurisdiction,
			source_facility_key = EXCLUDED.source_facility_key,
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			postal_code = EXCLUDED.postal_code,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			trust_score = EXCLUDED.trust_score,
			band = EXCLUDED.band,
			latest_inspection_date = EXCLUDED.latest_inspection_date,
			likes = EXCLUDED.likes,
			dislikes = EXCLUDED.dislikes,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		f.ID, f.Jurisdiction, f.SourceFacilityKey, f.Name, f.Address, f.City, f.State,
		f.PostalCode, lat, lon, f.TrustScore, string(f.Band),
		f.LatestInspectionDate, f.Likes, f.Dislikes, now,
	)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": f.ID}).Error("failed to upsert facility")
		return fmt.Errorf("upsert facility %s: %w", f.ID, err)
	}
	return nil
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (models.Facility, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(facilityColumns...)
	sb.From("facilities")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var f models.Facility
	if err := s.db.GetContext(ctx, &f, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return models.Facility{}, ErrNotFound
		}
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("failed to get facility")
		return models.Facility{}, fmt.Errorf("get facility %s: %w", id, err)
	}
	f.SyncCoordinates()
	return f, nil
}

func (s *SQLStore) GetByKey(ctx context.Context, key models.IngestionKey) (models.Facility, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.GetByKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(facilityColumns...)
	sb.From("facilities")
	sb.Where(
		sb.Equal("jurisdiction", key.Jurisdiction),
		sb.Equal("source_facility_key", key.SourceFacilityKey),
	)

	query, args := sb.Build()
	var f models.Facility
	if err := s.db.GetContext(ctx, &f, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return models.Facility{}, ErrNotFound
		}
		s.logger.WithContext(ctx).WithError(err).Error("failed to get facility by key")
		return models.Facility{}, fmt.Errorf("get facility by key: %w", err)
	}
	f.SyncCoordinates()
	return f, nil
}

func (s *SQLStore) TopVoted(ctx context.Context, limit int) ([]models.Facility, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.TopVoted")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(facilityColumns...)
	sb.From("facilities")
	sb.OrderBy("likes DESC", "(likes - dislikes) DESC", "trust_score DESC", "id ASC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var facilities []models.Facility
	if err := s.db.SelectContext(ctx, &facilities, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to list top voted facilities")
		return nil, fmt.Errorf("top voted facilities: %w", err)
	}
	for i := range facilities {
		facilities[i].SyncCoordinates()
	}
	return facilities, nil
}

func (s *SQLStore) ApplyVote(ctx context.Context, id string, kind models.VoteKind) (models.VoteSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.ApplyVote")
	defer span.End()

	column := "likes"
	if kind == models.VoteDislike {
		column = "dislikes"
	}

	query := fmt.Sprintf(`
		UPDATE facilities SET %s = %s + 1, updated_at = $1
		WHERE id = $2
		RETURNING likes, dislikes
	`, column, column)

	var summary models.VoteSummary
	err := s.db.QueryRowContext(ctx, query, time.Now().UTC(), id).Scan(&summary.Likes, &summary.Dislikes)
	if err == sql.ErrNoRows {
		return models.VoteSummary{}, ErrNotFound
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id, "kind": kind}).Error("failed to apply vote")
		return models.VoteSummary{}, fmt.Errorf("apply vote to %s: %w", id, err)
	}
	summary.VoteScore = summary.Likes - summary.Dislikes
	return summary, nil
}

func (s *SQLStore) IngestionStats(ctx context.Context) (models.IngestionStats, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.IngestionStats")
	defer span.End()

	var stats models.IngestionStats

	if err := s.db.GetContext(ctx, &stats.UniqueFacilities, "SELECT COUNT(*) FROM facilities"); err != nil {
		return models.IngestionStats{}, fmt.Errorf("count facilities: %w", err)
	}

	var lastRefresh sql.NullTime
	err := s.db.GetContext(ctx, &lastRefresh, "SELECT last_refresh_at FROM refresh_state WHERE id = TRUE")
	if err != nil && err != sql.ErrNoRows {
		return models.IngestionStats{}, fmt.Errorf("get last refresh: %w", err)
	}
	if lastRefresh.Valid {
		t := lastRefresh.Time
		stats.LastRefreshAt = &t
	}

	rows, err := s.db.QueryxContext(ctx, "SELECT source, fetched_records, error, ran_at FROM connector_status ORDER BY source")
	if err != nil {
		return models.IngestionStats{}, fmt.Errorf("list connector status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cs models.ConnectorStatus
		var errText sql.NullString
		if err := rows.Scan(&cs.Source, &cs.FetchedRecords, &errText, &cs.RanAt); err != nil {
			return models.IngestionStats{}, fmt.Errorf("scan connector status: %w", err)
		}
		if errText.Valid {
			cs.Error = &errText.String
		}
		stats.ConnectorStats = append(stats.ConnectorStats, cs)
	}

	return stats, nil
}

func (s *SQLStore) RecordConnectorStatus(ctx context.Context, status models.ConnectorStatus) error {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.RecordConnectorStatus")
	defer span.End()

	query := `
		INSERT INTO connector_status (source, fetched_records, error, ran_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source) DO UPDATE SET
			fetched_records = EXCLUDED.fetched_records,
			error = EXCLUDED.error,
			ran_at = EXCLUDED.ran_at
	`
	if _, err := s.db.ExecContext(ctx, query, status.Source, status.FetchedRecords, status.Error, status.RanAt); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source": status.Source}).Error("failed to record connector status")
		return fmt.Errorf("record connector status for %s: %w", status.Source, err)
	}
	return nil
}

func (s *SQLStore) RecordRefreshCompleted(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.RecordRefreshCompleted")
	defer span.End()

	query := `
		INSERT INTO refresh_state (id, last_refresh_at) VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET last_refresh_at = EXCLUDED.last_refresh_at
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC()); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to record refresh completion")
		return fmt.Errorf("record refresh completed: %w", err)
	}
	return nil
}

// searchFilter holds the predicates shared by every score slice
// (keyword/geo/jurisdiction/recency), built with manually-tracked
// positional placeholders so the same WHERE clause and argument list can
// be reused verbatim across the slice-count query, the per-slice count
// query, and the paginated data query — go-sqlbuilder's own placeholder
// allocator is scoped to a single builder, which doesn't fit reusing one
// set of conditions across three separately-built queries.
type searchFilter struct {
	clause string
	args   []any
}

func buildSearchFilter(q models.SearchQuery) searchFilter {
	var conditions []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case q.Keyword != "":
		needle := "%" + q.Keyword + "%"
		ph := next(needle)
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE %s OR address ILIKE %s OR city ILIKE %s OR postal_code ILIKE %s)",
			ph, ph, ph, ph,
		))
	case q.HasGeo && q.RadiusMiles > 0:
		conditions = append(conditions, fmt.Sprintf(
			"latitude IS NOT NULL AND longitude IS NOT NULL AND %s * 2 * ASIN(SQRT(POWER(SIN(RADIANS(latitude - %s) / 2), 2) + COS(RADIANS(%s)) * COS(RADIANS(latitude)) * POWER(SIN(RADIANS(longitude - %s) / 2), 2))) <= %s",
			next(geo.EarthRadiusMiles), next(q.Latitude), next(q.Latitude), next(q.Longitude), next(q.RadiusMiles),
		))
	case q.HasGeo:
		// radius_miles <= 0 yields an empty geo window (spec §4.6 edge case).
		conditions = append(conditions, "1 = 0")
	}

	if q.Jurisdiction != "" && q.Jurisdiction != "all" {
		conditions = append(conditions, fmt.Sprintf("jurisdiction = %s", next(q.Jurisdiction)))
	}

	if q.RecentOnly {
		cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)
		conditions = append(conditions, fmt.Sprintf("latest_inspection_date >= %s", next(cutoff)))
	}

	if len(conditions) == 0 {
		conditions = append(conditions, "1 = 1")
	}

	return searchFilter{clause: strings.Join(conditions, " AND "), args: args}
}

// withBand appends a `band = $n` predicate to the filter, returning a new
// clause/args pair without mutating the receiver (the same base filter is
// reused for every score slice).
func (f searchFilter) withBand(band models.Band) (clause string, args []any) {
	args = append(append([]any{}, f.args...), string(band))
	return f.clause + fmt.Sprintf(" AND band = $%d", len(args)), args
}

func (s *SQLStore) sliceCounts(ctx context.Context, f searchFilter) (models.SliceCounts, error) {
	eliteClause, eliteArgs := f.withBand(models.BandExcellent)
	solidClause, solidArgs := f.withBand(models.BandGood)
	watchClause, watchArgs := f.withBand(models.BandNeedsAttention)

	var counts models.SliceCounts
	queries := []struct {
		dest   *int
		clause string
		args   []any
	}{
		{&counts.All, f.clause, f.args},
		{&counts.Elite, eliteClause, eliteArgs},
		{&counts.Solid, solidClause, solidArgs},
		{&counts.Watch, watchClause, watchArgs},
	}
	for _, q := range queries {
		query := "SELECT COUNT(*) FROM facilities WHERE " + q.clause
		if err := s.db.GetContext(ctx, q.dest, query, q.args...); err != nil {
			return models.SliceCounts{}, fmt.Errorf("compute slice counts: %w", err)
		}
	}
	return counts, nil
}

// Search builds one shared predicate set and reuses it for the slice-count
// query and the paginated data query, so both always agree on what
// "matching" means.
func (s *SQLStore) Search(ctx context.Context, q models.SearchQuery) (models.SearchPage, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.Search")
	defer span.End()

	filter := buildSearchFilter(q)

	counts, err := s.sliceCounts(ctx, filter)
	if err != nil {
		return models.SearchPage{}, err
	}

	clause, args := filter.clause, append([]any{}, filter.args...)
	switch q.ScoreSlice {
	case models.SliceElite:
		clause, args = filter.withBand(models.BandExcellent)
	case models.SliceSolid:
		clause, args = filter.withBand(models.BandGood)
	case models.SliceWatch:
		clause, args = filter.withBand(models.BandNeedsAttention)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM facilities WHERE " + clause
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return models.SearchPage{}, fmt.Errorf("count search results: %w", err)
	}

	limitPH := fmt.Sprintf("$%d", len(args)+1)
	offsetPH := fmt.Sprintf("$%d", len(args)+2)
	dataArgs := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM facilities WHERE %s ORDER BY %s LIMIT %s OFFSET %s",
		strings.Join(facilityColumns, ", "), clause, strings.Join(orderByClause(q.Sort), ", "), limitPH, offsetPH,
	)

	var facilities []models.Facility
	if err := s.db.SelectContext(ctx, &facilities, dataQuery, dataArgs...); err != nil {
		return models.SearchPage{}, fmt.Errorf("search facilities: %w", err)
	}
	for i := range facilities {
		facilities[i].SyncCoordinates()
	}

	return models.SearchPage{
		Data:        facilities,
		Count:       len(facilities),
		TotalCount:  total,
		Page:        q.Page,
		PageSize:    q.PageSize,
		SliceCounts: counts,
	}, nil
}

// Autocomplete ranks by pg_trgm similarity against name first, falling
// back to a plain prefix match against name/city/postal code for inputs
// too short for trigram similarity to rank usefully, then by trust score.
func (s *SQLStore) Autocomplete(ctx context.Context, prefix string, limit int) ([]models.AutocompleteSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.SQLStore.Autocomplete")
	defer span.End()

	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(prefix)
	prefixPattern := escaped + "%"

	query := `
		SELECT id, name, city, postal_code, trust_score, similarity(name, $1) AS sim
		FROM facilities
		WHERE name % $1 OR name ILIKE $2 OR city ILIKE $2 OR postal_code ILIKE $2
		ORDER BY sim DESC, trust_score DESC, id ASC
		LIMIT $3
	`

	rows, err := s.db.QueryxContext(ctx, query, prefix, prefixPattern, limit)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to autocomplete facilities")
		return nil, fmt.Errorf("autocomplete facilities: %w", err)
	}
	defer rows.Close()

	var suggestions []models.AutocompleteSuggestion
	for rows.Next() {
		var suggestion models.AutocompleteSuggestion
		var sim float64
		if err := rows.Scan(&suggestion.ID, &suggestion.Name, &suggestion.City, &suggestion.PostalCode, &suggestion.TrustScore, &sim); err != nil {
			return nil, fmt.Errorf("scan autocomplete suggestion: %w", err)
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

func orderByClause(sort models.SortOrder) []string {
	switch sort {
	case models.SortRecentDesc:
		return []string{"latest_inspection_date DESC NULLS LAST", "id ASC"}
	case models.SortNameAsc:
		return []string{"name ASC", "id ASC"}
	default:
		return []string{"trust_score DESC", "id ASC"}
	}
}
