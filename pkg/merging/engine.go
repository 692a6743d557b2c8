// Package merging implements dedup and reconciliation of raw connector
// records into facility rows (spec §4.3).
package merging

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/calhealth/trustscore/internal/platform/tracing"
	"github.com/calhealth/trustscore/internal/repositories/facility"
	"github.com/calhealth/trustscore/pkg/identity"
	"github.com/calhealth/trustscore/pkg/models"
	"github.com/calhealth/trustscore/pkg/normalize"
)

// Engine deduplicates a connector batch and applies it against a Store,
// preserving an existing facility's id and vote counters across
// re-ingestion.
type Engine struct {
	logger ectologger.Logger
}

func NewEngine(logger ectologger.Logger) *Engine {
	return &Engine{logger: logger}
}

// MergeBatch normalizes a connector's raw records into facilities and
// collapses intra-source duplicates, keeping the record with the latest
// inspection date per (jurisdiction, source_facility_key); ties resolve to
// the higher normalized score.
//
// Cross-source identity and existing-id/vote preservation happen in Apply,
// since they require the repository.
func (e *Engine) MergeBatch(records []models.RawRecord) []models.Facility {
	facilities := make([]models.Facility, 0, len(records))
	for _, r := range records {
		facilities = append(facilities, toFacility(r))
	}
	return collapseIntraSource(facilities)
}

// Apply writes a deduplicated batch to the store, resolving each facility's
// identity against any existing row with the same (jurisdiction,
// source_facility_key): an existing facility keeps its id and vote
// counters, with descriptive fields and Trust Score overwritten from the
// new ingestion (spec §4.3.3). Facilities are applied in a fixed order
// (by id) so the final repository state is independent of input batch
// ordering, per the determinism requirement in §4.3.
func (e *Engine) Apply(ctx context.Context, store facility.Store, batch []models.Facility) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Apply")
	defer span.End()

	log := e.logger.WithContext(ctx)

	for _, f := range orderedByID(batch) {
		key := models.IngestionKey{Jurisdiction: f.Jurisdiction, SourceFacilityKey: f.SourceFacilityKey}

		existing, err := store.GetByKey(ctx, key)
		switch {
		case err == nil:
			f.ID = existing.ID
			f.Likes = existing.Likes
			f.Dislikes = existing.Dislikes
		case err == facility.ErrNotFound:
			// new facility, f.ID already computed from the ingestion key
		default:
			return fmt.Errorf("merging: lookup existing facility: %w", err)
		}

		if err := store.Upsert(ctx, f); err != nil {
			return fmt.Errorf("merging: upsert facility %s: %w", f.ID, err)
		}
	}

	log.WithFields(map[string]any{"facility_count": len(batch)}).Debug("applied merge batch")
	return nil
}

func toFacility(r models.RawRecord) models.Facility {
	id := identity.FacilityID(models.IngestionKey{Jurisdiction: r.Jurisdiction, SourceFacilityKey: r.SourceFacilityKey})

	f := models.Facility{
		ID:                id,
		Jurisdiction:      r.Jurisdiction,
		SourceFacilityKey: r.SourceFacilityKey,
		Name:              strings.TrimSpace(r.Name),
		Address:           strings.TrimSpace(r.Address),
		City:              r.City,
		State:             r.State,
		PostalCode:        r.PostalCode,
		Band:              models.BandNeedsAttention,
	}

	if r.Coordinates != nil && r.Coordinates.Valid() {
		f.SetCoordinates(r.Coordinates)
	}

	if r.Inspection != nil {
		score, band := normalize.Normalize(r.Inspection.Score)
		f.TrustScore = score
		f.Band = band
		date := r.Inspection.Date
		f.LatestInspectionDate = &date
	}

	return f
}

// collapseIntraSource groups facilities by id (which already encodes the
// jurisdiction + source_facility_key identity) and keeps, per group, the
// record with the latest inspection date, breaking ties on the higher
// normalized Trust Score (spec §4.3.1).
func collapseIntraSource(facilities []models.Facility) []models.Facility {
	byID := make(map[string]models.Facility, len(facilities))
	order := make([]string, 0, len(facilities))

	for _, f := range facilities {
		existing, ok := byID[f.ID]
		if !ok {
			byID[f.ID] = f
			order = append(order, f.ID)
			continue
		}
		byID[f.ID] = preferLatest(existing, f)
	}

	result := make([]models.Facility, 0, len(order))
	for _, id := range order {
		result = append(result, byID[id])
	}
	return result
}

func preferLatest(a, b models.Facility) models.Facility {
	switch {
	case a.LatestInspectionDate == nil && b.LatestInspectionDate == nil:
		if b.TrustScore > a.TrustScore {
			return b
		}
		return a
	case a.LatestInspectionDate == nil:
		return b
	case b.LatestInspectionDate == nil:
		return a
	}

	if b.LatestInspectionDate.After(*a.LatestInspectionDate) {
		return b
	}
	if a.LatestInspectionDate.After(*b.LatestInspectionDate) {
		return a
	}
	if b.TrustScore > a.TrustScore {
		return b
	}
	return a
}

func orderedByID(facilities []models.Facility) []models.Facility {
	out := make([]models.Facility, len(facilities))
	copy(out, facilities)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
