package facility

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/calhealth/trustscore/pkg/geo"
	"github.com/calhealth/trustscore/pkg/models"
	"github.com/calhealth/trustscore/pkg/normalize"
)

// MemoryStore is the ephemeral backend: a process-local map from id to
// facility, a secondary index by jurisdiction, and a coarse lat/lon
// grid-bucket index for geo pre-filtering (spec §4.4), guarded by a single
// RWMutex — writers exclusive, readers concurrent.
type MemoryStore struct {
	mu sync.RWMutex

	byID         map[string]models.Facility
	byKey        map[models.IngestionKey]string // key -> id
	byJurisdiction map[string]map[string]struct{} // jurisdiction -> id set
	byCell       map[geo.Cell]map[string]struct{} // grid cell -> id set

	connectorStatus map[string]models.ConnectorStatus
	lastRefreshAt   *time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:           make(map[string]models.Facility),
		byKey:          make(map[models.IngestionKey]string),
		byJurisdiction: make(map[string]map[string]struct{}),
		byCell:         make(map[geo.Cell]map[string]struct{}),
		connectorStatus: make(map[string]models.ConnectorStatus),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, f models.Facility) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byID[f.ID]; ok {
		s.removeFromIndexes(existing)
	}

	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		if existing, ok := s.byID[f.ID]; ok {
			f.CreatedAt = existing.CreatedAt
		} else {
			f.CreatedAt = now
		}
	}
	f.UpdatedAt = now

	s.byID[f.ID] = f
	s.byKey[models.IngestionKey{Jurisdiction: f.Jurisdiction, SourceFacilityKey: f.SourceFacilityKey}] = f.ID
	s.indexJurisdiction(f)
	s.indexCell(f)

	return nil
}

func (s *MemoryStore) removeFromIndexes(f models.Facility) {
	if set, ok := s.byJurisdiction[f.Jurisdiction]; ok {
		delete(set, f.ID)
	}
	if f.HasCoordinates() {
		cell := geo.BucketOf(*f.Latitude, *f.Longitude)
		if set, ok := s.byCell[cell]; ok {
			delete(set, f.ID)
		}
	}
}

func (s *MemoryStore) indexJurisdiction(f models.Facility) {
	set, ok := s.byJurisdiction[f.Jurisdiction]
	if !ok {
		set = make(map[string]struct{})
		s.byJurisdiction[f.Jurisdiction] = set
	}
	set[f.ID] = struct{}{}
}

func (s *MemoryStore) indexCell(f models.Facility) {
	if !f.HasCoordinates() {
		return
	}
	cell := geo.BucketOf(*f.Latitude, *f.Longitude)
	set, ok := s.byCell[cell]
	if !ok {
		set = make(map[string]struct{})
		s.byCell[cell] = set
	}
	set[f.ID] = struct{}{}
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.byID[id]
	if !ok {
		return models.Facility{}, ErrNotFound
	}
	return f, nil
}

func (s *MemoryStore) GetByKey(_ context.Context, key models.IngestionKey) (models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return models.Facility{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) TopVoted(_ context.Context, limit int) ([]models.Facility, error) {
	s.mu.RLock()
	all := make([]models.Facility, 0, len(s.byID))
	for _, f := range s.byID {
		all = append(all, f)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return lessTopVoted(all[i], all[j])
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func lessTopVoted(a, b models.Facility) bool {
	if a.Likes != b.Likes {
		return a.Likes > b.Likes
	}
	if av, bv := a.VoteScore(), b.VoteScore(); av != bv {
		return av > bv
	}
	if a.TrustScore != b.TrustScore {
		return a.TrustScore > b.TrustScore
	}
	return a.ID < b.ID
}

func (s *MemoryStore) ApplyVote(_ context.Context, id string, kind models.VoteKind) (models.VoteSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.byID[id]
	if !ok {
		return models.VoteSummary{}, ErrNotFound
	}

	switch kind {
	case models.VoteLike:
		f.Likes++
	case models.VoteDislike:
		f.Dislikes++
	}
	f.UpdatedAt = time.Now().UTC()
	s.byID[id] = f

	return models.VoteSummary{Likes: f.Likes, Dislikes: f.Dislikes, VoteScore: f.VoteScore()}, nil
}

func (s *MemoryStore) IngestionStats(_ context.Context) (models.IngestionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.IngestionStats{
		LastRefreshAt:    s.lastRefreshAt,
		UniqueFacilities: len(s.byID),
	}
	for _, cs := range s.connectorStatus {
		stats.ConnectorStats = append(stats.ConnectorStats, cs)
	}
	sort.Slice(stats.ConnectorStats, func(i, j int) bool {
		return stats.ConnectorStats[i].Source < stats.ConnectorStats[j].Source
	})
	return stats, nil
}

func (s *MemoryStore) RecordConnectorStatus(_ context.Context, status models.ConnectorStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectorStatus[status.Source] = status
	return nil
}

func (s *MemoryStore) RecordRefreshCompleted(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.lastRefreshAt = &now
	return nil
}

// Search implements the filter/sort/paginate/slice-count contract of
// spec §4.6 entirely in process: candidates are narrowed by the
// jurisdiction and grid-bucket indexes before the remaining predicates and
// the exact haversine check are applied.
func (s *MemoryStore) Search(_ context.Context, q models.SearchQuery) (models.SearchPage, error) {
	s.mu.RLock()
	candidates := s.candidateIDs(q)
	facilities := make([]models.Facility, 0, len(candidates))
	for id := range candidates {
		facilities = append(facilities, s.byID[id])
	}
	s.mu.RUnlock()

	filtered := make([]models.Facility, 0, len(facilities))
	for _, f := range facilities {
		if matchesQuery(f, q) {
			filtered = append(filtered, f)
		}
	}

	counts := sliceCounts(filtered)

	sliceFiltered := filterBySlice(filtered, q.ScoreSlice)
	sortFacilities(sliceFiltered, q.Sort)

	total := len(sliceFiltered)
	page, pageSize := q.Page, q.PageSize
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	var data []models.Facility
	if start < end {
		data = append(data, sliceFiltered[start:end]...)
	}

	return models.SearchPage{
		Data:        data,
		Count:       len(data),
		TotalCount:  total,
		Page:        page,
		PageSize:    pageSize,
		SliceCounts: counts,
	}, nil
}

// candidateIDs narrows the full set using whichever indexes the query can
// use (jurisdiction, geo grid cells), falling back to the full set when
// neither applies — the exact predicates are re-checked afterward, so a
// broader-than-necessary candidate set is always correct, just slower.
func (s *MemoryStore) candidateIDs(q models.SearchQuery) map[string]struct{} {
	var base map[string]struct{}

	if q.Jurisdiction != "" && !strings.EqualFold(q.Jurisdiction, "all") {
		if set, ok := s.byJurisdiction[q.Jurisdiction]; ok {
			base = copySet(set)
		} else {
			return map[string]struct{}{}
		}
	}

	// A keyword query ignores geo entirely (matchesQuery never checks
	// coordinates when a keyword is present), so the geo grid index must
	// not narrow candidates here either — otherwise a matching facility
	// with no coordinates would never make it into byCell and would be
	// dropped before matchesQuery ever sees it.
	if q.Keyword == "" && q.HasGeo && q.RadiusMiles > 0 {
		geoSet := make(map[string]struct{})
		for _, cell := range geo.NeighborCells(q.Latitude, q.Longitude, q.RadiusMiles) {
			for id := range s.byCell[cell] {
				geoSet[id] = struct{}{}
			}
		}
		base = intersectOrAssign(base, geoSet)
	}

	if base != nil {
		return base
	}

	all := make(map[string]struct{}, len(s.byID))
	for id := range s.byID {
		all[id] = struct{}{}
	}
	return all
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func intersectOrAssign(base, next map[string]struct{}) map[string]struct{} {
	if base == nil {
		return next
	}
	out := make(map[string]struct{})
	for k := range base {
		if _, ok := next[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func matchesQuery(f models.Facility, q models.SearchQuery) bool {
	if q.Keyword != "" {
		return keywordMatches(f, q.Keyword)
	}

	if q.HasGeo {
		if !f.HasCoordinates() {
			return false
		}
		if q.RadiusMiles <= 0 {
			return false
		}
		d := geo.DistanceMiles(q.Latitude, q.Longitude, *f.Latitude, *f.Longitude)
		if d > q.RadiusMiles {
			return false
		}
	}

	if q.Jurisdiction != "" && !strings.EqualFold(q.Jurisdiction, "all") && f.Jurisdiction != q.Jurisdiction {
		return false
	}

	if q.RecentOnly {
		if f.LatestInspectionDate == nil || time.Since(*f.LatestInspectionDate) > 90*24*time.Hour {
			return false
		}
	}

	return true
}

// Autocomplete ranks facilities by how closely their name/city/postal code
// matches prefix: an exact name-prefix match outranks a mid-string or
// cross-field match, ties broken by trust score. There's no pg_trgm index
// to lean on in memory, so this is a linear scan — acceptable for the
// in-memory backend's demo/dev scale (spec §4.4).
func (s *MemoryStore) Autocomplete(_ context.Context, prefix string, limit int) ([]models.AutocompleteSuggestion, error) {
	needle := normalize.Name(prefix)

	s.mu.RLock()
	type scored struct {
		f     models.Facility
		score int
	}
	candidates := make([]scored, 0, len(s.byID))
	for _, f := range s.byID {
		if score, ok := autocompleteScore(f, needle); ok {
			candidates = append(candidates, scored{f: f, score: score})
		}
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].f.TrustScore != candidates[j].f.TrustScore {
			return candidates[i].f.TrustScore > candidates[j].f.TrustScore
		}
		return candidates[i].f.ID < candidates[j].f.ID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	suggestions := make([]models.AutocompleteSuggestion, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, models.AutocompleteSuggestion{
			ID:         c.f.ID,
			Name:       c.f.Name,
			City:       c.f.City,
			PostalCode: c.f.PostalCode,
			TrustScore: c.f.TrustScore,
		})
	}
	return suggestions, nil
}

// autocompleteScore ranks a name prefix match above a name substring
// match, which ranks above a city substring or postal-code prefix match
// (those two share the lowest tier).
func autocompleteScore(f models.Facility, needle string) (int, bool) {
	name := normalize.Name(f.Name)
	switch {
	case strings.HasPrefix(name, needle):
		return 3, true
	case strings.Contains(name, needle):
		return 2, true
	case strings.Contains(normalize.Name(f.City), needle):
		return 1, true
	case strings.HasPrefix(f.PostalCode, needle):
		return 1, true
	default:
		return 0, false
	}
}

func keywordMatches(f models.Facility, keyword string) bool {
	needle := normalize.Name(keyword)
	haystacks := []string{
		normalize.Name(f.Name),
		normalize.Address(f.Address),
		normalize.Name(f.City),
		f.PostalCode,
	}
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

func sliceCounts(filtered []models.Facility) models.SliceCounts {
	var c models.SliceCounts
	for _, f := range filtered {
		c.All++
		switch f.Band {
		case models.BandExcellent:
			c.Elite++
		case models.BandGood:
			c.Solid++
		default:
			c.Watch++
		}
	}
	return c
}

func filterBySlice(filtered []models.Facility, slice models.ScoreSlice) []models.Facility {
	if slice == "" || slice == models.SliceAll {
		return filtered
	}
	out := make([]models.Facility, 0, len(filtered))
	for _, f := range filtered {
		switch slice {
		case models.SliceElite:
			if f.Band == models.BandExcellent {
				out = append(out, f)
			}
		case models.SliceSolid:
			if f.Band == models.BandGood {
				out = append(out, f)
			}
		case models.SliceWatch:
			if f.Band == models.BandNeedsAttention {
				out = append(out, f)
			}
		}
	}
	return out
}

func sortFacilities(facilities []models.Facility, order models.SortOrder) {
	sort.Slice(facilities, func(i, j int) bool {
		a, b := facilities[i], facilities[j]
		switch order {
		case models.SortRecentDesc:
			ad, bd := inspectionDateOrZero(a), inspectionDateOrZero(b)
			if !ad.Equal(bd) {
				return ad.After(bd)
			}
		case models.SortNameAsc:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		default: // trust_desc
			if a.TrustScore != b.TrustScore {
				return a.TrustScore > b.TrustScore
			}
		}
		return a.ID < b.ID
	})
}

func inspectionDateOrZero(f models.Facility) time.Time {
	if f.LatestInspectionDate == nil {
		return time.Time{}
	}
	return *f.LatestInspectionDate
}
