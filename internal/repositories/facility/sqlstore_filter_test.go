package facility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calhealth/trustscore/pkg/models"
)

func TestBuildSearchFilter_Keyword(t *testing.T) {
	filter := buildSearchFilter(models.SearchQuery{Keyword: "diner"})
	assert.Contains(t, filter.clause, "ILIKE")
	assert.Equal(t, []any{"%diner%"}, filter.args)
}

func TestBuildSearchFilter_Geo(t *testing.T) {
	filter := buildSearchFilter(models.SearchQuery{HasGeo: true, Latitude: 34.0, Longitude: -118.2, RadiusMiles: 5})
	assert.Contains(t, filter.clause, "latitude IS NOT NULL")
	assert.Len(t, filter.args, 5)
}

func TestBuildSearchFilter_GeoZeroRadiusIsAlwaysFalse(t *testing.T) {
	filter := buildSearchFilter(models.SearchQuery{HasGeo: true, RadiusMiles: 0})
	assert.Equal(t, "1 = 0", filter.clause)
}

func TestBuildSearchFilter_JurisdictionAndRecentOnly(t *testing.T) {
	filter := buildSearchFilter(models.SearchQuery{Jurisdiction: "la_county", RecentOnly: true})
	assert.Contains(t, filter.clause, "jurisdiction = $1")
	assert.Contains(t, filter.clause, "latest_inspection_date >= $2")
	assert.Len(t, filter.args, 2)
}

func TestBuildSearchFilter_JurisdictionAllMeansUnfiltered(t *testing.T) {
	filter := buildSearchFilter(models.SearchQuery{Jurisdiction: "all"})
	assert.Equal(t, "1 = 1", filter.clause)
}

func TestBuildSearchFilter_NoPredicatesMatchesEverything(t *testing.T) {
	filter := buildSearchFilter(models.SearchQuery{})
	assert.Equal(t, "1 = 1", filter.clause)
	assert.Empty(t, filter.args)
}

func TestSearchFilter_WithBandAppendsPredicateWithoutMutating(t *testing.T) {
	base := buildSearchFilter(models.SearchQuery{Jurisdiction: "la_county"})
	clause, args := base.withBand(models.BandExcellent)

	assert.Contains(t, clause, "band = $2")
	assert.Equal(t, []any{"la_county", "excellent"}, args)
	assert.Equal(t, "jurisdiction = $1", base.clause)
	assert.Len(t, base.args, 1)
}

func TestOrderByClause(t *testing.T) {
	assert.Equal(t, []string{"latest_inspection_date DESC NULLS LAST", "id ASC"}, orderByClause(models.SortRecentDesc))
	assert.Equal(t, []string{"name ASC", "id ASC"}, orderByClause(models.SortNameAsc))
	assert.Equal(t, []string{"trust_score DESC", "id ASC"}, orderByClause(models.SortTrustDesc))
	assert.Equal(t, []string{"trust_score DESC", "id ASC"}, orderByClause(""))
}
