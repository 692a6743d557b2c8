package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calhealth/trustscore/pkg/apierr"
	"github.com/calhealth/trustscore/pkg/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestParseQuery_Defaults(t *testing.T) {
	q, err := ParseQuery(RequestParams{})
	require.NoError(t, err)

	assert.Equal(t, models.SliceAll, q.ScoreSlice)
	assert.Equal(t, models.SortTrustDesc, q.Sort)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, defaultPageSize, q.PageSize)
	assert.False(t, q.HasGeo)
}

func TestParseQuery_GeoRequiresBothCoordinates(t *testing.T) {
	_, err := ParseQuery(RequestParams{Latitude: floatPtr(34.05)})
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
}

func TestParseQuery_GeoDefaultsRadius(t *testing.T) {
	q, err := ParseQuery(RequestParams{Latitude: floatPtr(34.05), Longitude: floatPtr(-118.24)})
	require.NoError(t, err)
	assert.True(t, q.HasGeo)
	assert.Equal(t, defaultRadius, q.RadiusMiles)
}

func TestParseQuery_ExplicitRadius(t *testing.T) {
	q, err := ParseQuery(RequestParams{
		Latitude: floatPtr(34.05), Longitude: floatPtr(-118.24), RadiusMiles: floatPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, q.RadiusMiles)
}

func TestParseQuery_KeywordIgnoresGeo(t *testing.T) {
	q, err := ParseQuery(RequestParams{Keyword: "sushi", Latitude: floatPtr(34.05)})
	require.NoError(t, err)
	assert.False(t, q.HasGeo)
	assert.Equal(t, "sushi", q.Keyword)
}

func TestParseQuery_InvalidCoordinatesRejected(t *testing.T) {
	_, err := ParseQuery(RequestParams{Latitude: floatPtr(200), Longitude: floatPtr(-118.24)})
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
}

func TestParseQuery_InvalidScoreSliceRejected(t *testing.T) {
	_, err := ParseQuery(RequestParams{ScoreSlice: "bogus"})
	require.Error(t, err)
}

func TestParseQuery_InvalidPageSizeRejected(t *testing.T) {
	_, err := ParseQuery(RequestParams{PageSize: 13})
	require.Error(t, err)
}

func TestParseQuery_ExplicitPageAndPageSize(t *testing.T) {
	q, err := ParseQuery(RequestParams{Page: 3, PageSize: 24})
	require.NoError(t, err)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 24, q.PageSize)
}
