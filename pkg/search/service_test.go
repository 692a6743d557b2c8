package search

import (
	"context"
	"testing"

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

func TestService_Get_NotFound(t *testing.T) {
	store := facility.NewMemoryStore()
	svc := NewService(store, testLogger())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apierr.KindNotFound, apierr.KindOf(err))
}

func TestService_Get_Found(t *testing.T) {
	store := facility.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), models.Facility{ID: "A", Name: "Joe's Diner", Band: models.BandGood}))

	svc := NewService(store, testLogger())
	f, err := svc.Get(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "Joe's Diner", f.Name)
}

func TestService_TopPicks_DefaultsLimit(t *testing.T) {
	store := facility.NewMemoryStore()
	svc := NewService(store, testLogger())

	facilities, err := svc.TopPicks(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, facilities)
}

func TestService_TopPicks_RejectsLimitAboveMax(t *testing.T) {
	store := facility.NewMemoryStore()
	svc := NewService(store, testLogger())

	_, err := svc.TopPicks(context.Background(), 51)
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
}

func TestService_Search_RejectsInvalidQuery(t *testing.T) {
	store := facility.NewMemoryStore()
	svc := NewService(store, testLogger())

	_, err := svc.Search(context.Background(), RequestParams{PageSize: 13})
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
}

func TestService_Search_ReturnsPage(t *testing.T) {
	store := facility.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), models.Facility{ID: "A", Name: "Joe's Diner", Band: models.BandGood, TrustScore: 85}))

	svc := NewService(store, testLogger())
	page, err := svc.Search(context.Background(), RequestParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
}

func TestService_Autocomplete_BlankPrefixReturnsEmptyNotError(t *testing.T) {
	store := facility.NewMemoryStore()
	svc := NewService(store, testLogger())

	suggestions, err := svc.Autocomplete(context.Background(), "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestService_Autocomplete_ClampsLimitAboveMax(t *testing.T) {
	store := facility.NewMemoryStore()
	for i := 0; i < 25; i++ {
		id := "F" + string(rune('a'+i))
		require.NoError(t, store.Upsert(context.Background(), models.Facility{ID: id, Name: "Diner " + id, Band: models.BandGood}))
	}

	svc := NewService(store, testLogger())
	suggestions, err := svc.Autocomplete(context.Background(), "Diner", 500)
	require.NoError(t, err)
	assert.Len(t, suggestions, maxAutocompleteLimit)
}
