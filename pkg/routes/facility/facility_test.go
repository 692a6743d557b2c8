package facility

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calhealth/trustscore/internal/platform/apicontext"
	"github.com/calhealth/trustscore/internal/platform/httpmiddleware"
	repofacility "github.com/calhealth/trustscore/internal/repositories/facility"
	"github.com/calhealth/trustscore/pkg/identity"
	"github.com/calhealth/trustscore/pkg/models"
	"github.com/calhealth/trustscore/pkg/search"
	"github.com/calhealth/trustscore/pkg/vote"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

type testAPI struct {
	t     *testing.T
	e     *echo.Echo
	store repofacility.Store
}

func newTestAPI(t *testing.T) *testAPI {
	store := repofacility.NewMemoryStore()
	searchSvc := search.NewService(store, testLogger())
	voteSvc := vote.NewService(store, vote.Config{PerFacilityInterval: time.Minute, GlobalLimit: 100, GlobalWindow: time.Minute}, testLogger())

	e := echo.New()
	e.HTTPErrorHandler = httpmiddleware.Error(testLogger())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := apicontext.SetClientIdentity(c.Request().Context(), c.Request().Header.Get("X-Test-Client"))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	h := NewHandler(searchSvc, voteSvc)
	h.Register(e.Group("/api/v1"))

	return &testAPI{t: t, e: e, store: store}
}

func (a *testAPI) request(method, path, clientID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if clientID != "" {
		req.Header.Set("X-Test-Client", clientID)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}

func seed(t *testing.T, store repofacility.Store, f models.Facility) models.Facility {
	if f.ID == "" {
		f.ID = identity.FacilityID(models.IngestionKey{Jurisdiction: f.Jurisdiction, SourceFacilityKey: f.SourceFacilityKey})
	}
	f.SyncCoordinates()
	require.NoError(t, store.Upsert(context.Background(), f))
	got, err := store.GetByKey(context.Background(), models.IngestionKey{Jurisdiction: f.Jurisdiction, SourceFacilityKey: f.SourceFacilityKey})
	require.NoError(t, err)
	return got
}

func TestGet_ReturnsFacility(t *testing.T) {
	api := newTestAPI(t)
	f := seed(t, api.store, models.Facility{Jurisdiction: "LA County", SourceFacilityKey: "FA1", Name: "Joe's Diner", TrustScore: 90, Band: models.BandExcellent})

	rec := api.request(http.MethodGet, "/api/v1/facilities/"+f.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.Facility `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Joe's Diner", body.Data.Name)
}

func TestGet_UnknownIDReturns404(t *testing.T) {
	api := newTestAPI(t)
	rec := api.request(http.MethodGet, "/api/v1/facilities/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_RejectsInvalidPageSize(t *testing.T) {
	api := newTestAPI(t)
	rec := api.request(http.MethodGet, "/api/v1/facilities?page_size=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_RejectsNonNumericLatitude(t *testing.T) {
	api := newTestAPI(t)
	rec := api.request(http.MethodGet, "/api/v1/facilities?latitude=notanumber&longitude=-118", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_ReturnsPage(t *testing.T) {
	api := newTestAPI(t)
	seed(t, api.store, models.Facility{Jurisdiction: "LA County", SourceFacilityKey: "FA1", Name: "Joe's Diner", TrustScore: 90, Band: models.BandExcellent})

	rec := api.request(http.MethodGet, "/api/v1/facilities?q=Joe", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.SearchPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
}

func TestTopPicks_RejectsNonIntegerLimit(t *testing.T) {
	api := newTestAPI(t)
	rec := api.request(http.MethodGet, "/api/v1/facilities/top-picks?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopPicks_ReturnsFacilitiesWithCount(t *testing.T) {
	api := newTestAPI(t)
	seed(t, api.store, models.Facility{Jurisdiction: "LA County", SourceFacilityKey: "FA1", Name: "Joe's Diner", TrustScore: 95, Band: models.BandExcellent})

	rec := api.request(http.MethodGet, "/api/v1/facilities/top-picks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data  []models.Facility `json:"data"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestAutocomplete_ReturnsEmptyDataForBlankQuery(t *testing.T) {
	api := newTestAPI(t)
	seed(t, api.store, models.Facility{Jurisdiction: "LA County", SourceFacilityKey: "FA1", Name: "Joe's Diner", TrustScore: 90, Band: models.BandExcellent})

	rec := api.request(http.MethodGet, "/api/v1/facilities/autocomplete", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.AutocompleteSuggestion `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
}

func TestAutocomplete_MatchesByNamePrefix(t *testing.T) {
	api := newTestAPI(t)
	seed(t, api.store, models.Facility{Jurisdiction: "LA County", SourceFacilityKey: "FA1", Name: "Joe's Diner", City: "Pasadena", TrustScore: 90, Band: models.BandExcellent})
	seed(t, api.store, models.Facility{Jurisdiction: "LA County", SourceFacilityKey: "FA2", Name: "Sunset Cafe", City: "Pasadena", TrustScore: 80, Band: models.BandExcellent})

	rec := api.request(http.MethodGet, "/api/v1/facilities/autocomplete?q=Joe", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.AutocompleteSuggestion `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Joe's Diner", body.Data[0].Name)
}

func TestAutocomplete_RejectsNonIntegerLimit(t *testing.T) {
	api := newTestAPI(t)
	rec := api.request(http.MethodGet, "/api/v1/facilities/autocomplete?q=Joe&limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVote_RejectsMalformedBody(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities/some-id/vote", nil)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVote_UnknownIDReturns404(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities/does-not-exist/vote", jsonBody(`{"vote":"like"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVote_LikeIncrementsCounter(t *testing.T) {
	api := newTestAPI(t)
	f := seed(t, api.store, models.Facility{Jurisdiction: "LA County", SourceFacilityKey: "FA1", Name: "Joe's Diner", TrustScore: 90, Band: models.BandExcellent})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities/"+f.ID+"/vote", jsonBody(`{"vote":"like"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Client", "client-a")
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.VoteSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Likes)
}
