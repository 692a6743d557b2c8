package cpra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
}

func liveServer(rows []map[string]any) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rows)
	}))
}

func TestFetch_UsesCSVWhenItHasRows(t *testing.T) {
	csv := csvServer("facility_id,facility_name,address,city,zip\nOC1,Joe's Diner,1 Main St,Irvine,92618\n")
	defer csv.Close()
	pasadenaLive := liveServer(nil)
	defer pasadenaLive.Close()

	c := New(csv.URL, "", "", pasadenaLive.URL, 5*time.Second)
	records, _, err := c.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "OC1", records[0].SourceFacilityKey)
	assert.Equal(t, "Orange County", records[0].Jurisdiction)
}

func TestFetch_FallsBackToLiveWhenCSVIsEmpty(t *testing.T) {
	csv := csvServer("facility_id,facility_name\n")
	defer csv.Close()
	live := liveServer([]map[string]any{{"facility_id": "OC2", "facility_name": "Live Fallback Diner"}})
	defer live.Close()
	pasadenaLive := liveServer(nil)
	defer pasadenaLive.Close()

	c := New(csv.URL, live.URL, "", pasadenaLive.URL, 5*time.Second)
	records, warnings, err := c.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "OC2", records[0].SourceFacilityKey)
	assert.NotEmpty(t, warnings)
}

func TestFetch_FallsBackToLiveWhenCSVUnset(t *testing.T) {
	orangeLive := liveServer(nil)
	defer orangeLive.Close()
	live := liveServer([]map[string]any{{"facility_id": "PAS1", "facility_name": "Pasadena Diner"}})
	defer live.Close()

	c := New("", orangeLive.URL, "", live.URL, 5*time.Second)
	records, _, err := c.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Pasadena", records[0].Jurisdiction)
}

func TestFetch_SkipsRowsMissingKeyInBothPaths(t *testing.T) {
	csv := csvServer("facility_id,facility_name\n,No Key Diner\n")
	defer csv.Close()
	live := liveServer([]map[string]any{{"facility_name": "No Key Live Diner"}})
	defer live.Close()
	pasadenaLive := liveServer(nil)
	defer pasadenaLive.Close()

	c := New(csv.URL, live.URL, "", pasadenaLive.URL, 5*time.Second)
	records, warnings, err := c.Fetch(context.Background())

	require.Error(t, err)
	assert.Empty(t, records)
	assert.NotEmpty(t, warnings)
}

func TestFetch_NoSourceConfiguredForAJurisdictionIsAnError(t *testing.T) {
	csv := csvServer("facility_id,facility_name\nOC1,Joe's Diner\n")
	defer csv.Close()

	c := New(csv.URL, "", "", "", 5*time.Second)
	records, _, err := c.Fetch(context.Background())

	require.Error(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "OC1", records[0].SourceFacilityKey)
}

func TestName(t *testing.T) {
	c := New("", "", "", "", time.Second)
	assert.Equal(t, "CPRA", c.Name())
}
