package lives

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

func countyServer(attrs ...map[string]any) *httptest.Server {
	type feature struct {
		Attributes map[string]any `json:"attributes"`
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		features := make([]feature, 0, len(attrs))
		for _, a := range attrs {
			features = append(features, feature{Attributes: a})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"features": features})
	}))
}

func TestFetch_CombinesBothCounties(t *testing.T) {
	riverside := countyServer(map[string]any{"PR_ID": "RIV1", "PR_NAME": "Riverside Diner"})
	defer riverside.Close()
	sanBernardino := countyServer(map[string]any{"PR_ID": "SB1", "PR_NAME": "San Bernardino Diner"})
	defer sanBernardino.Close()

	c := New(riverside.URL, sanBernardino.URL, 10, 0, 5*time.Second)
	records, _, err := c.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "LIVES - Riverside", records[0].Jurisdiction)
	assert.Equal(t, "LIVES - San Bernardino", records[1].Jurisdiction)
}

func TestFetch_OneCountyFailingDoesNotDropTheOther(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	ok := countyServer(map[string]any{"PR_ID": "SB1", "PR_NAME": "San Bernardino Diner"})
	defer ok.Close()

	c := New(broken.URL, ok.URL, 10, 0, 5*time.Second)
	records, _, err := c.Fetch(context.Background())

	require.Error(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "LIVES - San Bernardino", records[0].Jurisdiction)
}

func TestName(t *testing.T) {
	c := New("https://a.test", "https://b.test", 10, 0, time.Second)
	assert.Equal(t, "LIVES", c.Name())
}
