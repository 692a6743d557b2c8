package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestLogger_LogsOneLineAndPassesThroughTheResponse(t *testing.T) {
	calls := 0
	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {
		calls++
	})

	e := echo.New()
	e.Use(Logger(logger))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.Equal(t, 1, calls)
}
