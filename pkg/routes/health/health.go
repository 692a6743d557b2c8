// Package health implements the liveness endpoint (spec §6).
package health

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Register registers the liveness endpoint on e.
func Register(e *echo.Echo) {
	e.GET("/health", Health)
}

// Health always reports ok once the process is serving; there is no
// downstream dependency a request handler blocks on (spec §6: "200
// {status:\"ok\"}", no qualifying checks).
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
