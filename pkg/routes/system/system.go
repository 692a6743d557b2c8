// Package system exposes the ingestion-stats and manual-refresh endpoints
// (spec §6).
package system

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/calhealth/trustscore/internal/repositories/facility"
	"github.com/calhealth/trustscore/pkg/apierr"
	"github.com/calhealth/trustscore/pkg/ingest"
	"github.com/calhealth/trustscore/pkg/models"
)

// Handler binds the repository and orchestrator to the system routes.
type Handler struct {
	store        facility.Store
	orchestrator *ingest.Orchestrator
}

func NewHandler(store facility.Store, orchestrator *ingest.Orchestrator) *Handler {
	return &Handler{store: store, orchestrator: orchestrator}
}

// Register wires the system routes under the api/v1 group.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/system/ingestion", h.Ingestion)
	g.POST("/system/refresh", h.Refresh)
}

// Ingestion handles GET /api/v1/system/ingestion.
func (h *Handler) Ingestion(c echo.Context) error {
	stats, err := h.store.IngestionStats(c.Request().Context())
	if err != nil {
		return apierr.Repository(err, "load ingestion stats")
	}
	return c.JSON(http.StatusOK, ingestionResponse{Data: stats})
}

// Refresh handles POST /api/v1/system/refresh. It enqueues a manual refresh
// without waiting for it to complete; a refresh already in flight absorbs
// the request rather than spawning a duplicate run (spec §4.5).
func (h *Handler) Refresh(c echo.Context) error {
	if h.orchestrator == nil || !h.orchestrator.IsRunning() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "manual refresh is disabled in this deployment")
	}
	h.orchestrator.RequestRefresh()
	return c.JSON(http.StatusAccepted, map[string]bool{"queued": true})
}

type ingestionResponse struct {
	Data models.IngestionStats `json:"data"`
}
