// Package facility exposes the facility search, detail, top-picks, and
// vote endpoints (spec §6).
package facility

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/calhealth/trustscore/internal/platform/apicontext"
	"github.com/calhealth/trustscore/pkg/apierr"
	"github.com/calhealth/trustscore/pkg/models"
	"github.com/calhealth/trustscore/pkg/search"
	"github.com/calhealth/trustscore/pkg/vote"
)

// Handler binds the search and vote services to their HTTP routes.
type Handler struct {
	search *search.Service
	vote   *vote.Service
}

func NewHandler(search *search.Service, vote *vote.Service) *Handler {
	return &Handler{search: search, vote: vote}
}

// Register wires the facility routes under the api/v1 group.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/facilities", h.Search)
	g.GET("/facilities/top-picks", h.TopPicks)
	g.GET("/facilities/autocomplete", h.Autocomplete)
	g.GET("/facilities/:id", h.Get)
	g.POST("/facilities/:id/vote", h.Vote)
}

// Search handles GET /api/v1/facilities.
func (h *Handler) Search(c echo.Context) error {
	raw, err := bindRequestParams(c)
	if err != nil {
		return err
	}
	page, err := h.search.Search(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /api/v1/facilities/{id}.
func (h *Handler) Get(c echo.Context) error {
	f, err := h.search.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detailResponse{Data: f})
}

// TopPicks handles GET /api/v1/facilities/top-picks?limit=N.
func (h *Handler) TopPicks(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apierr.Validation("limit must be an integer")
		}
		limit = n
	}
	facilities, err := h.search.TopPicks(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, topPicksResponse{Data: facilities, Count: len(facilities)})
}

// Autocomplete handles GET /api/v1/facilities/autocomplete?q=&limit=.
func (h *Handler) Autocomplete(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apierr.Validation("limit must be an integer")
		}
		limit = n
	}

	suggestions, err := h.search.Autocomplete(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, autocompleteResponse{Data: suggestions})
}

// voteRequest is the POST /api/v1/facilities/{id}/vote body.
type voteRequest struct {
	Vote string `json:"vote"`
}

// Vote handles POST /api/v1/facilities/{id}/vote.
func (h *Handler) Vote(c echo.Context) error {
	var body voteRequest
	if err := c.Bind(&body); err != nil {
		return apierr.Validation("malformed request body")
	}

	ctx := c.Request().Context()
	clientID := apicontext.GetClientIdentity(ctx)

	summary, err := h.vote.Vote(ctx, clientID, c.Param("id"), models.VoteKind(body.Vote))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, voteResponse{Data: summary})
}

type detailResponse struct {
	Data models.Facility `json:"data"`
}

type topPicksResponse struct {
	Data  []models.Facility `json:"data"`
	Count int               `json:"count"`
}

type voteResponse struct {
	Data models.VoteSummary `json:"data"`
}

type autocompleteResponse struct {
	Data []models.AutocompleteSuggestion `json:"data"`
}

// bindRequestParams reads the query parameters by hand rather than through
// echo's generic binder, since several of them are optional floats that
// must stay nil (not zero) when absent to drive search.ParseQuery's
// lat/lon-together rule (spec §4.6).
func bindRequestParams(c echo.Context) (search.RequestParams, error) {
	params := search.RequestParams{
		Keyword:      c.QueryParam("q"),
		Jurisdiction: c.QueryParam("jurisdiction"),
		ScoreSlice:   c.QueryParam("score_slice"),
		Sort:         c.QueryParam("sort"),
	}

	if raw := c.QueryParam("recent_only"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return search.RequestParams{}, apierr.Validation("recent_only must be a boolean")
		}
		params.RecentOnly = b
	}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return search.RequestParams{}, apierr.Validation("page must be an integer")
		}
		params.Page = n
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return search.RequestParams{}, apierr.Validation("page_size must be an integer")
		}
		if n == 0 {
			return search.RequestParams{}, apierr.Validation("page_size must be one of 12, 24, 48")
		}
		params.PageSize = n
	}

	lat, err := parseOptionalFloat(c, "latitude")
	if err != nil {
		return search.RequestParams{}, err
	}
	params.Latitude = lat

	lon, err := parseOptionalFloat(c, "longitude")
	if err != nil {
		return search.RequestParams{}, err
	}
	params.Longitude = lon

	radius, err := parseOptionalFloat(c, "radius_miles")
	if err != nil {
		return search.RequestParams{}, err
	}
	params.RadiusMiles = radius

	return params, nil
}

func parseOptionalFloat(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apierr.Validation("%s must be a number", name)
	}
	return &v, nil
}
