package search

import (
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/calhealth/trustscore/pkg/apierr"
	"github.com/calhealth/trustscore/pkg/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const (
	defaultPageSize = 12
	defaultRadius   = 5.0
)

// RequestParams is the raw, unvalidated query-parameter binding for
// GET /api/v1/facilities (spec §4.6, §6). Field names match the tag the
// transport binds from.
type RequestParams struct {
	Keyword      string   `query:"q"`
	Latitude     *float64 `query:"latitude"`
	Longitude    *float64 `query:"longitude"`
	RadiusMiles  *float64 `query:"radius_miles"`
	Jurisdiction string   `query:"jurisdiction"`
	ScoreSlice   string   `query:"score_slice" validate:"omitempty,oneof=all elite solid watch"`
	RecentOnly   bool     `query:"recent_only"`
	Sort         string   `query:"sort" validate:"omitempty,oneof=trust_desc recent_desc name_asc"`
	Page         int      `query:"page" validate:"omitempty,gte=1"`
	PageSize     int      `query:"page_size" validate:"omitempty,oneof=12 24 48"`
}

// ParseQuery validates raw and converts it into a models.SearchQuery,
// applying the defaults and business-rule edge cases from spec §4.6.
func ParseQuery(raw RequestParams) (models.SearchQuery, error) {
	if err := validate.Struct(raw); err != nil {
		return models.SearchQuery{}, apierr.Validation("invalid search parameters: %s", validationMessage(err))
	}

	q := models.SearchQuery{
		Keyword:      raw.Keyword,
		Jurisdiction: raw.Jurisdiction,
		ScoreSlice:   models.SliceAll,
		RecentOnly:   raw.RecentOnly,
		Sort:         models.SortTrustDesc,
		Page:         1,
		PageSize:     defaultPageSize,
	}

	if raw.ScoreSlice != "" {
		q.ScoreSlice = models.ScoreSlice(raw.ScoreSlice)
	}
	if raw.Sort != "" {
		q.Sort = models.SortOrder(raw.Sort)
	}
	if raw.Page > 0 {
		q.Page = raw.Page
	}
	if raw.PageSize > 0 {
		q.PageSize = raw.PageSize
	}

	// When a keyword is present, geo parameters are ignored entirely
	// (spec §4.6's "q" bullet).
	if q.Keyword != "" {
		return q, nil
	}

	if raw.Latitude == nil && raw.Longitude == nil {
		return q, nil
	}
	if raw.Latitude == nil || raw.Longitude == nil {
		return models.SearchQuery{}, apierr.Validation("latitude and longitude must be provided together")
	}

	lat, lon := *raw.Latitude, *raw.Longitude
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return models.SearchQuery{}, apierr.Validation("latitude/longitude must be finite")
	}
	coords := models.Coordinates{Latitude: lat, Longitude: lon}
	if !coords.Valid() {
		return models.SearchQuery{}, apierr.Validation("latitude/longitude out of range")
	}

	q.HasGeo = true
	q.Latitude = lat
	q.Longitude = lon
	q.RadiusMiles = defaultRadius
	if raw.RadiusMiles != nil {
		q.RadiusMiles = *raw.RadiusMiles
	}

	return q, nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msg := ""
	for _, fe := range verrs {
		if msg != "" {
			msg += "; "
		}
		msg += fe.Field() + " failed rule '" + fe.Tag() + "'"
	}
	return msg
}
