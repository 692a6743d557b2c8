// Package sandiego implements the San Diego connector: a paginated
// Socrata SODA API endpoint (spec §4.2). Full inspection score lines are
// not reliably present in the public dataset, so the Trust Score is
// always derived from permit status metadata; no inspection score field
// of a row is read. The mapping is provisional (spec §9 open question).
package sandiego

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/calhealth/trustscore/pkg/connectors"
	"github.com/calhealth/trustscore/pkg/models"
)

const jurisdiction = "San Diego"

type Connector struct {
	fetcher    *connectors.HTTPFetcher
	baseURL    string
	appToken   string
	pageSize   int
	maxRecords int
}

func New(baseURL, appToken string, pageSize, maxRecords int, timeout time.Duration) *Connector {
	return &Connector{
		fetcher:    connectors.NewHTTPFetcher(timeout),
		baseURL:    baseURL,
		appToken:   appToken,
		pageSize:   pageSize,
		maxRecords: maxRecords,
	}
}

func (c *Connector) Name() string { return jurisdiction }

type sodaRow map[string]any

func (c *Connector) Fetch(ctx context.Context) ([]models.RawRecord, []string, error) {
	var warnings []string
	headers := map[string]string{}
	if c.appToken != "" {
		headers["X-App-Token"] = c.appToken
	}

	rows, err := connectors.Paginate(ctx, c.pageSize, c.maxRecords, func(ctx context.Context, offset, limit int) ([]sodaRow, error) {
		url := fmt.Sprintf("%s?$limit=%d&$offset=%d&$order=:id", c.baseURL, limit, offset)
		var page []sodaRow
		if err := c.fetcher.GetJSON(ctx, url, headers, &page); err != nil {
			return nil, err
		}
		return page, nil
	})

	records := make([]models.RawRecord, 0, len(rows))
	for _, row := range rows {
		rec, ok := parseRow(row)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("skipped row missing permit key: %v", row))
			continue
		}
		records = append(records, rec)
	}

	if err != nil {
		return records, warnings, err
	}
	if len(rows) > 0 && len(records) == 0 {
		return records, warnings, fmt.Errorf("sandiego: parsed zero of %d fetched rows, upstream schema may have changed", len(rows))
	}
	return records, warnings, nil
}

func parseRow(row sodaRow) (models.RawRecord, bool) {
	key := str(row, "record_id", "permit_number")
	if key == "" {
		return models.RawRecord{}, false
	}

	rec := models.RawRecord{
		Jurisdiction:      jurisdiction,
		SourceFacilityKey: key,
		Name:              str(row, "business_name", "name"),
		Address:           str(row, "address", "facility_address"),
		City:              str(row, "city"),
		State:             "CA",
		PostalCode:        str(row, "zip", "zip_code"),
	}

	if lat, lon, ok := coords(row); ok {
		rec.Coordinates = &models.Coordinates{Latitude: lat, Longitude: lon}
	}

	if score := permitStatusScore(str(row, "permit_status", "status")); score != nil {
		rec.Inspection = &models.InspectionRecord{
			Date:  inspectionDate(row),
			Score: *score,
		}
	}

	return rec, true
}

// permitStatusScore maps Socrata's permit status field to a provisional
// numeric score: an active permit implies recent compliance, anything else
// implies elevated risk. This is the provisional mapping spec §9 flags for
// confirmation with domain owners; it is isolated here behind the same
// ScoreValue union as every other connector so replacing it later touches
// nothing downstream.
func permitStatusScore(status string) *models.ScoreValue {
	switch status {
	case "":
		return nil
	case "ACTIVE":
		v := models.NewNumericScore(88)
		return &v
	case "PENDING":
		v := models.NewNumericScore(75)
		return &v
	default:
		v := models.NewNumericScore(55)
		return &v
	}
}

func inspectionDate(row sodaRow) time.Time {
	raw := str(row, "inspection_date", "permit_issue_date")
	if raw == "" {
		return time.Now().UTC()
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.000", raw); err == nil {
		return t
	}
	return time.Now().UTC()
}

func str(row sodaRow, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func coords(row sodaRow) (lat, lon float64, ok bool) {
	latStr := str(row, "latitude")
	lonStr := str(row, "longitude")
	if latStr == "" || lonStr == "" {
		if loc, present := row["location"]; present {
			if m, ok := loc.(map[string]any); ok {
				latStr, _ = m["latitude"].(string)
				lonStr, _ = m["longitude"].(string)
			}
		}
	}
	if latStr == "" || lonStr == "" {
		return 0, 0, false
	}

	latF, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, false
	}
	lonF, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, false
	}

	c := models.Coordinates{Latitude: latF, Longitude: lonF}
	return latF, lonF, c.Valid()
}
