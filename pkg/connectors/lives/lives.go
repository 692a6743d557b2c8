// Package lives implements the LIVES connector: one sub-fetcher per county
// (Riverside, San Bernardino) against an ArcGIS FeatureServer JSON endpoint,
// composed into a single Connector (spec §4.2). Both counties publish the
// same LIVES inspection schema, so the two sub-fetchers share one parser and
// only differ by base URL and county label.
package lives

import (
	"context"
	"fmt"
	"time"

	"github.com/calhealth/trustscore/pkg/connectors"
	"github.com/calhealth/trustscore/pkg/models"
)

const jurisdictionPrefix = "LIVES"

type county struct {
	label   string
	baseURL string
}

type Connector struct {
	fetcher    *connectors.HTTPFetcher
	counties   []county
	pageSize   int
	maxRecords int
}

func New(riversideBaseURL, sanBernardinoBaseURL string, pageSize, maxRecords int, timeout time.Duration) *Connector {
	return &Connector{
		fetcher: connectors.NewHTTPFetcher(timeout),
		counties: []county{
			{label: "Riverside", baseURL: riversideBaseURL},
			{label: "San Bernardino", baseURL: sanBernardinoBaseURL},
		},
		pageSize:   pageSize,
		maxRecords: maxRecords,
	}
}

func (c *Connector) Name() string { return jurisdictionPrefix }

type featureResponse struct {
	Features []struct {
		Attributes map[string]any `json:"attributes"`
	} `json:"features"`
}

// Fetch runs each county's sub-fetch in turn and concatenates results.
// A single county's failure does not abort the others; its error is
// returned alongside whatever records were already gathered, consistent
// with the partial-results-on-error contract the pagination helper already
// applies within one county.
func (c *Connector) Fetch(ctx context.Context) ([]models.RawRecord, []string, error) {
	var (
		records  []models.RawRecord
		warnings []string
		firstErr error
	)

	for _, cty := range c.counties {
		recs, warns, err := c.fetchCounty(ctx, cty)
		records = append(records, recs...)
		warnings = append(warnings, warns...)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("lives: %s: %w", cty.label, err)
		}
	}

	return records, warnings, firstErr
}

func (c *Connector) fetchCounty(ctx context.Context, cty county) ([]models.RawRecord, []string, error) {
	var warnings []string

	rows, err := connectors.Paginate(ctx, c.pageSize, c.maxRecords, func(ctx context.Context, offset, limit int) ([]map[string]any, error) {
		url := fmt.Sprintf("%s?where=1%%3D1&outFields=*&f=json&resultOffset=%d&resultRecordCount=%d", cty.baseURL, offset, limit)
		var resp featureResponse
		if err := c.fetcher.GetJSON(ctx, url, nil, &resp); err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(resp.Features))
		for _, f := range resp.Features {
			out = append(out, f.Attributes)
		}
		return out, nil
	})

	records := make([]models.RawRecord, 0, len(rows))
	for _, attrs := range rows {
		rec, ok := parseAttributes(cty.label, attrs)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: skipped row missing facility key: %v", cty.label, attrs))
			continue
		}
		records = append(records, rec)
	}

	if err != nil {
		return records, warnings, err
	}
	if len(rows) > 0 && len(records) == 0 {
		return records, warnings, fmt.Errorf("parsed zero of %d fetched rows, upstream schema may have changed", len(rows))
	}
	return records, warnings, nil
}

func parseAttributes(countyLabel string, attrs map[string]any) (models.RawRecord, bool) {
	key := stringField(attrs, "PR_ID", "FACILITYID", "OBJECTID")
	if key == "" {
		return models.RawRecord{}, false
	}

	rec := models.RawRecord{
		Jurisdiction:      fmt.Sprintf("%s - %s", jurisdictionPrefix, countyLabel),
		SourceFacilityKey: key,
		Name:              stringField(attrs, "PR_NAME", "FACILITY_NAME"),
		Address:           stringField(attrs, "PR_ADDR1", "ADDRESS"),
		City:              stringField(attrs, "PR_CITY", "CITY"),
		State:             "CA",
		PostalCode:        stringField(attrs, "PR_ZIP", "ZIP"),
	}

	if lat, lon, ok := coordinateFields(attrs); ok {
		rec.Coordinates = &models.Coordinates{Latitude: lat, Longitude: lon}
	}

	if score, ok := numericField(attrs, "SCORE", "INS_SCORE"); ok {
		rec.Inspection = &models.InspectionRecord{
			Date:  dateField(attrs, "ACTIVITY_DATE", "INS_DATE"),
			Score: models.NewNumericScore(score),
		}
	}

	return rec, true
}

func stringField(attrs map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := attrs[k]; ok {
			switch t := v.(type) {
			case string:
				if t != "" {
					return t
				}
			case float64:
				if t != 0 {
					return fmt.Sprintf("%v", t)
				}
			}
		}
	}
	return ""
}

func numericField(attrs map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := attrs[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func coordinateFields(attrs map[string]any) (lat, lon float64, ok bool) {
	lat, latOK := numericField(attrs, "LATITUDE", "LAT", "Y")
	lon, lonOK := numericField(attrs, "LONGITUDE", "LON", "X")
	if !latOK || !lonOK {
		return 0, 0, false
	}
	c := models.Coordinates{Latitude: lat, Longitude: lon}
	return lat, lon, c.Valid()
}

func dateField(attrs map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		if v, ok := attrs[k]; ok {
			if ms, ok := v.(float64); ok && ms > 0 {
				return time.UnixMilli(int64(ms)).UTC()
			}
		}
	}
	return time.Now().UTC()
}
