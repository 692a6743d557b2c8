// Package lacounty implements the LA County connector: three paginated
// ArcGIS FeatureServer layers — inventory, inspections, and violations —
// joined on a facility key (and, for violations, an inspection serial
// number) into a single facility feature per inspection (spec §4.2).
package lacounty

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/calhealth/trustscore/pkg/connectors"
	"github.com/calhealth/trustscore/pkg/models"
)

const jurisdiction = "LA County"

// Connector fetches and joins LA County's three EMS FeatureServer layers:
// facility inventory, inspection events, and per-inspection violations.
type Connector struct {
	fetcher        *connectors.HTTPFetcher
	inventoryURL   string
	inspectionsURL string
	violationsURL  string
	pageSize       int
	maxRecords     int
}

func New(inventoryURL, inspectionsURL, violationsURL string, pageSize, maxRecords int, timeout time.Duration) *Connector {
	return &Connector{
		fetcher:        connectors.NewHTTPFetcher(timeout),
		inventoryURL:   inventoryURL,
		inspectionsURL: inspectionsURL,
		violationsURL:  violationsURL,
		pageSize:       pageSize,
		maxRecords:     maxRecords,
	}
}

func (c *Connector) Name() string { return jurisdiction }

// featureResponse mirrors an ArcGIS FeatureServer /query JSON response.
type featureResponse struct {
	Features []struct {
		Attributes map[string]any `json:"attributes"`
	} `json:"features"`
}

func (c *Connector) fetchLayer(ctx context.Context, baseURL string) ([]map[string]any, error) {
	return connectors.Paginate(ctx, c.pageSize, c.maxRecords, func(ctx context.Context, offset, limit int) ([]map[string]any, error) {
		url := fmt.Sprintf("%s?where=1%%3D1&outFields=*&f=json&resultOffset=%d&resultRecordCount=%d", baseURL, offset, limit)
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
}

// Fetch joins the inventory, inspections, and violations layers into one
// RawRecord per inspection event: inventory supplies the descriptive
// fields, inspections supplies the score/date (or, when an inspection row
// carries no score of its own, a provisional one derived from its joined
// violations), keyed first by facility id and then by inspection serial
// number.
func (c *Connector) Fetch(ctx context.Context) ([]models.RawRecord, []string, error) {
	var warnings []string

	inventoryRows, invErr := c.fetchLayer(ctx, c.inventoryURL)
	inspectionRows, inspErr := c.fetchLayer(ctx, c.inspectionsURL)
	violationRows, violErr := c.fetchLayer(ctx, c.violationsURL)

	inventory := indexByFacilityKey(inventoryRows)
	violationPoints := sumViolationPointsBySerial(violationRows)

	records := make([]models.RawRecord, 0, len(inspectionRows))
	for _, attrs := range inspectionRows {
		key := stringField(attrs, "FACILITY_ID", "FACID", "OBJECTID")
		if key == "" {
			warnings = append(warnings, fmt.Sprintf("skipped inspection row missing facility key: %v", attrs))
			continue
		}

		inv, ok := inventory[key]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("skipped inspection row: no inventory match for facility key %s", key))
			continue
		}

		rec := recordFromInventory(key, inv)

		serial := stringField(attrs, "SERIAL_NUMBER", "SERIALNUMBER")
		if score, ok := numericField(attrs, "SCORE"); ok {
			rec.Inspection = &models.InspectionRecord{
				Date:  dateField(attrs, "ACTIVITY_DATE", "INSPECTION_DATE"),
				Score: models.NewNumericScore(score),
			}
		} else if points, ok := violationPoints[serial]; ok {
			// No direct score on this inspection row; derive a provisional
			// one from its joined violation points, the same fallback
			// shape as the San Diego connector's permit-status score.
			rec.Inspection = &models.InspectionRecord{
				Date:  dateField(attrs, "ACTIVITY_DATE", "INSPECTION_DATE"),
				Score: models.NewNumericScore(clampScore(100 - points)),
			}
		}

		records = append(records, rec)
	}

	if err := firstNonNil(invErr, inspErr, violErr); err != nil {
		return records, warnings, err
	}

	// Strict parse contract (spec §4.2): zero rows parsed from a non-empty
	// inspections response indicates upstream schema drift, not an empty
	// source.
	if len(inspectionRows) > 0 && len(records) == 0 {
		return records, warnings, fmt.Errorf("lacounty: parsed zero of %d fetched inspection rows, upstream schema may have changed", len(inspectionRows))
	}

	return records, warnings, nil
}

func recordFromInventory(key string, attrs map[string]any) models.RawRecord {
	rec := models.RawRecord{
		Jurisdiction:      jurisdiction,
		SourceFacilityKey: key,
		Name:              stringField(attrs, "FACILITY_NAME", "NAME"),
		Address:           stringField(attrs, "FACILITY_ADDRESS", "ADDRESS"),
		City:              stringField(attrs, "FACILITY_CITY", "CITY"),
		State:             "CA",
		PostalCode:        stringField(attrs, "FACILITY_ZIP", "ZIP"),
	}
	if lat, lon, ok := coordinateFields(attrs); ok {
		rec.Coordinates = &models.Coordinates{Latitude: lat, Longitude: lon}
	}
	return rec
}

func indexByFacilityKey(rows []map[string]any) map[string]map[string]any {
	idx := make(map[string]map[string]any, len(rows))
	for _, attrs := range rows {
		key := stringField(attrs, "FACILITY_ID", "FACID", "OBJECTID")
		if key == "" {
			continue
		}
		if _, exists := idx[key]; !exists {
			idx[key] = attrs
		}
	}
	return idx
}

func sumViolationPointsBySerial(rows []map[string]any) map[string]float64 {
	totals := make(map[string]float64, len(rows))
	for _, attrs := range rows {
		serial := stringField(attrs, "SERIAL_NUMBER", "SERIALNUMBER")
		if serial == "" {
			continue
		}
		points, _ := numericField(attrs, "POINTS", "POINT_VALUE")
		totals[serial] += points
	}
	return totals
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
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
				return strconv.FormatFloat(t, 'f', -1, 64)
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

// dateField reads an ArcGIS epoch-millisecond timestamp field, trying each
// candidate key in order, falling back to the current time if none parse
// (an inspection with an unparseable date is still better kept than
// dropped, since the merge engine's latest-wins rule degrades gracefully).
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
