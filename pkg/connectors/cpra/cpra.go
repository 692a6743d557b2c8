// Package cpra implements the CPRA connector: a CSV-export-first, live-JSON-
// fallback source covering Orange County and Pasadena (spec §4.2). Both
// jurisdictions publish a CSV extract of their public-records-request
// dataset; when that URL is unset or returns no rows, the connector falls
// back to each jurisdiction's live JSON endpoint.
package cpra

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/calhealth/trustscore/pkg/connectors"
	"github.com/calhealth/trustscore/pkg/models"
)

type jurisdictionSource struct {
	label   string
	csvURL  string
	liveURL string
}

type Connector struct {
	fetcher *connectors.HTTPFetcher
	sources []jurisdictionSource
}

func New(orangeCountyCSVURL, orangeCountyLiveURL, pasadenaCSVURL, pasadenaLiveURL string, timeout time.Duration) *Connector {
	return &Connector{
		fetcher: connectors.NewHTTPFetcher(timeout),
		sources: []jurisdictionSource{
			{label: "Orange County", csvURL: orangeCountyCSVURL, liveURL: orangeCountyLiveURL},
			{label: "Pasadena", csvURL: pasadenaCSVURL, liveURL: pasadenaLiveURL},
		},
	}
}

func (c *Connector) Name() string { return "CPRA" }

func (c *Connector) Fetch(ctx context.Context) ([]models.RawRecord, []string, error) {
	var (
		records  []models.RawRecord
		warnings []string
		firstErr error
	)

	for _, src := range c.sources {
		recs, warns, err := c.fetchSource(ctx, src)
		records = append(records, recs...)
		warnings = append(warnings, warns...)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("cpra: %s: %w", src.label, err)
		}
	}

	return records, warnings, firstErr
}

func (c *Connector) fetchSource(ctx context.Context, src jurisdictionSource) ([]models.RawRecord, []string, error) {
	var fallbackWarnings []string
	if src.csvURL != "" {
		records, warnings, err := c.fetchCSV(ctx, src)
		if err == nil && len(records) > 0 {
			return records, warnings, nil
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: csv source failed (%v), falling back to live endpoint", src.label, err))
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: csv source returned no rows, falling back to live endpoint", src.label))
		}
		fallbackWarnings = warnings
	}

	records, warnings, err := c.fetchLive(ctx, src)
	return records, append(fallbackWarnings, warnings...), err
}

func (c *Connector) fetchCSV(ctx context.Context, src jurisdictionSource) ([]models.RawRecord, []string, error) {
	body, err := c.fetcher.GetBytes(ctx, src.csvURL, nil)
	if err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := indexColumns(header)

	var records []models.RawRecord
	var warnings []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped malformed csv row: %v", err))
			continue
		}

		rec, ok := parseCSVRow(src.label, columns, row)
		if !ok {
			warnings = append(warnings, "skipped csv row missing facility key")
			continue
		}
		records = append(records, rec)
	}

	return records, warnings, nil
}

func (c *Connector) fetchLive(ctx context.Context, src jurisdictionSource) ([]models.RawRecord, []string, error) {
	if src.liveURL == "" {
		return nil, nil, fmt.Errorf("no live endpoint configured")
	}

	var rows []map[string]any
	if err := c.fetcher.GetJSON(ctx, src.liveURL, nil, &rows); err != nil {
		return nil, nil, err
	}

	var records []models.RawRecord
	var warnings []string
	for _, row := range rows {
		rec, ok := parseLiveRow(src.label, row)
		if !ok {
			warnings = append(warnings, "skipped live row missing facility key")
			continue
		}
		records = append(records, rec)
	}

	if len(rows) > 0 && len(records) == 0 {
		return records, warnings, fmt.Errorf("parsed zero of %d fetched rows, upstream schema may have changed", len(rows))
	}
	return records, warnings, nil
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func csvField(columns map[string]int, row []string, key string) string {
	i, ok := columns[key]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseCSVRow(label string, columns map[string]int, row []string) (models.RawRecord, bool) {
	key := csvField(columns, row, "facility_id")
	if key == "" {
		key = csvField(columns, row, "permit_id")
	}
	if key == "" {
		return models.RawRecord{}, false
	}

	rec := models.RawRecord{
		Jurisdiction:      label,
		SourceFacilityKey: key,
		Name:              csvField(columns, row, "facility_name"),
		Address:           csvField(columns, row, "address"),
		City:              csvField(columns, row, "city"),
		State:             "CA",
		PostalCode:        csvField(columns, row, "zip"),
	}

	latStr := csvField(columns, row, "latitude")
	lonStr := csvField(columns, row, "longitude")
	if lat, err1 := strconv.ParseFloat(latStr, 64); err1 == nil {
		if lon, err2 := strconv.ParseFloat(lonStr, 64); err2 == nil {
			c := models.Coordinates{Latitude: lat, Longitude: lon}
			if c.Valid() {
				rec.Coordinates = &c
			}
		}
	}

	scoreStr := csvField(columns, row, "score")
	if scoreStr != "" {
		if score, err := strconv.ParseFloat(scoreStr, 64); err == nil {
			rec.Inspection = &models.InspectionRecord{
				Date:  parseCSVDate(csvField(columns, row, "inspection_date")),
				Score: models.NewNumericScore(score),
			}
		}
	}

	return rec, true
}

func parseCSVDate(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	layouts := []string{"2006-01-02", "01/02/2006", time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func parseLiveRow(label string, row map[string]any) (models.RawRecord, bool) {
	key := strField(row, "facility_id", "permit_id", "id")
	if key == "" {
		return models.RawRecord{}, false
	}

	rec := models.RawRecord{
		Jurisdiction:      label,
		SourceFacilityKey: key,
		Name:              strField(row, "facility_name", "name"),
		Address:           strField(row, "address"),
		City:              strField(row, "city"),
		State:             "CA",
		PostalCode:        strField(row, "zip", "postal_code"),
	}

	if lat, ok := floatField(row, "latitude", "lat"); ok {
		if lon, ok := floatField(row, "longitude", "lon"); ok {
			c := models.Coordinates{Latitude: lat, Longitude: lon}
			if c.Valid() {
				rec.Coordinates = &c
			}
		}
	}

	if score, ok := floatField(row, "score"); ok {
		rec.Inspection = &models.InspectionRecord{
			Date:  parseCSVDate(strField(row, "inspection_date")),
			Score: models.NewNumericScore(score),
		}
	}

	return rec, true
}

func strField(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func floatField(row map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			switch t := v.(type) {
			case float64:
				return t, true
			case string:
				if f, err := strconv.ParseFloat(t, 64); err == nil {
					return f, true
				}
			}
		}
	}
	return 0, false
}
