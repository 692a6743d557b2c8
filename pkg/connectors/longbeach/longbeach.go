// Package longbeach implements the Long Beach connector: a scrape of the
// city's restaurant-closures HTML listing (spec §4.2). Records are
// placard-style, representing red/yellow closure events rather than a
// numeric inspection score.
//
// Scraping uses github.com/PuerkitoBio/goquery to walk the DOM, the same
// library and table-walking idiom the reference pack's article scanner
// uses for its own HTML source.
package longbeach

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/calhealth/trustscore/pkg/connectors"
	"github.com/calhealth/trustscore/pkg/models"
)

const jurisdiction = "Long Beach"

type Connector struct {
	fetcher    *connectors.HTTPFetcher
	listingURL string
}

func New(listingURL string, timeout time.Duration) *Connector {
	return &Connector{
		fetcher:    connectors.NewHTTPFetcher(timeout),
		listingURL: listingURL,
	}
}

func (c *Connector) Name() string { return jurisdiction }

func (c *Connector) Fetch(ctx context.Context) ([]models.RawRecord, []string, error) {
	body, err := c.fetcher.GetBytes(ctx, c.listingURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("longbeach: fetch listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("longbeach: parse html: %w", err)
	}

	var records []models.RawRecord
	var warnings []string

	doc.Find("table.closures-listing tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			warnings = append(warnings, "skipped row with fewer than 3 cells")
			return
		}

		name := strings.TrimSpace(cells.Eq(0).Text())
		address := strings.TrimSpace(cells.Eq(1).Text())
		status := strings.ToLower(strings.TrimSpace(cells.Eq(2).Text()))
		closedOn := ""
		if cells.Length() > 3 {
			closedOn = strings.TrimSpace(cells.Eq(3).Text())
		}

		if name == "" {
			warnings = append(warnings, "skipped row with empty name")
			return
		}

		placard := placardFromStatus(status)
		rec := models.RawRecord{
			Jurisdiction:      jurisdiction,
			SourceFacilityKey: sourceKey(name, address),
			Name:              name,
			Address:           address,
			City:              "Long Beach",
			State:             "CA",
			Inspection: &models.InspectionRecord{
				Date:  parseDate(closedOn),
				Score: models.NewPlacardScore(placard),
			},
		}
		records = append(records, rec)
	})

	if doc.Find("table.closures-listing tbody tr").Length() > 0 && len(records) == 0 {
		return records, warnings, fmt.Errorf("longbeach: parsed zero rows from a non-empty listing, page structure may have changed")
	}

	return records, warnings, nil
}

func placardFromStatus(status string) models.PlacardStatus {
	switch {
	case strings.Contains(status, "closed"):
		return models.PlacardRed
	case strings.Contains(status, "warning"), strings.Contains(status, "probation"):
		return models.PlacardYellow
	default:
		return models.PlacardGreen
	}
}

func sourceKey(name, address string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + strings.ToLower(strings.TrimSpace(address))
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	layouts := []string{"January 2, 2006", "1/2/2006", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
