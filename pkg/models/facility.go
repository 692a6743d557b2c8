package models

import "time"

// Coordinates is an optional lat/lon pair (spec §9: "coordinates as
// optional, not sentinel values"). A nil *Coordinates means the facility
// has no known location and is excluded from geo search (spec §3) while
// remaining eligible for keyword search.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate pair is within the valid WGS84
// range (spec §3 invariant: |lat| <= 90, |lon| <= 180).
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// AutocompleteSuggestion is the compact, type-ahead-sized projection of a
// Facility returned by Store.Autocomplete — just enough to render a
// dropdown entry without paying for the full search response shape.
type AutocompleteSuggestion struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	TrustScore int    `json:"trust_score"`
}

// Facility is the primary entity: a unified restaurant record reconciled
// from one or more jurisdiction connectors (spec §3).
type Facility struct {
	ID                   string       `json:"id" db:"id"`
	Jurisdiction         string       `json:"jurisdiction" db:"jurisdiction"`
	SourceFacilityKey    string       `json:"-" db:"source_facility_key"`
	Name                 string       `json:"name" db:"name"`
	Address              string       `json:"address" db:"address"`
	City                 string       `json:"city" db:"city"`
	State                string       `json:"state" db:"state"`
	PostalCode           string       `json:"postal_code" db:"postal_code"`
	Coordinates          *Coordinates `json:"coordinates,omitempty" db:"-"`
	TrustScore           int          `json:"trust_score" db:"trust_score"`
	Band                 Band         `json:"band" db:"band"`
	LatestInspectionDate *time.Time   `json:"latest_inspection_date,omitempty" db:"latest_inspection_date"`
	Likes                int          `json:"likes" db:"likes"`
	Dislikes             int          `json:"dislikes" db:"dislikes"`
	CreatedAt            time.Time    `json:"-" db:"created_at"`
	UpdatedAt            time.Time    `json:"-" db:"updated_at"`

	// Latitude/Longitude back the db-layer scan and the grid-bucket index;
	// Coordinates is the API-facing projection derived from them.
	Latitude  *float64 `json:"-" db:"latitude"`
	Longitude *float64 `json:"-" db:"longitude"`
}

// VoteScore is likes minus dislikes (spec §3).
func (f *Facility) VoteScore() int {
	return f.Likes - f.Dislikes
}

// HasCoordinates reports whether the facility carries a usable lat/lon
// pair, per spec §3's "search-excluded but still keyword-searchable" rule.
func (f *Facility) HasCoordinates() bool {
	return f.Latitude != nil && f.Longitude != nil
}

// SyncCoordinates keeps the Coordinates projection and the flat
// Latitude/Longitude storage fields consistent. Call after either is
// mutated directly.
func (f *Facility) SyncCoordinates() {
	if f.Latitude != nil && f.Longitude != nil {
		f.Coordinates = &Coordinates{Latitude: *f.Latitude, Longitude: *f.Longitude}
		return
	}
	f.Coordinates = nil
}

// SetCoordinates sets both the flat storage fields and the projection.
func (f *Facility) SetCoordinates(c *Coordinates) {
	if c == nil {
		f.Latitude = nil
		f.Longitude = nil
		f.Coordinates = nil
		return
	}
	lat, lon := c.Latitude, c.Longitude
	f.Latitude = &lat
	f.Longitude = &lon
	f.Coordinates = c
}

// InspectionRecord is one observation attached to a facility by a
// connector (spec §3).
type InspectionRecord struct {
	Date  time.Time
	Score ScoreValue
}

// IngestionKey identifies a facility's source identity for dedup/merge
// purposes: (jurisdiction, source_facility_key), per spec §4.3.
type IngestionKey struct {
	Jurisdiction      string
	SourceFacilityKey string
}
