package models

import "time"

// ConnectorStatus is the per-run outcome of one connector (spec §3):
// source name, count of records fetched, and an optional error message.
// Only the most recent run per source is retained.
type ConnectorStatus struct {
	Source         string    `json:"source" db:"source"`
	FetchedRecords int       `json:"fetched_records" db:"fetched_records"`
	Error          *string   `json:"error,omitempty" db:"error"`
	RanAt          time.Time `json:"ran_at" db:"ran_at"`
}

// IngestionStats is the process-wide singleton returned by
// GET /api/v1/system/ingestion (spec §3, §6).
type IngestionStats struct {
	LastRefreshAt    *time.Time        `json:"last_refresh_at,omitempty"`
	UniqueFacilities int               `json:"unique_facilities"`
	ConnectorStats   []ConnectorStatus `json:"connector_stats"`
}

// RawRecord is the uniform intermediate record every connector parses raw
// upstream data into, prior to normalization and merging (spec §3, §4.2).
type RawRecord struct {
	Jurisdiction      string
	SourceFacilityKey string
	Name              string
	Address           string
	City              string
	State             string
	PostalCode        string
	Coordinates       *Coordinates
	Inspection        *InspectionRecord // nil when the source has no inspection/score for this record
}

// IngestionEvent is published to the analytics shim once per connector
// run within a refresh (SPEC_FULL §3). It is transport to an external
// system, not a core read path.
type IngestionEvent struct {
	Source         string    `json:"source"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	FetchedRecords int       `json:"fetched_records"`
	Error          string    `json:"error,omitempty"`
}
