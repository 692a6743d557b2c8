// Package connectors defines the pluggable jurisdiction-connector contract
// (spec §4.2) and the helpers shared by its five concrete implementations.
//
// Connector polymorphism is modeled as a single-method interface rather
// than a class hierarchy, per spec §9's design note: this both enables
// parallel dispatch in the orchestrator (pkg/ingest) and makes mock
// substitution in tests trivial.
package connectors

import (
	"context"

	"github.com/calhealth/trustscore/pkg/models"
)

// Connector fetches raw records from one upstream jurisdiction source.
// Fetch must never return a non-nil error for reasons a caller could have
// avoided by retrying later (network blips, partial parse failures on a
// subset of rows) without also returning whatever records it did manage to
// parse — the orchestrator needs both, per spec §4.2's pagination error
// contract.
type Connector interface {
	// Name identifies the connector for status reporting (spec §3's
	// "source name").
	Name() string

	// Fetch retrieves and parses this source's current record set. It
	// returns any successfully parsed records together with non-fatal
	// parse warnings, and an error only when the fetch failed outright or
	// the strict empty-batch rule (spec §4.2) tripped.
	Fetch(ctx context.Context) ([]models.RawRecord, []string, error)
}
