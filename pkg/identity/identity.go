// Package identity derives the stable facility identifier required by
// spec §3: a deterministic id from (jurisdiction, source_facility_key),
// reproducible across ingestion runs so re-ingestion is idempotent.
//
// Adapted from the teacher's pkg/fingerprint canonical-hash approach,
// simplified to the fixed two-field key this spec actually needs.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/calhealth/trustscore/pkg/models"
)

// FacilityID deterministically derives a facility's id from its ingestion
// key. The same (jurisdiction, sourceFacilityKey) pair always yields the
// same id, regardless of run order or process restarts.
func FacilityID(key models.IngestionKey) string {
	canonical := strings.ToLower(strings.TrimSpace(key.Jurisdiction)) + "|" +
		strings.TrimSpace(key.SourceFacilityKey)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:24]
}
