package normalize

import "github.com/calhealth/trustscore/pkg/models"

// SelectLatest picks the inspection record that determines a facility's
// score, per spec §4.1: the record with the latest date wins; ties on date
// resolve to the numerically highest normalized score (the spec's explicit
// "prefer recent, then optimistic" decision — see DESIGN.md's Open
// Questions resolution). Returns false if records is empty, in which case
// the caller should fall back to score 0 (spec §4.1's "no valid inspection"
// case).
func SelectLatest(records []models.InspectionRecord) (models.InspectionRecord, bool) {
	if len(records) == 0 {
		return models.InspectionRecord{}, false
	}

	best := records[0]
	bestScore := Score(best.Score)
	for _, r := range records[1:] {
		switch {
		case r.Date.After(best.Date):
			best, bestScore = r, Score(r.Score)
		case r.Date.Equal(best.Date):
			if s := Score(r.Score); s > bestScore {
				best, bestScore = r, s
			}
		}
	}
	return best, true
}
