// Package normalize implements the score normalizer (spec §4.1): it maps
// a jurisdiction's native scoring convention (numeric deduction score,
// letter grade, or placard status) onto one comparable 0-100 Trust Score
// and a three-band severity classification.
//
// It is a pure, dependency-free package — the normalizer is a total
// function over the ScoreValue tag set, matching the "tagged score union"
// design note (spec §9).
package normalize

import (
	"math"

	"github.com/calhealth/trustscore/pkg/models"
)

const (
	letterScoreA = 95
	letterScoreB = 84
	letterScoreC = 74
	letterScoreD = 64
	letterScoreF = 50

	placardScoreGreen  = 95
	placardScoreYellow = 74
	placardScoreRed    = 40

	bandExcellentMin = 90
	bandGoodMin      = 80
)

// Score maps a tagged score value to a Trust Score in [0, 100]. Unknown
// letter/placard variants fall back to the most conservative score for
// their kind (treated as a failing grade / red placard) rather than
// panicking — malformed connector output should degrade, not crash a
// refresh.
func Score(v models.ScoreValue) int {
	switch v.Kind {
	case models.ScoreKindNumeric:
		return clamp(round(v.Numeric), 0, 100)
	case models.ScoreKindLetter:
		return letterScore(v.Letter)
	case models.ScoreKindPlacard:
		return placardScore(v.Placard)
	default:
		return 0
	}
}

// BandOf classifies a Trust Score into its severity band using the closed
// interval thresholds from spec §4.1.
func BandOf(score int) models.Band {
	switch {
	case score >= bandExcellentMin:
		return models.BandExcellent
	case score >= bandGoodMin:
		return models.BandGood
	default:
		return models.BandNeedsAttention
	}
}

// Normalize scores and bands a tagged value in one call.
func Normalize(v models.ScoreValue) (score int, band models.Band) {
	score = Score(v)
	band = BandOf(score)
	return
}

func letterScore(l models.LetterGrade) int {
	switch l {
	case models.LetterA:
		return letterScoreA
	case models.LetterB:
		return letterScoreB
	case models.LetterC:
		return letterScoreC
	case models.LetterD:
		return letterScoreD
	case models.LetterF:
		return letterScoreF
	default:
		return letterScoreF
	}
}

func placardScore(p models.PlacardStatus) int {
	switch p {
	case models.PlacardGreen:
		return placardScoreGreen
	case models.PlacardYellow:
		return placardScoreYellow
	case models.PlacardRed:
		return placardScoreRed
	default:
		return placardScoreRed
	}
}

func round(n float64) int {
	return int(math.Round(n))
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
