package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calhealth/trustscore/pkg/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		value models.ScoreValue
		want  int
	}{
		{"numeric in range", models.NewNumericScore(87), 87},
		{"numeric rounds", models.NewNumericScore(87.6), 88},
		{"numeric clamps above 100", models.NewNumericScore(140), 100},
		{"numeric clamps below 0", models.NewNumericScore(-5), 0},
		{"letter A", models.NewLetterScore(models.LetterA), 95},
		{"letter B", models.NewLetterScore(models.LetterB), 84},
		{"letter C", models.NewLetterScore(models.LetterC), 74},
		{"letter D", models.NewLetterScore(models.LetterD), 64},
		{"letter F", models.NewLetterScore(models.LetterF), 50},
		{"unknown letter falls back to failing", models.NewLetterScore("Z"), 50},
		{"placard green", models.NewPlacardScore(models.PlacardGreen), 95},
		{"placard yellow", models.NewPlacardScore(models.PlacardYellow), 74},
		{"placard red", models.NewPlacardScore(models.PlacardRed), 40},
		{"unknown placard falls back to red", models.NewPlacardScore("purple"), 40},
		{"unknown kind defaults to zero", models.ScoreValue{Kind: 99}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.value))
		})
	}
}

func TestBandOf(t *testing.T) {
	tests := []struct {
		score int
		want  models.Band
	}{
		{100, models.BandExcellent},
		{90, models.BandExcellent},
		{89, models.BandGood},
		{80, models.BandGood},
		{79, models.BandNeedsAttention},
		{0, models.BandNeedsAttention},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BandOf(tt.score), "score %d", tt.score)
	}
}

func TestNormalize(t *testing.T) {
	score, band := Normalize(models.NewLetterScore(models.LetterA))
	assert.Equal(t, 95, score)
	assert.Equal(t, models.BandExcellent, band)
}
