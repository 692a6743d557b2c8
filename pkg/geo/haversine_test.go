package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMiles_SamePointIsZero(t *testing.T) {
	assert.InDelta(t, 0, DistanceMiles(34.05, -118.24, 34.05, -118.24), 1e-9)
}

func TestDistanceMiles_KnownPair(t *testing.T) {
	// Downtown LA to downtown San Diego, roughly 112 miles apart.
	d := DistanceMiles(34.0522, -118.2437, 32.7157, -117.1611)
	assert.InDelta(t, 112, d, 5)
}

func TestNeighborCells_IncludesCenterCell(t *testing.T) {
	center := BucketOf(34.05, -118.24)
	cells := NeighborCells(34.05, -118.24, 5)

	found := false
	for _, c := range cells {
		if c == center {
			found = true
			break
		}
	}
	assert.True(t, found)
}

func TestNeighborCells_LargerRadiusCoversMoreCells(t *testing.T) {
	small := NeighborCells(34.05, -118.24, 1)
	large := NeighborCells(34.05, -118.24, 50)
	assert.Greater(t, len(large), len(small))
}
