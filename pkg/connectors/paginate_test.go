package connectors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate_StopsOnShortPage(t *testing.T) {
	pages := [][]int{{1, 2, 3}, {4, 5}}
	call := 0

	rows, err := Paginate(context.Background(), 3, 0, func(_ context.Context, offset, limit int) ([]int, error) {
		page := pages[call]
		call++
		return page, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, rows)
	assert.Equal(t, 2, call)
}

func TestPaginate_StopsAtMaxRecords(t *testing.T) {
	call := 0
	rows, err := Paginate(context.Background(), 3, 4, func(_ context.Context, offset, limit int) ([]int, error) {
		call++
		return []int{offset, offset + 1, offset + 2}, nil
	})

	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, 2, call)
}

func TestPaginate_ReturnsPartialRowsOnError(t *testing.T) {
	call := 0
	boom := errors.New("boom")

	rows, err := Paginate(context.Background(), 3, 0, func(_ context.Context, offset, limit int) ([]int, error) {
		call++
		if call == 2 {
			return nil, boom
		}
		return []int{offset, offset + 1, offset + 2}, nil
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 1, 2}, rows)
}

func TestPaginate_EmptyFirstPage(t *testing.T) {
	rows, err := Paginate(context.Background(), 3, 0, func(_ context.Context, offset, limit int) ([]int, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
