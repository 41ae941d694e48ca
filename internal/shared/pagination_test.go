package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPaginationClampsPage(t *testing.T) {
	p := NewPagination(9, 4, 10)
	require.Equal(t, 3, p.Page)
	require.Equal(t, 3, p.TotalPages)

	p = NewPagination(-2, 4, 10)
	require.Equal(t, 1, p.Page)

	p = NewPagination(5, 4, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 0, p.TotalPages)
	start, end := p.Bounds()
	require.Equal(t, 0, start)
	require.Equal(t, 0, end)
}

func TestPaginationBounds(t *testing.T) {
	cases := []struct {
		page       int
		start, end int
	}{
		{1, 0, 4},
		{2, 4, 8},
		{3, 8, 10},
	}
	for _, tc := range cases {
		p := NewPagination(tc.page, 4, 10)
		start, end := p.Bounds()
		if start != tc.start || end != tc.end {
			t.Fatalf("page %d: expected [%d,%d) got [%d,%d)", tc.page, tc.start, tc.end, start, end)
		}
	}
	p := NewPagination(3, 4, 10)
	require.True(t, p.HasPrev())
	require.False(t, p.HasNext())
}
