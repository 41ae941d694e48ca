package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// one unit per byte
func byteWidth(s string) float64 { return float64(len(s)) }

func TestWrapText(t *testing.T) {
	require.Equal(t, []string{""}, wrapText("", 10, byteWidth))
	require.Equal(t, []string{"short"}, wrapText("short", 10, byteWidth))
	require.Equal(t, []string{"alpha beta", "gamma"}, wrapText("alpha beta gamma", 10, byteWidth))
	require.Equal(t, []string{"abcd", "efgh", "ij"}, wrapText("abcdefghij", 4, byteWidth))
	require.Equal(t, []string{"one", "two"}, wrapText("one\ntwo", 10, byteWidth))
}

func TestColumnWidths(t *testing.T) {
	require.Equal(t, []float64{190}, columnWidths(1, 190))
	w := columnWidths(3, 190)
	require.Equal(t, 10.0, w[0])
	require.InDelta(t, 90.0, w[1], 0.001)
	require.InDelta(t, 90.0, w[2], 0.001)
}
