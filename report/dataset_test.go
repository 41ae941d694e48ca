package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDatasetChecksArity(t *testing.T) {
	_, err := NewDataset([]string{"#", "Name"}, [][]string{{"1", "Ethanol"}, {"2"}})
	var arity *ArityError
	require.True(t, errors.As(err, &arity))
	require.Equal(t, 1, arity.Row)
	require.Equal(t, 1, arity.Got)
	require.Equal(t, 2, arity.Expected)

	_, err = NewDataset(nil, nil)
	require.ErrorIs(t, err, ErrNoHeaders)
}

func TestNewDatasetCopiesInput(t *testing.T) {
	rows := [][]string{{"1", "Ethanol"}}
	ds, err := NewDataset([]string{"#", "Name"}, rows)
	require.NoError(t, err)
	rows[0][1] = "changed"
	require.Equal(t, "Ethanol", ds.Rows()[0][1])
	require.Equal(t, 2, ds.Columns())
	require.Equal(t, 1, ds.Len())
}
