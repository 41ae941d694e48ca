package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := NewDataset(
		[]string{"#", "Material", "Supplier"},
		[][]string{{"1", "Ethanol", "Merck"}, {"2", "Agar", "Sigma"}},
	)
	require.NoError(t, err)
	return ds
}

func TestWriteCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, sampleDataset(t)))
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"#", "Material", "Supplier"}, records[0])
	require.Equal(t, "Agar", records[2][1])
}

func TestWriteXLSX(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteXLSX(buf, "Materials/Stock", sampleDataset(t)))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.Equal(t, []string{"Materials-Stock"}, f.GetSheetList())
	v, err := f.GetCellValue("Materials-Stock", "B3")
	require.NoError(t, err)
	require.Equal(t, "Agar", v)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatPDF, f)
	f, err = ParseFormat("XLSX")
	require.NoError(t, err)
	require.Equal(t, "Borrows.xlsx", f.FilenameFor("Borrows"))
	_, err = ParseFormat("docx")
	require.Error(t, err)
}
