package lab

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/labstock/labstock/internal/platform/httpx"
)

func openScreen(t *testing.T, entity string, records any) View {
	t.Helper()
	screen, err := NewCatalogue().Lookup(entity)
	require.NoError(t, err)
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	v, err := screen.Open(raw, language.English)
	require.NoError(t, err)
	return v
}

func TestCatalogueDimensions(t *testing.T) {
	want := map[string][]string{
		EntityMaterials:      {"category", "supplier", "laboratory"},
		EntityBorrows:        {"status", "laboratory"},
		EntityCalibrations:   {"status", "laboratory"},
		EntityDispositions:   {"method", "laboratory"},
		EntityIncidents:      {"severity", "laboratory"},
		EntityPurchaseOrders: {"supplier", "status"},
		EntityDispenses:      {"category", "laboratory"},
	}
	cat := NewCatalogue()
	require.Len(t, cat.Entities(), len(want))
	for entity, dims := range want {
		v := openScreen(t, entity, []any{})
		sv := v.Snapshot()
		var got []string
		for _, f := range sv.Filters {
			got = append(got, f.Name)
		}
		require.Equal(t, dims, got, entity)
		require.Empty(t, sv.Rows, entity)
		require.NotNil(t, sv.Rows, entity)
	}
}

func TestSnapshotMarksSortAndOptions(t *testing.T) {
	v := openScreen(t, EntityBorrows, []map[string]any{
		{"id": 1, "code": "B-1", "status": "open", "laboratory": "Physics", "borrowed_at": "2026-02-01T08:00:00Z"},
		{"id": 2, "code": "B-2", "status": "returned", "laboratory": "Physics"},
		{"id": 3, "code": "B-3", "status": "open", "laboratory": "Chemistry"},
	})
	require.True(t, v.SetSort("code"))
	require.True(t, v.SetSort("code"))
	require.True(t, v.ToggleFilterValue("status", "open"))

	sv := v.Snapshot()
	require.Equal(t, "code", sv.Columns[0].Key)
	require.Equal(t, "desc", string(sv.Columns[0].SortDir))
	require.Len(t, sv.Rows, 2)
	require.Equal(t, "3", sv.Rows[0].ID)
	require.Equal(t, "-", sv.Rows[0].Cells[6])
	require.Equal(t, "01 Feb 2026", sv.Rows[1].Cells[6])

	status := sv.Filters[0]
	require.True(t, status.Active)
	require.Equal(t, []OptionView{{Value: "open", Selected: true}, {Value: "returned"}}, status.Options)
}

func TestRecordDatasetIncludesPurchaseOrderTotals(t *testing.T) {
	v := openScreen(t, EntityPurchaseOrders, []map[string]any{
		{"id": 7, "number": "PO-7", "supplier": "Acme", "status": "approved", "tax": "1", "shipping": "2",
			"items": []map[string]any{{"name": "Flask", "quantity": 2, "unit_price": "1234.5"}}},
	})
	ds, title, err := v.RecordDataset("7")
	require.NoError(t, err)
	require.Equal(t, "Purchase Orders 7", title)
	require.Equal(t, []string{"#", "Field", "Value"}, ds.Headers())

	values := map[string]string{}
	for i, row := range ds.Rows() {
		require.Equal(t, i+1, mustAtoi(t, row[0]))
		values[row[1]] = row[2]
	}
	require.Equal(t, "2,472.00", values["Total"])
	require.Equal(t, "2 x 1,234.50 = 2,469.00", values["Flask"])

	_, _, err = v.RecordDataset("8")
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestIncidentResolvedIsNotSortable(t *testing.T) {
	v := openScreen(t, EntityIncidents, []map[string]any{{"id": 1, "title": "Spill"}})
	require.False(t, v.SetSort("resolved"))
	require.True(t, v.SetSort("title"))
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	var n int
	_, err := fmt.Sscan(s, &n)
	require.NoError(t, err)
	return n
}
