package lab

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPurchaseOrderTotals(t *testing.T) {
	form := PurchaseOrderForm{
		Items: []PurchaseOrderItem{
			{Name: "Pipette tips", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("0.10")},
			{Name: "Ethanol", Quantity: decimal.RequireFromString("2.5"), UnitPrice: decimal.NewFromInt(8)},
		},
		Tax:      decimal.RequireFromString("2.03"),
		Shipping: decimal.RequireFromString("4"),
	}
	totals := form.Totals()
	require.True(t, totals.Subtotal.Equal(decimal.RequireFromString("20.30")))
	require.True(t, totals.Grand.Equal(decimal.RequireFromString("26.33")))
}

func TestPurchaseOrderFormDecodesExplicitFields(t *testing.T) {
	var form PurchaseOrderForm
	raw := `{"number":"PO-9","supplier":"Acme","status":"submitted","items":[{"name":"Flask","quantity":"1","unit_price":"10"}],"tax":"1.10","shipping":2}`
	require.NoError(t, json.Unmarshal([]byte(raw), &form))
	require.NoError(t, validateStruct(NewValidator(), form))
	require.Equal(t, "13.1", form.Totals().Grand.String())
}

func TestPurchaseOrderFormValidation(t *testing.T) {
	err := validateStruct(NewValidator(), PurchaseOrderForm{Status: "lost", Items: []PurchaseOrderItem{{Quantity: decimal.Zero}}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "is required", verr.Fields["number"])
	require.Equal(t, "is required", verr.Fields["supplier"])
	require.Contains(t, verr.Fields["status"], "must be one of")
	require.Contains(t, verr.Fields, "items[0].name")
	require.Contains(t, verr.Fields, "items[0].quantity")
}
