package lab

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Date accepts both RFC 3339 timestamps and bare YYYY-MM-DD dates from the
// backend. The zero Date encodes as null.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		d.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("lab: date: %w", err)
	}
	for _, layout := range []string{time.RFC3339Nano, dateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("lab: unrecognised date %q", raw)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// Material is a stocked consumable, reagent or piece of glassware.
type Material struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Supplier   string          `json:"supplier"`
	Laboratory string          `json:"laboratory"`
	Unit       string          `json:"unit"`
	Quantity   decimal.Decimal `json:"quantity"`
	MinStock   decimal.Decimal `json:"min_stock"`
	Location   string          `json:"location"`
	ExpiresAt  Date            `json:"expires_at"`
}

// Borrow is a borrow form for equipment or materials.
type Borrow struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Borrower   string          `json:"borrower"`
	Item       string          `json:"item"`
	Quantity   decimal.Decimal `json:"quantity"`
	Laboratory string          `json:"laboratory"`
	Status     string          `json:"status"`
	BorrowedAt Date            `json:"borrowed_at"`
	DueAt      Date            `json:"due_at"`
	ReturnedAt Date            `json:"returned_at"`
}

// Calibration tracks an instrument calibration.
type Calibration struct {
	ID           int64  `json:"id"`
	Equipment    string `json:"equipment"`
	SerialNumber string `json:"serial_number"`
	Laboratory   string `json:"laboratory"`
	Vendor       string `json:"vendor"`
	Status       string `json:"status"`
	CalibratedAt Date   `json:"calibrated_at"`
	NextDueAt    Date   `json:"next_due_at"`
}

// Disposition records a disposal of material.
type Disposition struct {
	ID         int64           `json:"id"`
	Item       string          `json:"item"`
	Quantity   decimal.Decimal `json:"quantity"`
	Method     string          `json:"method"`
	Laboratory string          `json:"laboratory"`
	Reason     string          `json:"reason"`
	ApprovedBy string          `json:"approved_by"`
	DisposedAt Date            `json:"disposed_at"`
}

// Incident is a laboratory safety incident report.
type Incident struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Laboratory  string `json:"laboratory"`
	ReportedBy  string `json:"reported_by"`
	Description string `json:"description"`
	Resolved    bool   `json:"resolved"`
	OccurredAt  Date   `json:"occurred_at"`
}

// PurchaseOrderItem is one ordered line.
type PurchaseOrderItem struct {
	Name      string          `json:"name" validate:"required,max=200"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

// Amount is quantity times unit price.
func (i PurchaseOrderItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// PurchaseOrder is a supplier order with explicit tax and shipping amounts.
type PurchaseOrder struct {
	ID        int64               `json:"id"`
	Number    string              `json:"number"`
	Supplier  string              `json:"supplier"`
	Status    string              `json:"status"`
	OrderedAt Date                `json:"ordered_at"`
	Items     []PurchaseOrderItem `json:"items"`
	Tax       decimal.Decimal     `json:"tax"`
	Shipping  decimal.Decimal     `json:"shipping"`
	Notes     string              `json:"notes"`
}

// Totals computes the order amounts.
func (p PurchaseOrder) Totals() Totals {
	return computeTotals(p.Items, p.Tax, p.Shipping)
}

// Dispense records material handed out to a recipient.
type Dispense struct {
	ID          int64           `json:"id"`
	Item        string          `json:"item"`
	Category    string          `json:"category"`
	Laboratory  string          `json:"laboratory"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Recipient   string          `json:"recipient"`
	DispensedAt Date            `json:"dispensed_at"`
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
