package lab

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/labstock/labstock/internal/listview"
	"github.com/labstock/labstock/internal/platform/httpx"
)

// Entity names used in routes, cache keys and report logs.
const (
	EntityMaterials      = "materials"
	EntityBorrows        = "borrows"
	EntityCalibrations   = "calibrations"
	EntityDispositions   = "dispositions"
	EntityIncidents      = "incidents"
	EntityPurchaseOrders = "purchase-orders"
	EntityDispenses      = "dispenses"
)

// Catalogue is the registry of entity screens.
type Catalogue struct {
	screens map[string]Screen
	order   []string
}

// NewCatalogue registers every lab screen.
func NewCatalogue() *Catalogue {
	c := &Catalogue{screens: make(map[string]Screen)}
	c.register(materialsScreen())
	c.register(borrowsScreen())
	c.register(calibrationsScreen())
	c.register(dispositionsScreen())
	c.register(incidentsScreen())
	c.register(purchaseOrdersScreen())
	c.register(dispensesScreen())
	return c
}

func (c *Catalogue) register(s Screen) {
	c.screens[s.Entity()] = s
	c.order = append(c.order, s.Entity())
}

// Lookup returns the screen for entity.
func (c *Catalogue) Lookup(entity string) (Screen, error) {
	s, ok := c.screens[entity]
	if !ok {
		return nil, fmt.Errorf("screen %q: %w", entity, httpx.ErrNotFound)
	}
	return s, nil
}

// Screens returns the screens in registration order.
func (c *Catalogue) Screens() []Screen {
	out := make([]Screen, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.screens[name])
	}
	return out
}

// Entities returns the entity names in registration order.
func (c *Catalogue) Entities() []string {
	return append([]string(nil), c.order...)
}

func textField[T any](key, label string, get func(T) string) field[T] {
	return field[T]{
		key:   key,
		label: label,
		sort:  func(r T) any { return get(r) },
		text:  func(r T, _ *formatter) string { return get(r) },
	}
}

func dateField[T any](key, label string, get func(T) Date) field[T] {
	return field[T]{
		key:   key,
		label: label,
		sort:  func(r T) any { return get(r).Time },
		text:  func(r T, f *formatter) string { return f.date(get(r)) },
	}
}

func qtyField[T any](key, label string, get func(T) decimal.Decimal, unit func(T) string) field[T] {
	return field[T]{
		key:   key,
		label: label,
		sort:  func(r T) any { return get(r) },
		text: func(r T, f *formatter) string {
			u := ""
			if unit != nil {
				u = unit(r)
			}
			return f.qty(get(r), u)
		},
	}
}

func moneyField[T any](key, label string, get func(T) decimal.Decimal) field[T] {
	return field[T]{
		key:   key,
		label: label,
		sort:  func(r T) any { return get(r) },
		text:  func(r T, f *formatter) string { return f.money(get(r)) },
	}
}

func dimension[T any](name, label string, get func(T) string) listview.Dimension[T] {
	return listview.Dimension[T]{Name: name, Label: label, Value: get}
}

func joinSearch(parts ...string) string {
	return strings.Join(parts, " ")
}

func materialsScreen() Screen {
	return &definition[Material]{
		entity: EntityMaterials,
		title:  "Materials",
		path:   "/materials",
		fields: []field[Material]{
			textField("code", "Code", func(m Material) string { return m.Code }),
			textField("name", "Name", func(m Material) string { return m.Name }),
			textField("category", "Category", func(m Material) string { return m.Category }),
			textField("supplier", "Supplier", func(m Material) string { return m.Supplier }),
			textField("laboratory", "Laboratory", func(m Material) string { return m.Laboratory }),
			qtyField("quantity", "Quantity", func(m Material) decimal.Decimal { return m.Quantity }, func(m Material) string { return m.Unit }),
			dateField("expires_at", "Expires", func(m Material) Date { return m.ExpiresAt }),
		},
		dims: []listview.Dimension[Material]{
			dimension("category", "Category", func(m Material) string { return m.Category }),
			dimension("supplier", "Supplier", func(m Material) string { return m.Supplier }),
			dimension("laboratory", "Laboratory", func(m Material) string { return m.Laboratory }),
		},
		search: func(m Material) string { return joinSearch(m.Code, m.Name, m.Location) },
		id:     func(m Material) int64 { return m.ID },
		detail: func(m Material, f *formatter) []detailRow {
			return []detailRow{
				{label: "Minimum stock", value: f.qty(m.MinStock, m.Unit)},
				{label: "Location", value: m.Location},
			}
		},
	}
}

func borrowsScreen() Screen {
	return &definition[Borrow]{
		entity: EntityBorrows,
		title:  "Borrow Forms",
		path:   "/borrows",
		fields: []field[Borrow]{
			textField("code", "Code", func(b Borrow) string { return b.Code }),
			textField("borrower", "Borrower", func(b Borrow) string { return b.Borrower }),
			textField("item", "Item", func(b Borrow) string { return b.Item }),
			qtyField("quantity", "Qty", func(b Borrow) decimal.Decimal { return b.Quantity }, nil),
			textField("laboratory", "Laboratory", func(b Borrow) string { return b.Laboratory }),
			textField("status", "Status", func(b Borrow) string { return b.Status }),
			dateField("borrowed_at", "Borrowed", func(b Borrow) Date { return b.BorrowedAt }),
			dateField("due_at", "Due", func(b Borrow) Date { return b.DueAt }),
		},
		dims: []listview.Dimension[Borrow]{
			dimension("status", "Status", func(b Borrow) string { return b.Status }),
			dimension("laboratory", "Laboratory", func(b Borrow) string { return b.Laboratory }),
		},
		search: func(b Borrow) string { return joinSearch(b.Code, b.Borrower, b.Item) },
		id:     func(b Borrow) int64 { return b.ID },
		detail: func(b Borrow, f *formatter) []detailRow {
			return []detailRow{{label: "Returned", value: f.date(b.ReturnedAt)}}
		},
	}
}

func calibrationsScreen() Screen {
	return &definition[Calibration]{
		entity: EntityCalibrations,
		title:  "Calibrations",
		path:   "/calibrations",
		fields: []field[Calibration]{
			textField("equipment", "Equipment", func(c Calibration) string { return c.Equipment }),
			textField("serial_number", "Serial No.", func(c Calibration) string { return c.SerialNumber }),
			textField("laboratory", "Laboratory", func(c Calibration) string { return c.Laboratory }),
			textField("vendor", "Vendor", func(c Calibration) string { return c.Vendor }),
			textField("status", "Status", func(c Calibration) string { return c.Status }),
			dateField("calibrated_at", "Calibrated", func(c Calibration) Date { return c.CalibratedAt }),
			dateField("next_due_at", "Next Due", func(c Calibration) Date { return c.NextDueAt }),
		},
		dims: []listview.Dimension[Calibration]{
			dimension("status", "Status", func(c Calibration) string { return c.Status }),
			dimension("laboratory", "Laboratory", func(c Calibration) string { return c.Laboratory }),
		},
		search: func(c Calibration) string { return joinSearch(c.Equipment, c.SerialNumber, c.Vendor) },
		id:     func(c Calibration) int64 { return c.ID },
	}
}

func dispositionsScreen() Screen {
	return &definition[Disposition]{
		entity: EntityDispositions,
		title:  "Dispositions",
		path:   "/dispositions",
		fields: []field[Disposition]{
			textField("item", "Item", func(d Disposition) string { return d.Item }),
			qtyField("quantity", "Qty", func(d Disposition) decimal.Decimal { return d.Quantity }, nil),
			textField("method", "Method", func(d Disposition) string { return d.Method }),
			textField("laboratory", "Laboratory", func(d Disposition) string { return d.Laboratory }),
			textField("reason", "Reason", func(d Disposition) string { return d.Reason }),
			dateField("disposed_at", "Disposed", func(d Disposition) Date { return d.DisposedAt }),
		},
		dims: []listview.Dimension[Disposition]{
			dimension("method", "Method", func(d Disposition) string { return d.Method }),
			dimension("laboratory", "Laboratory", func(d Disposition) string { return d.Laboratory }),
		},
		search: func(d Disposition) string { return joinSearch(d.Item, d.Reason, d.ApprovedBy) },
		id:     func(d Disposition) int64 { return d.ID },
		detail: func(d Disposition, _ *formatter) []detailRow {
			return []detailRow{{label: "Approved by", value: d.ApprovedBy}}
		},
	}
}

func incidentsScreen() Screen {
	return &definition[Incident]{
		entity: EntityIncidents,
		title:  "Incident Reports",
		path:   "/incidents",
		fields: []field[Incident]{
			textField("title", "Title", func(i Incident) string { return i.Title }),
			textField("severity", "Severity", func(i Incident) string { return i.Severity }),
			textField("laboratory", "Laboratory", func(i Incident) string { return i.Laboratory }),
			textField("reported_by", "Reported By", func(i Incident) string { return i.ReportedBy }),
			dateField("occurred_at", "Occurred", func(i Incident) Date { return i.OccurredAt }),
			{
				key:   "resolved",
				label: "Resolved",
				text:  func(i Incident, f *formatter) string { return f.yesNo(i.Resolved) },
			},
		},
		dims: []listview.Dimension[Incident]{
			dimension("severity", "Severity", func(i Incident) string { return i.Severity }),
			dimension("laboratory", "Laboratory", func(i Incident) string { return i.Laboratory }),
		},
		search: func(i Incident) string { return joinSearch(i.Title, i.ReportedBy, i.Description) },
		id:     func(i Incident) int64 { return i.ID },
		detail: func(i Incident, _ *formatter) []detailRow {
			return []detailRow{{label: "Description", value: i.Description}}
		},
	}
}

func purchaseOrdersScreen() Screen {
	return &definition[PurchaseOrder]{
		entity: EntityPurchaseOrders,
		title:  "Purchase Orders",
		path:   "/purchase-orders",
		fields: []field[PurchaseOrder]{
			textField("number", "PO Number", func(p PurchaseOrder) string { return p.Number }),
			textField("supplier", "Supplier", func(p PurchaseOrder) string { return p.Supplier }),
			textField("status", "Status", func(p PurchaseOrder) string { return p.Status }),
			dateField("ordered_at", "Ordered", func(p PurchaseOrder) Date { return p.OrderedAt }),
			moneyField("grand_total", "Total", func(p PurchaseOrder) decimal.Decimal { return p.Totals().Grand }),
		},
		dims: []listview.Dimension[PurchaseOrder]{
			dimension("supplier", "Supplier", func(p PurchaseOrder) string { return p.Supplier }),
			dimension("status", "Status", func(p PurchaseOrder) string { return p.Status }),
		},
		search: func(p PurchaseOrder) string { return joinSearch(p.Number, p.Supplier, p.Notes) },
		id:     func(p PurchaseOrder) int64 { return p.ID },
		detail: func(p PurchaseOrder, f *formatter) []detailRow {
			rows := make([]detailRow, 0, len(p.Items)+4)
			for _, item := range p.Items {
				rows = append(rows, detailRow{
					label: item.Name,
					value: f.qty(item.Quantity, "") + " x " + f.money(item.UnitPrice) + " = " + f.money(item.Amount()),
				})
			}
			t := p.Totals()
			rows = append(rows,
				detailRow{label: "Subtotal", value: f.money(t.Subtotal)},
				detailRow{label: "Tax", value: f.money(t.Tax)},
				detailRow{label: "Shipping", value: f.money(t.Shipping)},
				detailRow{label: "Notes", value: p.Notes},
			)
			return rows
		},
	}
}

func dispensesScreen() Screen {
	return &definition[Dispense]{
		entity: EntityDispenses,
		title:  "Dispensing Log",
		path:   "/dispenses",
		fields: []field[Dispense]{
			textField("item", "Item", func(d Dispense) string { return d.Item }),
			textField("category", "Category", func(d Dispense) string { return d.Category }),
			textField("laboratory", "Laboratory", func(d Dispense) string { return d.Laboratory }),
			qtyField("quantity", "Qty", func(d Dispense) decimal.Decimal { return d.Quantity }, func(d Dispense) string { return d.Unit }),
			textField("recipient", "Recipient", func(d Dispense) string { return d.Recipient }),
			dateField("dispensed_at", "Dispensed", func(d Dispense) Date { return d.DispensedAt }),
		},
		dims: []listview.Dimension[Dispense]{
			dimension("category", "Category", func(d Dispense) string { return d.Category }),
			dimension("laboratory", "Laboratory", func(d Dispense) string { return d.Laboratory }),
		},
		search: func(d Dispense) string { return joinSearch(d.Item, d.Recipient) },
		id:     func(d Dispense) int64 { return d.ID },
	}
}
