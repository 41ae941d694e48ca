package lab

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/labstock/labstock/internal/platform/httpx"
)

// PurchaseOrderForm is the editable state of a purchase order. Tax and
// shipping are ordinary fields of the form.
type PurchaseOrderForm struct {
	Number    string              `json:"number" validate:"required,max=64"`
	Supplier  string              `json:"supplier" validate:"required,max=200"`
	Status    string              `json:"status" validate:"required,oneof=draft submitted approved received cancelled"`
	OrderedAt Date                `json:"ordered_at"`
	Items     []PurchaseOrderItem `json:"items" validate:"required,min=1,dive"`
	Tax       decimal.Decimal     `json:"tax" validate:"gte=0"`
	Shipping  decimal.Decimal     `json:"shipping" validate:"gte=0"`
	Notes     string              `json:"notes" validate:"max=1000"`
}

// Totals are the computed amounts of a purchase order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Grand    decimal.Decimal `json:"grand_total"`
}

// Totals computes the order amounts from the form fields.
func (f PurchaseOrderForm) Totals() Totals {
	return computeTotals(f.Items, f.Tax, f.Shipping)
}

// Payload converts the form into the record sent to the backend.
func (f PurchaseOrderForm) Payload(id int64) PurchaseOrder {
	return PurchaseOrder{
		ID:        id,
		Number:    strings.TrimSpace(f.Number),
		Supplier:  strings.TrimSpace(f.Supplier),
		Status:    f.Status,
		OrderedAt: f.OrderedAt,
		Items:     f.Items,
		Tax:       f.Tax,
		Shipping:  f.Shipping,
		Notes:     f.Notes,
	}
}

func computeTotals(items []PurchaseOrderItem, tax, shipping decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount())
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Grand:    subtotal.Add(tax).Add(shipping),
	}
}

// ValidationError lists field failures. It matches httpx.ErrValidation.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match httpx.ErrValidation.
func (e *ValidationError) Unwrap() error {
	return httpx.ErrValidation
}

// NewValidator returns a validator that understands decimal fields.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct runs v and converts failures into a ValidationError.
func validateStruct(v *validator.Validate, form any) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("lab: validate: %w", err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		key := strings.TrimPrefix(fe.Namespace(), "PurchaseOrderForm.")
		out.Fields[key] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "needs at least " + fe.Param() + " entry"
	}
	return "is invalid"
}
