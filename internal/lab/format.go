package lab

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const displayDate = "02 Jan 2006"

// formatter renders cell text for screens and reports in one locale.
type formatter struct {
	p *message.Printer
}

func newFormatter(tag language.Tag) *formatter {
	return &formatter{p: message.NewPrinter(tag)}
}

func (f *formatter) date(d Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format(displayDate)
}

func (f *formatter) qty(d decimal.Decimal, unit string) string {
	s := f.p.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(3)))
	if unit == "" {
		return s
	}
	return s + " " + unit
}

func (f *formatter) money(d decimal.Decimal) string {
	return f.p.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

func (f *formatter) yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
