package report

// Letterhead is the fixed institutional header printed above every report.
type Letterhead struct {
	Organization  string
	Address       string
	Department    string
	Contact       string
	Accreditation [3]string
}

// FontStyle mirrors the fpdf style strings.
type FontStyle string

const (
	StyleRegular FontStyle = ""
	StyleBold    FontStyle = "B"
	StyleItalic  FontStyle = "I"
)

// LetterheadLine is one centred line of the letterhead.
type LetterheadLine struct {
	Text  string
	Style FontStyle
	Size  float64
}

// Lines returns the seven letterhead lines in print order.
func (l Letterhead) Lines() []LetterheadLine {
	lines := []LetterheadLine{
		{Text: l.Organization, Style: StyleBold, Size: 12},
		{Text: l.Address, Style: StyleRegular, Size: 9},
		{Text: l.Department, Style: StyleBold, Size: 10},
		{Text: l.Contact, Style: StyleRegular, Size: 9},
	}
	for _, a := range l.Accreditation {
		lines = append(lines, LetterheadLine{Text: a, Style: StyleItalic, Size: 8})
	}
	return lines
}

// DefaultLetterhead is used when no letterhead is configured.
func DefaultLetterhead() Letterhead {
	return Letterhead{
		Organization: "Laboratory Services Office",
		Address:      "Main Campus, Science Complex",
		Department:   "Laboratory Inventory and Logistics",
		Contact:      "labs@example.org",
		Accreditation: [3]string{
			"Quality Management System",
			"Laboratory Safety Programme",
			"Inventory Control Procedure",
		},
	}
}
