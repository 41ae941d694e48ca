package report

import (
	"fmt"
	"strings"
)

// PaperSize identifies one of the supported paper stocks.
type PaperSize string

const (
	// PaperA4 is ISO A4, 210 x 297 mm.
	PaperA4 PaperSize = "a4"
	// PaperShort is US letter, 215.9 x 279.4 mm.
	PaperShort PaperSize = "short"
	// PaperLong is US legal, 215.9 x 355.6 mm.
	PaperLong PaperSize = "long"
)

// Orientation of the printed page.
type Orientation string

const (
	// Portrait keeps the paper's short edge at the top.
	Portrait Orientation = "portrait"
	// Landscape swaps width and height.
	Landscape Orientation = "landscape"
)

// dimensions are portrait width and height in millimetres.
var dimensions = map[PaperSize][2]float64{
	PaperA4:    {210, 297},
	PaperShort: {215.9, 279.4},
	PaperLong:  {215.9, 355.6},
}

// Letterhead centre lines for landscape pages. Portrait pages centre on the
// physical half width.
const (
	landscapeCenterX     = 143.0
	landscapeLongCenterX = 175.0
)

// InvalidPageSizeError is returned for a paper size outside a4/short/long.
type InvalidPageSizeError struct {
	Size string
}

func (e *InvalidPageSizeError) Error() string {
	return fmt.Sprintf("report: invalid page size %q", e.Size)
}

// InvalidOrientationError is returned for an orientation outside
// portrait/landscape.
type InvalidOrientationError struct {
	Orientation string
}

func (e *InvalidOrientationError) Error() string {
	return fmt.Sprintf("report: invalid orientation %q", e.Orientation)
}

// Geometry is the resolved physical layout of a page.
type Geometry struct {
	Size        PaperSize
	Orientation Orientation
	// Width and Height are as printed, i.e. already swapped for landscape.
	Width   float64
	Height  float64
	CenterX float64
}

// ResolveGeometry maps a paper size and orientation onto page geometry.
// Unknown sizes are an error; they never fall back to A4.
func ResolveGeometry(size, orientation string) (Geometry, error) {
	ps := PaperSize(strings.ToLower(strings.TrimSpace(size)))
	dims, ok := dimensions[ps]
	if !ok {
		return Geometry{}, &InvalidPageSizeError{Size: size}
	}
	o := Orientation(strings.ToLower(strings.TrimSpace(orientation)))
	if o == "" {
		o = Portrait
	}
	g := Geometry{Size: ps, Orientation: o}
	switch o {
	case Portrait:
		g.Width, g.Height = dims[0], dims[1]
		g.CenterX = g.Width / 2
	case Landscape:
		g.Width, g.Height = dims[1], dims[0]
		g.CenterX = landscapeCenterX
		if ps == PaperLong {
			g.CenterX = landscapeLongCenterX
		}
	default:
		return Geometry{}, &InvalidOrientationError{Orientation: orientation}
	}
	return g, nil
}

// PortraitSize returns the unrotated width and height.
func (g Geometry) PortraitSize() (float64, float64) {
	if g.Orientation == Landscape {
		return g.Height, g.Width
	}
	return g.Width, g.Height
}
