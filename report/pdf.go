package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin      = 10.0
	idColumnWidth   = 10.0
	logoBox         = 22.0
	logoTop         = 8.0
	logoOffset      = 72.0
	letterheadTop   = 13.0
	titleGap        = 7.0
	tableGap        = 5.0
	tableFontSize   = 8.0
	tableLineHeight = 3.8
	cellPadding     = 1.5
	borderWidth     = 0.2
	fontFamily      = "Helvetica"
	emptyTableText  = "No records found"
)

// FPDFEngine draws reports directly with go-pdf/fpdf.
type FPDFEngine struct {
	Creator string
}

// NewFPDFEngine constructs the default PDF engine.
func NewFPDFEngine() *FPDFEngine {
	return &FPDFEngine{Creator: "labstock"}
}

// Name identifies the engine in logs and metrics.
func (e *FPDFEngine) Name() string {
	return "fpdf"
}

// Render writes the document as PDF and returns the number of pages.
func (e *FPDFEngine) Render(ctx context.Context, doc Document, w io.Writer) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g := doc.Geometry
	pw, ph := g.PortraitSize()
	orientation := "P"
	if g.Orientation == Landscape {
		orientation = "L"
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pw, Ht: ph},
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	if e.Creator != "" {
		pdf.SetCreator(e.Creator, true)
	}
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	drawLogos(pdf, g, doc.Logos)
	y := drawLetterhead(pdf, g, doc.Letterhead, tr)

	pdf.SetFont(fontFamily, "B", 14)
	y += titleGap
	centerText(pdf, g.CenterX, y, tr(doc.Title))
	y += tableGap

	t := &tableWriter{pdf: pdf, geometry: g, tr: tr}
	t.draw(doc.Dataset, y)

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("report: pdf generation: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("report: pdf output: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return pdf.PageNo(), nil
}

func drawLogos(pdf *fpdf.Fpdf, g Geometry, logos [2]Logo) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for i, logo := range logos {
		if logo.Empty() {
			continue
		}
		name := fmt.Sprintf("logo-%d", i)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(logo.PNG))
		w, h := fitBox(logo.Width, logo.Height, logoBox)
		x := g.CenterX + logoOffset
		if i == 0 {
			x = g.CenterX - logoOffset - w
		}
		pdf.ImageOptions(name, x, logoTop, w, h, false, opts, 0, "")
	}
}

// fitBox scales pixel dimensions into a square box of side mm.
func fitBox(pxW, pxH int, side float64) (float64, float64) {
	if pxW <= 0 || pxH <= 0 {
		return side, side
	}
	if pxW >= pxH {
		return side, side * float64(pxH) / float64(pxW)
	}
	return side * float64(pxW) / float64(pxH), side
}

func drawLetterhead(pdf *fpdf.Fpdf, g Geometry, lh Letterhead, tr func(string) string) float64 {
	y := letterheadTop
	for i, line := range lh.Lines() {
		if i > 0 {
			y += line.Size*0.35 + 1
		}
		pdf.SetFont(fontFamily, string(line.Style), line.Size)
		centerText(pdf, g.CenterX, y, tr(line.Text))
	}
	return y
}

func centerText(pdf *fpdf.Fpdf, cx, y float64, text string) {
	if text == "" {
		return
	}
	pdf.Text(cx-pdf.GetStringWidth(text)/2, y, text)
}

type tableWriter struct {
	pdf      *fpdf.Fpdf
	geometry Geometry
	tr       func(string) string
	widths   []float64
	// bodyTop is where rows start on a continuation page, below the header.
	bodyTop float64
}

func (t *tableWriter) draw(ds *Dataset, y float64) {
	if ds == nil {
		return
	}
	t.widths = columnWidths(ds.Columns(), t.geometry.Width-2*pageMargin)
	t.pdf.SetLineWidth(borderWidth)
	t.pdf.SetDrawColor(0, 0, 0)
	t.pdf.SetFillColor(255, 255, 255)
	t.pdf.SetTextColor(0, 0, 0)

	top := y
	y = t.row(ds.Headers(), y, true)
	t.bodyTop = pageMargin + (y - top)
	if ds.Len() == 0 {
		total := 0.0
		for _, w := range t.widths {
			total += w
		}
		t.pdf.SetFont(fontFamily, "", tableFontSize)
		h := tableLineHeight + 2*cellPadding
		t.pdf.Rect(pageMargin, y, total, h, "FD")
		centerText(t.pdf, pageMargin+total/2, y+cellPadding+tableLineHeight-0.9, emptyTableText)
		return
	}
	for _, row := range ds.Rows() {
		y = t.body(ds.Headers(), t.wrapCells(row, false), y)
	}
}

// body draws one wrapped row starting at y. A row that fits on a fresh page
// moves there whole; a taller row is split line by line across pages.
func (t *tableWriter) body(headers []string, wrapped [][]string, y float64) float64 {
	lines := maxLines(wrapped)
	for from := 0; from < lines; {
		remaining := lines - from
		fit := t.linesFit(y)
		if fit < remaining && y > t.bodyTop && (fit < 1 || remaining <= t.linesFit(t.bodyTop)) {
			y = t.newPage(headers)
			continue
		}
		n := min(max(fit, 1), remaining)
		t.setFont(false)
		y = t.drawLines(wrapped, from, from+n, y)
		from += n
		if from < lines {
			y = t.newPage(headers)
		}
	}
	return y
}

func (t *tableWriter) newPage(headers []string) float64 {
	t.pdf.AddPage()
	return t.row(headers, pageMargin, true)
}

// linesFit is the number of text lines a cell starting at y can hold above
// the bottom margin.
func (t *tableWriter) linesFit(y float64) int {
	avail := t.geometry.Height - pageMargin - y - 2*cellPadding
	if avail <= 0 {
		return 0
	}
	return int(math.Floor(avail/tableLineHeight + 1e-9))
}

func (t *tableWriter) setFont(header bool) {
	style := ""
	if header {
		style = "B"
	}
	t.pdf.SetFont(fontFamily, style, tableFontSize)
}

func (t *tableWriter) wrapCells(cells []string, header bool) [][]string {
	t.setFont(header)
	out := make([][]string, len(cells))
	for i, cell := range cells {
		out[i] = wrapText(t.tr(cell), t.widths[i]-2*cellPadding, t.pdf.GetStringWidth)
	}
	return out
}

func maxLines(wrapped [][]string) int {
	lines := 1
	for _, w := range wrapped {
		if len(w) > lines {
			lines = len(w)
		}
	}
	return lines
}

func (t *tableWriter) row(cells []string, y float64, header bool) float64 {
	wrapped := t.wrapCells(cells, header)
	return t.drawLines(wrapped, 0, maxLines(wrapped), y)
}

// drawLines draws lines [from, to) of every cell as one bordered band.
func (t *tableWriter) drawLines(wrapped [][]string, from, to int, y float64) float64 {
	h := float64(to-from)*tableLineHeight + 2*cellPadding
	x := pageMargin
	for i, cellLines := range wrapped {
		t.pdf.Rect(x, y, t.widths[i], h, "FD")
		for j := from; j < to && j < len(cellLines); j++ {
			t.pdf.Text(x+cellPadding, y+cellPadding+float64(j-from+1)*tableLineHeight-0.9, cellLines[j])
		}
		x += t.widths[i]
	}
	return y + h
}

// columnWidths pins the first column to idColumnWidth and splits the rest of
// the content width evenly.
func columnWidths(n int, content float64) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{content}
	}
	widths := make([]float64, n)
	widths[0] = idColumnWidth
	rest := (content - idColumnWidth) / float64(n-1)
	for i := 1; i < n; i++ {
		widths[i] = rest
	}
	return widths
}
