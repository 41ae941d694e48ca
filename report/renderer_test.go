package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	calls int
	doc   Document
	err   error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Render(ctx context.Context, doc Document, w io.Writer) (int, error) {
	f.calls++
	f.doc = doc
	if f.err != nil {
		_, _ = w.Write([]byte("partial"))
		return 0, f.err
	}
	_, err := w.Write([]byte("%PDF-fake"))
	return 1, err
}

type memorySource struct {
	files map[string][]byte
	opens atomic.Int32
	delay time.Duration
}

func (m *memorySource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.opens.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("missing asset %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) ObserveReport(engine, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, engine+":"+outcome)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRendererRejectsUnknownPaperSize(t *testing.T) {
	engine := &fakeEngine{}
	source := &memorySource{}
	observer := &recordingObserver{}
	r := NewRenderer(engine, discardLogger(),
		WithLogos(&LogoLoader{Source: source, Left: "left.png", Right: "right.png"}),
		WithObserver(observer),
	)
	completed := false
	out := &bytes.Buffer{}
	_, err := r.Render(context.Background(), Request{
		Title:      "Materials",
		PaperSize:  "letter",
		Dataset:    sampleDataset(t),
		OnComplete: func(Result) { completed = true },
	}, out)

	var sizeErr *InvalidPageSizeError
	require.True(t, errors.As(err, &sizeErr))
	require.Zero(t, out.Len(), "no document may be produced")
	require.False(t, completed)
	require.Zero(t, engine.calls)
	require.Zero(t, source.opens.Load())
	require.Equal(t, []string{"fake:rejected"}, observer.outcomes)
}

func TestRendererWritesNothingWhenEngineFails(t *testing.T) {
	engine := &fakeEngine{err: errors.New("boom")}
	r := NewRenderer(engine, discardLogger())
	out := &bytes.Buffer{}
	_, err := r.Render(context.Background(), Request{Title: "x", PaperSize: "a4", Dataset: sampleDataset(t)}, out)
	require.Error(t, err)
	require.Zero(t, out.Len())
}

func TestRendererLoadsBothLogosBeforeDrawing(t *testing.T) {
	engine := &fakeEngine{}
	source := &memorySource{
		files: map[string][]byte{
			"left.png":  pngBytes(t, 600, 300),
			"right.png": pngBytes(t, 40, 80),
		},
		delay: 20 * time.Millisecond,
	}
	r := NewRenderer(engine, discardLogger(), WithLogos(&LogoLoader{Source: source, Left: "left.png", Right: "right.png", MaxPixels: 200}))

	var result Result
	out := &bytes.Buffer{}
	res, err := r.Render(context.Background(), Request{
		Title:       "Borrow Forms",
		PaperSize:   "short",
		Orientation: "landscape",
		Dataset:     sampleDataset(t),
		OnComplete:  func(r Result) { result = r },
	}, out)
	require.NoError(t, err)
	require.Equal(t, res, result)
	require.Equal(t, "Borrow Forms.pdf", res.Filename)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, "%PDF-fake", out.String())

	require.Equal(t, int32(2), source.opens.Load())
	require.False(t, engine.doc.Logos[0].Empty())
	require.False(t, engine.doc.Logos[1].Empty())
	require.Equal(t, 200, engine.doc.Logos[0].Width)
	require.Equal(t, 100, engine.doc.Logos[0].Height)
	require.Equal(t, 40, engine.doc.Logos[1].Width)
	require.InDelta(t, 143.0, engine.doc.Geometry.CenterX, 0.001)
}

func TestRendererFailsWhenALogoIsMissing(t *testing.T) {
	engine := &fakeEngine{}
	source := &memorySource{files: map[string][]byte{"left.png": pngBytes(t, 10, 10)}}
	r := NewRenderer(engine, discardLogger(), WithLogos(&LogoLoader{Source: source, Left: "left.png", Right: "right.png"}))
	_, err := r.Render(context.Background(), Request{Title: "x", PaperSize: "a4", Dataset: sampleDataset(t)}, io.Discard)
	require.Error(t, err)
	require.Zero(t, engine.calls)
}

func TestRendererRequiresDataset(t *testing.T) {
	r := NewRenderer(&fakeEngine{}, discardLogger())
	_, err := r.Render(context.Background(), Request{Title: "x", PaperSize: "a4"}, io.Discard)
	require.ErrorIs(t, err, ErrNoDataset)
}

func TestFilename(t *testing.T) {
	require.Equal(t, "Incident Reports.pdf", Filename("Incident Reports"))
	require.Equal(t, "report.pdf", Filename("  "))
	require.Equal(t, "PO 12-2025.pdf", Filename("PO 12/2025"))
}

func TestFPDFEngineRendersPages(t *testing.T) {
	rows := make([][]string, 0, 120)
	for i := 1; i <= 120; i++ {
		rows = append(rows, []string{fmt.Sprint(i), fmt.Sprintf("Sodium chloride batch %d", i), "Merck KGaA, Darmstadt", "Chemistry Laboratory"})
	}
	ds, err := NewDataset([]string{"#", "Material", "Supplier", "Laboratory"}, rows)
	require.NoError(t, err)

	r := NewRenderer(NewFPDFEngine(), discardLogger(), WithLogos(&LogoLoader{
		Source: &memorySource{files: map[string][]byte{"l": pngBytes(t, 64, 64), "r": pngBytes(t, 64, 32)}},
		Left:   "l",
		Right:  "r",
	}))
	out := &bytes.Buffer{}
	res, err := r.Render(context.Background(), Request{Title: "Materials Inventory", PaperSize: "a4", Orientation: "portrait", Dataset: ds}, out)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out.String(), "%PDF-"))
	require.Greater(t, res.Pages, 1)
	require.Equal(t, out.Len(), res.Bytes)
}

func TestFPDFEngineContinuesTallRowsOnNewPages(t *testing.T) {
	render := func(words int) int {
		t.Helper()
		note := strings.TrimSpace(strings.Repeat("contaminated glassware returned ", words/3))
		ds, err := NewDataset([]string{"#", "Incident notes"}, [][]string{{"1", note}})
		require.NoError(t, err)
		res, err := NewRenderer(NewFPDFEngine(), discardLogger()).Render(context.Background(), Request{Title: "Incident 1", PaperSize: "a4", Orientation: "portrait", Dataset: ds}, &bytes.Buffer{})
		require.NoError(t, err)
		return res.Pages
	}
	short, medium, long := render(300), render(2000), render(4000)
	require.Equal(t, 1, short)
	require.Greater(t, medium, short)
	require.Greater(t, long, medium)

	// Every wrapped line must land on some page.
	measure := fpdf.New("P", "mm", "A4", "")
	measure.SetFont(fontFamily, "", tableFontSize)
	width := columnWidths(2, 210-2*pageMargin)[1] - 2*cellPadding
	note := strings.TrimSpace(strings.Repeat("contaminated glassware returned ", 4000/3))
	lines := len(wrapText(note, width, measure.GetStringWidth))
	usable := (297 - 2*pageMargin) / tableLineHeight
	perPage := int(usable)
	require.GreaterOrEqual(t, long, (lines+perPage-1)/perPage)
}

func TestFPDFEngineRendersEmptyDataset(t *testing.T) {
	ds, err := NewDataset([]string{"#", "Material"}, nil)
	require.NoError(t, err)
	for _, size := range []string{"a4", "short", "long"} {
		for _, o := range []string{"portrait", "landscape"} {
			out := &bytes.Buffer{}
			res, err := NewRenderer(NewFPDFEngine(), discardLogger()).Render(context.Background(), Request{Title: "Empty", PaperSize: size, Orientation: o, Dataset: ds}, out)
			require.NoError(t, err, size+"/"+o)
			require.Equal(t, 1, res.Pages)
		}
	}
}

func TestGotenbergEngineSendsPaperFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("unexpected parse error: %v", err)
		}
		if got := r.FormValue("paperWidth"); got != "8.50" {
			t.Errorf("paperWidth = %s", got)
		}
		if got := r.FormValue("paperHeight"); got != "14.00" {
			t.Errorf("paperHeight = %s", got)
		}
		if got := r.FormValue("landscape"); got != "true" {
			t.Errorf("landscape = %s", got)
		}
		file, _, err := r.FormFile("files")
		if err != nil {
			t.Errorf("missing html: %v", err)
		} else {
			html, _ := io.ReadAll(file)
			if !strings.Contains(string(html), "Agar") {
				t.Errorf("html missing rows")
			}
		}
		_, _ = w.Write([]byte("PDF"))
	}))
	defer srv.Close()

	r := NewRenderer(NewGotenbergEngine(NewClient(srv.URL)), discardLogger())
	out := &bytes.Buffer{}
	res, err := r.Render(context.Background(), Request{Title: "Dispenses", PaperSize: "long", Orientation: "landscape", Dataset: sampleDataset(t)}, out)
	require.NoError(t, err)
	require.Equal(t, "PDF", out.String())
	require.Equal(t, "gotenberg", res.Engine)
}

func TestBuildHTMLEmptyDataset(t *testing.T) {
	ds, err := NewDataset([]string{"#", "Material"}, nil)
	require.NoError(t, err)
	g, err := ResolveGeometry("a4", "portrait")
	require.NoError(t, err)
	html, err := buildHTML(Document{Title: "Empty <list>", Geometry: g, Letterhead: DefaultLetterhead(), Dataset: ds})
	require.NoError(t, err)
	require.Contains(t, html, emptyTableText)
	require.Contains(t, html, "Empty &lt;list&gt;")
}
