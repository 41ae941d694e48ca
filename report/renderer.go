// Package report renders tabular lab data as printable documents.
//
// A Renderer validates the requested paper geometry, loads both letterhead
// logos, and hands a Document to an Engine (fpdf or Gotenberg). Nothing is
// written to the destination unless the whole document rendered.
package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
)

// ErrNoDataset is returned when a request carries no dataset.
var ErrNoDataset = errors.New("report: dataset required")

// Document is everything an engine needs to draw one report.
type Document struct {
	Title      string
	Geometry   Geometry
	Letterhead Letterhead
	Logos      [2]Logo
	Dataset    *Dataset
}

// Engine turns a Document into bytes.
type Engine interface {
	Name() string
	// Render writes the document and returns the page count, or 0 when the
	// engine cannot tell.
	Render(ctx context.Context, doc Document, w io.Writer) (int, error)
}

// Request describes one print action.
type Request struct {
	Title       string
	PaperSize   string
	Orientation string
	Dataset     *Dataset
	// OnComplete runs after the document has been written.
	OnComplete func(Result)
}

// Result summarises a finished render.
type Result struct {
	Filename string
	Engine   string
	Pages    int
	Bytes    int
	Rows     int
}

// Observer receives render outcomes, typically for metrics.
type Observer interface {
	ObserveReport(engine, outcome string, elapsed time.Duration)
}

// Renderer validates requests and drives an Engine.
type Renderer struct {
	engine     Engine
	logos      *LogoLoader
	letterhead Letterhead
	logger     *slog.Logger
	observer   Observer
}

// RendererOption customises a Renderer.
type RendererOption func(*Renderer)

// WithLogos sets the logo loader.
func WithLogos(l *LogoLoader) RendererOption {
	return func(r *Renderer) { r.logos = l }
}

// WithLetterhead overrides the default letterhead.
func WithLetterhead(l Letterhead) RendererOption {
	return func(r *Renderer) { r.letterhead = l }
}

// WithObserver registers a render observer.
func WithObserver(o Observer) RendererOption {
	return func(r *Renderer) { r.observer = o }
}

// NewRenderer constructs a Renderer around engine.
func NewRenderer(engine Engine, logger *slog.Logger, opts ...RendererOption) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{engine: engine, letterhead: DefaultLetterhead(), logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Filename is the download name for a report title.
func Filename(title string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "report"
	}
	name = strings.NewReplacer("/", "-", "\\", "-", "\"", "'").Replace(name)
	return name + ".pdf"
}

// Render produces the report into w. Invalid page sizes and orientations are
// logged and returned before anything is loaded or written.
func (r *Renderer) Render(ctx context.Context, req Request, w io.Writer) (Result, error) {
	start := time.Now()
	geometry, err := ResolveGeometry(req.PaperSize, req.Orientation)
	if err != nil {
		r.logger.Error("report geometry rejected", slog.String("title", req.Title), slog.String("page_size", req.PaperSize), slog.String("orientation", req.Orientation), slog.Any("error", err))
		r.observe("rejected", start)
		return Result{}, err
	}
	if req.Dataset == nil {
		r.observe("rejected", start)
		return Result{}, ErrNoDataset
	}

	logos, err := r.logos.Load(ctx)
	if err != nil {
		r.logger.Error("load report logos", slog.Any("error", err))
		r.observe("failed", start)
		return Result{}, err
	}

	doc := Document{
		Title:      req.Title,
		Geometry:   geometry,
		Letterhead: r.letterhead,
		Logos:      logos,
		Dataset:    req.Dataset,
	}
	var buf bytes.Buffer
	pages, err := r.engine.Render(ctx, doc, &buf)
	if err != nil {
		r.logger.Error("render report", slog.String("engine", r.engine.Name()), slog.Any("error", err))
		r.observe("failed", start)
		return Result{}, err
	}
	n, err := w.Write(buf.Bytes())
	if err != nil {
		r.observe("failed", start)
		return Result{}, err
	}

	res := Result{
		Filename: Filename(req.Title),
		Engine:   r.engine.Name(),
		Pages:    pages,
		Bytes:    n,
		Rows:     req.Dataset.Len(),
	}
	r.observe("success", start)
	r.logger.Info("report rendered",
		slog.String("filename", res.Filename),
		slog.String("engine", res.Engine),
		slog.Int("pages", res.Pages),
		slog.Int("rows", res.Rows),
	)
	if req.OnComplete != nil {
		req.OnComplete(res)
	}
	return res, nil
}

func (r *Renderer) observe(outcome string, start time.Time) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveReport(r.engine.Name(), outcome, time.Since(start))
}
