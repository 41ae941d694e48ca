// Package lab wires the lab inventory screens: it loads collections from the
// backend, keeps per-session list state, and prints or exports the result.
package lab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/labstock/labstock/internal/backend"
	"github.com/labstock/labstock/internal/listview"
	"github.com/labstock/labstock/internal/platform/cache"
	"github.com/labstock/labstock/internal/platform/httpx"
	"github.com/labstock/labstock/internal/reportlog"
	"github.com/labstock/labstock/report"
)

// Backend is the subset of the REST client used by the service.
type Backend interface {
	ListRaw(ctx context.Context, path string) ([]byte, error)
	Create(ctx context.Context, path string, body any, files ...backend.File) error
	Update(ctx context.Context, path string, body any, files ...backend.File) error
}

// ReportLog records generated reports.
type ReportLog interface {
	Record(ctx context.Context, entry reportlog.Entry) (reportlog.Entry, error)
	Recent(ctx context.Context, limit int) ([]reportlog.Entry, error)
}

// Metrics receives service level counters.
type Metrics interface {
	CollectionRefetched(entity string, err error)
	ReportGenerated(entity, format string)
}

// PrintOptions are the user choices of a print dialog.
type PrintOptions struct {
	Title       string
	PaperSize   string
	Orientation string
}

// Options configures optional collaborators of the Service.
type Options struct {
	Language language.Tag
	StateTTL time.Duration
	Logs     ReportLog
	Metrics  Metrics
	Logger   *slog.Logger
}

// Service coordinates screens, backend, cache and reports.
type Service struct {
	catalogue *Catalogue
	backend   Backend
	cache     *cache.Store
	renderer  *report.Renderer
	logs      ReportLog
	metrics   Metrics
	validate  *validator.Validate
	logger    *slog.Logger
	lang      language.Tag
	stateTTL  time.Duration

	mu       sync.Mutex
	memState map[string]listview.State
}

// NewService constructs the service. store may be nil, in which case
// collections are fetched on every request and list state is kept in memory.
func NewService(catalogue *Catalogue, api Backend, store *cache.Store, renderer *report.Renderer, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Language == language.Und {
		opts.Language = language.English
	}
	if opts.StateTTL <= 0 {
		opts.StateTTL = 12 * time.Hour
	}
	return &Service{
		catalogue: catalogue,
		backend:   api,
		cache:     store,
		renderer:  renderer,
		logs:      opts.Logs,
		metrics:   opts.Metrics,
		validate:  NewValidator(),
		logger:    opts.Logger,
		lang:      opts.Language,
		stateTTL:  opts.StateTTL,
		memState:  make(map[string]listview.State),
	}
}

// Catalogue exposes the registered screens.
func (s *Service) Catalogue() *Catalogue {
	return s.catalogue
}

func collectionKey(entity string) string {
	return "lab:collection:" + entity
}

func stateKey(sessionID, entity string) string {
	return "lab:state:" + sessionID + ":" + entity
}

// Screen returns the current page of entity for the session.
func (s *Service) Screen(ctx context.Context, sessionID, entity string) (ScreenView, error) {
	_, view, err := s.open(ctx, sessionID, entity)
	if err != nil {
		return ScreenView{}, err
	}
	return view.Snapshot(), nil
}

// Search sets the search query and returns to page one.
func (s *Service) Search(ctx context.Context, sessionID, entity, query string) (ScreenView, error) {
	return s.mutate(ctx, sessionID, entity, func(v View) error {
		v.SetSearchQuery(query)
		return nil
	})
}

// ToggleFilter flips one filter checkbox. Unknown dimensions leave the state
// unchanged.
func (s *Service) ToggleFilter(ctx context.Context, sessionID, entity, dimension, value string) (ScreenView, error) {
	return s.mutate(ctx, sessionID, entity, func(v View) error {
		v.ToggleFilterValue(dimension, value)
		return nil
	})
}

// ClearFilters empties every filter dimension.
func (s *Service) ClearFilters(ctx context.Context, sessionID, entity string) (ScreenView, error) {
	return s.mutate(ctx, sessionID, entity, func(v View) error {
		v.ClearFilters()
		return nil
	})
}

// Sort applies a column header click.
func (s *Service) Sort(ctx context.Context, sessionID, entity, column string) (ScreenView, error) {
	return s.mutate(ctx, sessionID, entity, func(v View) error {
		if !v.SetSort(column) {
			return fmt.Errorf("%w: unknown sort column %q", httpx.ErrValidation, column)
		}
		return nil
	})
}

// Page moves to page n, clamped to the available pages.
func (s *Service) Page(ctx context.Context, sessionID, entity string, n int) (ScreenView, error) {
	return s.mutate(ctx, sessionID, entity, func(v View) error {
		v.SetPage(n)
		return nil
	})
}

// InvalidateAndRefetch drops the cached collection of entity and loads it
// again from the backend.
func (s *Service) InvalidateAndRefetch(ctx context.Context, entity string) error {
	screen, err := s.catalogue.Lookup(entity)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, collectionKey(entity)); err != nil {
		return fmt.Errorf("lab: invalidate %s: %w", entity, err)
	}
	_, err = s.collection(ctx, screen)
	if s.metrics != nil {
		s.metrics.CollectionRefetched(entity, err)
	}
	if err != nil {
		return fmt.Errorf("lab: refetch %s: %w", entity, err)
	}
	s.logger.Debug("collection refetched", slog.String("entity", entity))
	return nil
}

// Save creates (empty id) or updates a record, then refetches the
// collection. Purchase orders are validated as PurchaseOrderForm.
func (s *Service) Save(ctx context.Context, entity, id string, payload json.RawMessage, files []backend.File) error {
	screen, err := s.catalogue.Lookup(entity)
	if err != nil {
		return err
	}
	if entity == EntityPurchaseOrders {
		var form PurchaseOrderForm
		if err := json.Unmarshal(payload, &form); err != nil {
			return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		return s.SavePurchaseOrder(ctx, id, form, files)
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return fmt.Errorf("%w: record must be a JSON object", httpx.ErrValidation)
	}
	return s.send(ctx, screen, id, json.RawMessage(trimmed), files)
}

// SavePurchaseOrder validates the form and stores the order with its
// computed totals.
func (s *Service) SavePurchaseOrder(ctx context.Context, id string, form PurchaseOrderForm, files []backend.File) error {
	screen, err := s.catalogue.Lookup(EntityPurchaseOrders)
	if err != nil {
		return err
	}
	if err := validateStruct(s.validate, form); err != nil {
		return err
	}
	var numericID int64
	if id != "" {
		numericID, err = strconv.ParseInt(id, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: invalid id %q", httpx.ErrValidation, id)
		}
	}
	body := struct {
		PurchaseOrder
		Totals Totals `json:"totals"`
	}{PurchaseOrder: form.Payload(numericID), Totals: form.Totals()}
	return s.send(ctx, screen, id, body, files)
}

func (s *Service) send(ctx context.Context, screen Screen, id string, body any, files []backend.File) error {
	var err error
	if id == "" {
		err = s.backend.Create(ctx, screen.Path(), body, files...)
	} else {
		err = s.backend.Update(ctx, screen.Path()+"/"+id, body, files...)
	}
	if err != nil {
		return err
	}
	if err := s.InvalidateAndRefetch(ctx, screen.Entity()); err != nil {
		s.logger.Warn("refetch after save failed", slog.String("entity", screen.Entity()), slog.Any("error", err))
	}
	return nil
}

// PrintAll renders every filtered record of the session's list, in sort
// order and without pagination.
func (s *Service) PrintAll(ctx context.Context, sessionID, entity string, opts PrintOptions, w io.Writer) (report.Result, error) {
	screen, view, err := s.open(ctx, sessionID, entity)
	if err != nil {
		return report.Result{}, err
	}
	ds, err := view.Dataset()
	if err != nil {
		return report.Result{}, err
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = screen.Title()
	}
	return s.render(ctx, sessionID, entity, "", title, opts, ds, w)
}

// PrintRecord renders the detail of one record.
func (s *Service) PrintRecord(ctx context.Context, sessionID, entity, id string, opts PrintOptions, w io.Writer) (report.Result, error) {
	_, view, err := s.open(ctx, "", entity)
	if err != nil {
		return report.Result{}, err
	}
	ds, title, err := view.RecordDataset(id)
	if err != nil {
		return report.Result{}, err
	}
	if t := strings.TrimSpace(opts.Title); t != "" {
		title = t
	}
	return s.render(ctx, sessionID, entity, id, title, opts, ds, w)
}

func (s *Service) render(ctx context.Context, sessionID, entity, recordID, title string, opts PrintOptions, ds *report.Dataset, w io.Writer) (report.Result, error) {
	return s.renderer.Render(ctx, report.Request{
		Title:       title,
		PaperSize:   opts.PaperSize,
		Orientation: opts.Orientation,
		Dataset:     ds,
		OnComplete: func(res report.Result) {
			s.record(ctx, reportlog.Entry{
				Entity:      entity,
				RecordID:    recordID,
				Title:       title,
				Format:      string(report.FormatPDF),
				PaperSize:   opts.PaperSize,
				Orientation: opts.Orientation,
				Engine:      res.Engine,
				Rows:        res.Rows,
				Pages:       res.Pages,
				Bytes:       res.Bytes,
				SessionID:   sessionID,
			})
		},
	}, w)
}

// Export writes the filtered list as CSV or XLSX. PDF is delegated to
// PrintAll with the default paper. It returns the download filename.
func (s *Service) Export(ctx context.Context, sessionID, entity string, format report.Format, w io.Writer) (string, error) {
	if format == report.FormatPDF {
		res, err := s.PrintAll(ctx, sessionID, entity, PrintOptions{}, w)
		return res.Filename, err
	}
	screen, view, err := s.open(ctx, sessionID, entity)
	if err != nil {
		return "", err
	}
	ds, err := view.Dataset()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	switch format {
	case report.FormatCSV:
		err = report.WriteCSV(&buf, ds)
	case report.FormatXLSX:
		err = report.WriteXLSX(&buf, screen.Title(), ds)
	default:
		err = fmt.Errorf("%w: unsupported format %q", httpx.ErrValidation, format)
	}
	if err != nil {
		return "", err
	}
	n, err := w.Write(buf.Bytes())
	if err != nil {
		return "", err
	}
	s.record(ctx, reportlog.Entry{
		Entity:    entity,
		Title:     screen.Title(),
		Format:    string(format),
		Engine:    string(format),
		Rows:      ds.Len(),
		Bytes:     n,
		SessionID: sessionID,
	})
	return format.FilenameFor(screen.Title()), nil
}

// RecentReports lists the latest generated reports.
func (s *Service) RecentReports(ctx context.Context, limit int) ([]reportlog.Entry, error) {
	if s.logs == nil {
		return []reportlog.Entry{}, nil
	}
	return s.logs.Recent(ctx, limit)
}

func (s *Service) record(ctx context.Context, entry reportlog.Entry) {
	if s.metrics != nil {
		s.metrics.ReportGenerated(entry.Entity, entry.Format)
	}
	if s.logs == nil {
		return
	}
	if _, err := s.logs.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("record report log", slog.String("entity", entry.Entity), slog.Any("error", err))
	}
}

func (s *Service) collection(ctx context.Context, screen Screen) ([]byte, error) {
	return s.cache.FetchBytes(ctx, collectionKey(screen.Entity()), func(ctx context.Context) ([]byte, error) {
		return s.backend.ListRaw(ctx, screen.Path())
	})
}

func (s *Service) open(ctx context.Context, sessionID, entity string) (Screen, View, error) {
	screen, err := s.catalogue.Lookup(entity)
	if err != nil {
		return nil, nil, err
	}
	raw, err := s.collection(ctx, screen)
	if err != nil {
		return nil, nil, err
	}
	view, err := screen.Open(raw, s.lang)
	if err != nil {
		return nil, nil, err
	}
	if sessionID != "" {
		state, ok, err := s.loadState(ctx, sessionID, entity)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			view.Restore(state)
		}
	}
	return screen, view, nil
}

func (s *Service) mutate(ctx context.Context, sessionID, entity string, fn func(View) error) (ScreenView, error) {
	_, view, err := s.open(ctx, sessionID, entity)
	if err != nil {
		return ScreenView{}, err
	}
	if err := fn(view); err != nil {
		return ScreenView{}, err
	}
	if sessionID != "" {
		if err := s.saveState(ctx, sessionID, entity, view.State()); err != nil {
			return ScreenView{}, err
		}
	}
	return view.Snapshot(), nil
}

func (s *Service) loadState(ctx context.Context, sessionID, entity string) (listview.State, bool, error) {
	key := stateKey(sessionID, entity)
	if !s.cache.Enabled() {
		s.mu.Lock()
		defer s.mu.Unlock()
		state, ok := s.memState[key]
		return state.Clone(), ok, nil
	}
	var state listview.State
	err := s.cache.GetJSON(ctx, key, &state)
	if errors.Is(err, cache.ErrMiss) {
		return listview.State{}, false, nil
	}
	if err != nil {
		return listview.State{}, false, fmt.Errorf("lab: load state: %w", err)
	}
	return state, true, nil
}

func (s *Service) saveState(ctx context.Context, sessionID, entity string, state listview.State) error {
	key := stateKey(sessionID, entity)
	if !s.cache.Enabled() {
		s.mu.Lock()
		s.memState[key] = state.Clone()
		s.mu.Unlock()
		return nil
	}
	if err := s.cache.SetJSON(ctx, key, state, s.stateTTL); err != nil {
		return fmt.Errorf("lab: save state: %w", err)
	}
	return nil
}
