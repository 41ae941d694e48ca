package lab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/labstock/labstock/internal/backend"
	"github.com/labstock/labstock/internal/platform/httpx"
	"github.com/labstock/labstock/internal/shared"
	"github.com/labstock/labstock/internal/view"
	"github.com/labstock/labstock/report"
)

// LocalSessionID keys list state when the server runs without sessions.
const LocalSessionID = "local"

// AuthTokenSessionKey is the session value forwarded to the backend as a
// bearer token.
const AuthTokenSessionKey = "auth_token"

const maxUploadBytes = 32 << 20

// Handler wires HTTP endpoints for the lab screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs the lab handler. templates and csrf may be nil for
// JSON-only use.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers lab routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showIndex)
	r.Route("/{entity}", func(r chi.Router) {
		r.Get("/", h.showScreen)
		r.Get("/state", h.handleState)
		r.Post("/search", h.handleSearch)
		r.Post("/filters/toggle", h.handleToggleFilter)
		r.Post("/filters/clear", h.handleClearFilters)
		r.Post("/sort", h.handleSort)
		r.Post("/page", h.handlePage)
		r.Post("/refetch", h.handleRefetch)
		r.Post("/records", h.handleSave)
		r.Put("/records/{id}", h.handleSave)
		r.Get("/records/{id}/report", h.handlePrintRecord)
		r.Get("/report", h.handlePrintAll)
		r.Get("/export", h.handleExport)
	})
}

// MountReportRoutes registers the report log endpoints.
func (h *Handler) MountReportRoutes(r chi.Router) {
	r.Get("/recent", h.handleRecentReports)
}

type indexPageData struct {
	Screens []Screen
}

type screenPageData struct {
	Screen      ScreenView
	Screens     []Screen
	PaperSizes  []string
	EmptyLabel  string
	PrevPage    int
	NextPage    int
	Orientation []string
}

func (h *Handler) showIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/index.html", "Lab Inventory", indexPageData{Screens: h.service.Catalogue().Screens()})
}

func (h *Handler) showScreen(w http.ResponseWriter, r *http.Request) {
	ctx, sid := h.requestContext(r)
	sv, err := h.service.Screen(ctx, sid, chi.URLParam(r, "entity"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	data := screenPageData{
		Screen:      sv,
		Screens:     h.service.Catalogue().Screens(),
		PaperSizes:  []string{string(report.PaperA4), string(report.PaperShort), string(report.PaperLong)},
		Orientation: []string{string(report.Portrait), string(report.Landscape)},
		EmptyLabel:  "No records found",
		PrevPage:    sv.Pagination.Page - 1,
		NextPage:    sv.Pagination.Page + 1,
	}
	h.render(w, r, "pages/screen.html", sv.Title, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	if h.csrf != nil && sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	if err := h.templates.Render(w, name, viewData); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	ctx, sid := h.requestContext(r)
	sv, err := h.service.Screen(ctx, sid, chi.URLParam(r, "entity"))
	h.respondScreen(w, r, sv, err)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	ctx, sid := h.requestContext(r)
	sv, err := h.service.Search(ctx, sid, chi.URLParam(r, "entity"), in["query"])
	h.respondScreen(w, r, sv, err)
}

func (h *Handler) handleToggleFilter(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	ctx, sid := h.requestContext(r)
	sv, err := h.service.ToggleFilter(ctx, sid, chi.URLParam(r, "entity"), in["dimension"], in["value"])
	h.respondScreen(w, r, sv, err)
}

func (h *Handler) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	ctx, sid := h.requestContext(r)
	sv, err := h.service.ClearFilters(ctx, sid, chi.URLParam(r, "entity"))
	h.respondScreen(w, r, sv, err)
}

func (h *Handler) handleSort(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	ctx, sid := h.requestContext(r)
	sv, err := h.service.Sort(ctx, sid, chi.URLParam(r, "entity"), in["column"])
	h.respondScreen(w, r, sv, err)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	page, err := strconv.Atoi(strings.TrimSpace(in["page"]))
	if err != nil {
		h.respondError(w, fmt.Errorf("%w: page must be a number", httpx.ErrValidation))
		return
	}
	ctx, sid := h.requestContext(r)
	sv, err := h.service.Page(ctx, sid, chi.URLParam(r, "entity"), page)
	h.respondScreen(w, r, sv, err)
}

func (h *Handler) handleRefetch(w http.ResponseWriter, r *http.Request) {
	ctx, sid := h.requestContext(r)
	entity := chi.URLParam(r, "entity")
	if err := h.service.InvalidateAndRefetch(ctx, entity); err != nil {
		h.respondError(w, err)
		return
	}
	if sess := shared.SessionFromContext(ctx); sess != nil && !wantsJSON(r) {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Data refreshed"})
	}
	sv, err := h.service.Screen(ctx, sid, entity)
	h.respondScreen(w, r, sv, err)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx, _ := h.requestContext(r)
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")
	payload, files, err := readRecord(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.service.Save(ctx, entity, id, payload, files); err != nil {
		h.logger.Error("save record failed", slog.String("entity", entity), slog.String("id", id), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	status := http.StatusCreated
	if id != "" {
		status = http.StatusOK
	}
	httpx.JSON(w, status, map[string]bool{"ok": true})
}

func (h *Handler) handlePrintAll(w http.ResponseWriter, r *http.Request) {
	ctx, sid := h.requestContext(r)
	var buf bytes.Buffer
	res, err := h.service.PrintAll(ctx, sid, chi.URLParam(r, "entity"), printOptions(r), &buf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeDownload(w, report.FormatPDF.ContentType(), res.Filename, buf.Bytes())
}

func (h *Handler) handlePrintRecord(w http.ResponseWriter, r *http.Request) {
	ctx, sid := h.requestContext(r)
	var buf bytes.Buffer
	res, err := h.service.PrintRecord(ctx, sid, chi.URLParam(r, "entity"), chi.URLParam(r, "id"), printOptions(r), &buf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeDownload(w, report.FormatPDF.ContentType(), res.Filename, buf.Bytes())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.respondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	ctx, sid := h.requestContext(r)
	var buf bytes.Buffer
	filename, err := h.service.Export(ctx, sid, chi.URLParam(r, "entity"), format, &buf)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeDownload(w, format.ContentType(), filename, buf.Bytes())
}

func (h *Handler) handleRecentReports(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.RecentReports(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

// requestContext forwards the session's auth token and returns the session id.
func (h *Handler) requestContext(r *http.Request) (context.Context, string) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return ctx, LocalSessionID
	}
	return backend.ContextWithToken(ctx, sess.Get(AuthTokenSessionKey)), sess.ID
}

func (h *Handler) respondScreen(w http.ResponseWriter, r *http.Request, sv ScreenView, err error) {
	if err != nil {
		h.respondError(w, err)
		return
	}
	if r.Method != http.MethodGet && !wantsJSON(r) {
		http.Redirect(w, r, "/screens/"+sv.Entity, http.StatusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, sv)
}

type validationProblem struct {
	httpx.ProblemDetail
	Fields map[string]string `json:"fields"`
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var (
		verr      *ValidationError
		sizeErr   *report.InvalidPageSizeError
		orientErr *report.InvalidOrientationError
	)
	switch {
	case errors.As(err, &verr):
		httpx.JSON(w, http.StatusBadRequest, validationProblem{
			ProblemDetail: httpx.ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: verr.Error()},
			Fields:        verr.Fields,
		})
	case errors.As(err, &sizeErr), errors.As(err, &orientErr):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Report Options", err.Error())
	default:
		if !errors.Is(err, httpx.ErrNotFound) && !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("lab request failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func printOptions(r *http.Request) PrintOptions {
	q := r.URL.Query()
	return PrintOptions{
		Title:       q.Get("title"),
		PaperSize:   q.Get("size"),
		Orientation: q.Get("orientation"),
	}
}

func writeDownload(w http.ResponseWriter, contentType, filename string, data []byte) {
	httpx.Attachment(w, contentType, filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

// readInput returns flat string fields from a JSON object or a form body.
func readInput(r *http.Request) (map[string]string, error) {
	out := make(map[string]string)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var raw map[string]any
		if err := httpx.DecodeJSON(r, &raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				out[k] = val
			case nil:
			default:
				out[k] = fmt.Sprint(val)
			}
		}
		return out, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	for k := range r.Form {
		out[k] = r.Form.Get(k)
	}
	return out, nil
}

// readRecord accepts a JSON body or a multipart form with a "body" JSON part
// and "file" or "files" attachments.
func readRecord(r *http.Request) (json.RawMessage, []backend.File, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			return nil, nil, err
		}
		return data, nil, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	payload := json.RawMessage(r.FormValue("body"))
	var files []backend.File
	for _, field := range []string{"file", "files"} {
		for _, header := range r.MultipartForm.File[field] {
			f, err := header.Open()
			if err != nil {
				return nil, nil, err
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return nil, nil, err
			}
			files = append(files, backend.File{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}
	return payload, files, nil
}
