package report

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/labstock/labstock/internal/platform/httpx"
)

// Handler manages report endpoints.
type Handler struct {
	client *Client
	logger *slog.Logger
}

// NewHandler creates a report handler. client may be nil when the fpdf
// engine is in use.
func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/paper-sizes", h.paperSizes)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": "fpdf"})
		return
	}
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "engine": "gotenberg"})
}

type paperSizeView struct {
	Size        PaperSize   `json:"size"`
	Orientation Orientation `json:"orientation"`
	WidthMM     float64     `json:"width_mm"`
	HeightMM    float64     `json:"height_mm"`
}

func (h *Handler) paperSizes(w http.ResponseWriter, r *http.Request) {
	var out []paperSizeView
	for _, size := range []PaperSize{PaperA4, PaperShort, PaperLong} {
		for _, o := range []Orientation{Portrait, Landscape} {
			g, err := ResolveGeometry(string(size), string(o))
			if err != nil {
				continue
			}
			out = append(out, paperSizeView{Size: size, Orientation: o, WidthMM: g.Width, HeightMM: g.Height})
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}
