package app

import (
	"log/slog"
	"mime"

	"github.com/labstock/labstock/report"
)

// Minimal container images ship without /etc/mime.types.
func init() {
	ensureMimeType(".css", "text/css; charset=utf-8")
	ensureMimeType(".png", "image/png")
	ensureMimeType(".csv", report.FormatCSV.ContentType())
	ensureMimeType(".xlsx", report.FormatXLSX.ContentType())
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
