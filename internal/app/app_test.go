package app

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/labstock/labstock/internal/lab"
	"github.com/labstock/labstock/internal/shared"
)

func TestConfigValidate(t *testing.T) {
	cfg := Config{SessionSecret: "s", CSRFSecret: "c", ReportEngine: "fpdf", AssetProvider: "local"}
	require.NoError(t, cfg.validate())

	bad := cfg
	bad.ReportEngine = "wkhtml"
	require.ErrorContains(t, bad.validate(), "wkhtml")

	bad = cfg
	bad.AssetProvider = "s3"
	require.ErrorContains(t, bad.validate(), "S3_BUCKET")
}

func TestConfigLetterheadKeepsDefaults(t *testing.T) {
	cfg := &Config{LetterheadOrganization: "North Campus Labs", LetterheadAccreditation: []string{"ISO 17025"}}
	lh := cfg.Letterhead()
	require.Equal(t, "North Campus Labs", lh.Organization)
	require.Equal(t, "ISO 17025", lh.Accreditation[0])
	require.NotEmpty(t, lh.Address)
	require.NotEmpty(t, lh.Accreditation[2])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel(&Config{LogLevel: "DEBUG"}))
	require.Equal(t, slog.LevelWarn, parseLevel(&Config{LogLevel: "warning"}))
	require.Equal(t, slog.LevelInfo, parseLevel(&Config{LogLevel: ""}))
	require.Equal(t, slog.LevelInfo, parseLevel(nil))
}

func newStack(t *testing.T, next http.Handler) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var h http.Handler = next
	mws := MiddlewareStack(MiddlewareConfig{
		Logger:         slog.Default(),
		Config:         &Config{},
		SessionManager: shared.NewSessionManager(client, "labstock_session", time.Hour, false),
		CSRFManager:    shared.NewCSRFManager("secret"),
	})
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestMiddlewareRejectsPostWithoutCSRF(t *testing.T) {
	h := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/screens/materials/search", strings.NewReader("query=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareStoresBearerToken(t *testing.T) {
	var token string
	h := newStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = shared.SessionFromContext(r.Context()).Get(lab.AuthTokenSessionKey)
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/screens/materials/refetch", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "abc123", token)
	require.NotEmpty(t, rec.Result().Cookies())
}
