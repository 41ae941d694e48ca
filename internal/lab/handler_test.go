package lab

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/labstock/labstock/internal/shared"
	"github.com/labstock/labstock/internal/view"
)

func newTestRouter(t *testing.T, env *testEnv, sess *shared.Session) http.Handler {
	t.Helper()
	engine, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(nil, env.svc, engine, nil)

	r := chi.NewRouter()
	if sess != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
			})
		})
	}
	r.Route("/screens", h.MountRoutes)
	r.Route("/reports", h.MountReportRoutes)
	return r
}

func TestHandlerScreenRendersEmptyPlaceholder(t *testing.T) {
	env := newTestEnv(t, true)
	router := newTestRouter(t, env, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screens/calibrations/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No records found")
	require.Contains(t, rec.Body.String(), "Calibrations")
}

func TestHandlerJSONSearchPersistsForSession(t *testing.T) {
	env := newTestEnv(t, true)
	seedMaterials(env.backend, 10)
	sess := shared.NewSessionManager(nil, "sid", time.Hour, false).New()
	sess.Set(AuthTokenSessionKey, "token-1")
	router := newTestRouter(t, env, sess)

	req := httptest.NewRequest(http.MethodPost, "/screens/materials/search", strings.NewReader(`{"query":"material 1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var sv ScreenView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sv))
	require.Equal(t, 2, sv.Pagination.Total)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screens/materials/state", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sv))
	require.Equal(t, "material 1", sv.State.Search)
}

func TestHandlerFormPostRedirects(t *testing.T) {
	env := newTestEnv(t, true)
	seedMaterials(env.backend, 10)
	sess := shared.NewSessionManager(nil, "sid", time.Hour, false).New()
	router := newTestRouter(t, env, sess)

	form := url.Values{"page": {"3"}}
	req := httptest.NewRequest(http.MethodPost, "/screens/materials/page", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/screens/materials", rec.Header().Get("Location"))
}

func TestHandlerReportDownload(t *testing.T) {
	env := newTestEnv(t, true)
	seedMaterials(env.backend, 3)
	router := newTestRouter(t, env, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screens/materials/report?size=short&orientation=landscape", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), `filename="Materials.pdf"`)
	require.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func TestHandlerReportRejectsUnknownSize(t *testing.T) {
	env := newTestEnv(t, true)
	router := newTestRouter(t, env, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screens/materials/report?size=b5", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, rec.Header().Get("Content-Disposition"))
	require.NotContains(t, rec.Body.String(), "%PDF")
}

func TestHandlerSaveValidationProblem(t *testing.T) {
	env := newTestEnv(t, true)
	router := newTestRouter(t, env, nil)

	req := httptest.NewRequest(http.MethodPost, "/screens/purchase-orders/records", strings.NewReader(`{"number":"PO-1","supplier":"Acme","status":"draft","items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem validationProblem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Contains(t, problem.Fields, "items")
}

func TestHandlerExportXLSX(t *testing.T) {
	env := newTestEnv(t, true)
	seedMaterials(env.backend, 2)
	router := newTestRouter(t, env, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screens/materials/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "Materials.xlsx")
	require.True(t, strings.HasPrefix(rec.Body.String(), "PK"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screens/materials/export?format=doc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRecentReports(t *testing.T) {
	env := newTestEnv(t, true)
	seedMaterials(env.backend, 2)
	router := newTestRouter(t, env, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screens/materials/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/recent", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"format":"csv"`)
}
