package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/screens/{entity}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/screens/materials", nil))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/screens/{entity}", "418")))
}

func TestReportAndRefetchCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveReport("fpdf", "success", 20*time.Millisecond)
	m.ObserveReport("fpdf", "rejected", time.Millisecond)
	m.ReportGenerated("borrows", "pdf")
	m.CollectionRefetched("borrows", nil)
	m.CollectionRefetched("borrows", errors.New("down"))

	require.Equal(t, 1.0, testutil.ToFloat64(m.reportsTotal.WithLabelValues("fpdf", "rejected")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.generated.WithLabelValues("borrows", "pdf")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.refetches.WithLabelValues("borrows", "failure")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), "labstock_report_renders_total")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveReport("fpdf", "success", time.Second)
	m.ReportGenerated("x", "csv")
	m.CollectionRefetched("x", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
