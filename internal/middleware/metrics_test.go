package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tripmind/internal/metrics"
	"github.com/pkordes/tripmind/internal/middleware"
)

// TestMetrics_labelsByRouteTemplate verifies that requests are recorded under
// the chi route template, not the concrete path.
func TestMetrics_labelsByRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(middleware.NewMetrics(metrics.New(reg)))
	r.Get("/api/trips/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trips/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "tripmind_http_request_duration_seconds" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1, "both ids share one series")
		m := mf.GetMetric()[0]
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		assert.Equal(t, map[string]string{"method": "GET", "route": "/api/trips/{id}", "status": "404"}, labels)
		assert.EqualValues(t, 2, m.GetHistogram().GetSampleCount())
		found = true
	}
	assert.True(t, found, "histogram should be registered")
}

// TestMetrics_nilCollector verifies a nil collector passes requests through.
func TestMetrics_nilCollector(t *testing.T) {
	h := middleware.NewMetrics(nil)(trivialHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
