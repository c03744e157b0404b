package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/scans/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	accepted := httpRequestsTotal.WithLabelValues("GET", "202")
	gone := httpRequestsTotal.WithLabelValues("GET", "410")
	beforeAccepted := testutil.ToFloat64(accepted)
	beforeGone := testutil.ToFloat64(gone)

	for _, path := range []string{"/v1/scans/abc", "/gone"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, beforeAccepted+1, testutil.ToFloat64(accepted), 0)
	assert.InDelta(t, beforeGone+1, testutil.ToFloat64(gone), 0)
	assert.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}
