package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentLabelsByRoutePattern(t *testing.T) {
	c := New()
	router := chi.NewRouter()
	router.Use(c.Instrument)
	router.Get("/employees/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/employees/"+id, nil))
	}

	got := testutil.ToFloat64(c.requests.WithLabelValues(http.MethodGet, "/employees/{id}", "202"))
	if got != 3 {
		t.Fatalf("expected 3 requests on pattern label, got %v", got)
	}
}

func TestObserveCountersAndHandler(t *testing.T) {
	c := New()
	c.ObserveUpstream(http.MethodGet, 401, 20*time.Millisecond)
	c.ObserveUpstream(http.MethodGet, 0, time.Millisecond)
	c.ObserveRefresh("success")
	c.ObserveSessionEvent("cleared")

	if got := testutil.ToFloat64(c.upstreamRequests.WithLabelValues(http.MethodGet, "error")); got != 1 {
		t.Fatalf("expected transport error counted, got %v", got)
	}
	if got := testutil.ToFloat64(c.refreshes.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected one refresh, got %v", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "managerhr_session_events_total") {
		t.Fatal("expected session events in exposition output")
	}
}

func TestNilCollectorIsInert(t *testing.T) {
	var c *Collector
	c.ObserveRefresh("failure")
	c.ObserveUpstream(http.MethodPost, 200, time.Second)
	handler := c.Instrument(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
}
