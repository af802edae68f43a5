package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oharling/newsrelay/internal/dedupe"
	"github.com/oharling/newsrelay/internal/poller"
)

type fakeRunner struct {
	summary poller.CycleSummary
	err     error
	last    *poller.CycleSummary
	next    time.Time
}

func (f *fakeRunner) RunNow(ctx context.Context) (poller.CycleSummary, error) {
	return f.summary, f.err
}

func (f *fakeRunner) LastSummary() *poller.CycleSummary { return f.last }

func (f *fakeRunner) NextRun() time.Time { return f.next }

func newTestServer(t *testing.T, runner *fakeRunner) *Server {
	t.Helper()
	store, err := dedupe.NewMemoryStore(dedupe.RetentionPolicy{})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewServer(runner, store, nil)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeRunner{})

	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	last := poller.CycleSummary{Fetched: 4, New: 2, Forwarded: 2}
	server := newTestServer(t, &fakeRunner{
		last: &last,
		next: time.Now().Add(5 * time.Minute),
	})

	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		LastCycle *poller.CycleSummary `json:"last_cycle"`
		NextRun   *time.Time           `json:"next_run"`
		StoreSize *int                 `json:"store_size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.LastCycle == nil || body.LastCycle.Forwarded != 2 {
		t.Fatalf("unexpected last_cycle: %+v", body.LastCycle)
	}
	if body.NextRun == nil {
		t.Fatalf("expected next_run to be set")
	}
	if body.StoreSize == nil || *body.StoreSize != 0 {
		t.Fatalf("unexpected store_size: %v", body.StoreSize)
	}
}

func TestRunCycleEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeRunner{
		summary: poller.CycleSummary{Fetched: 3, New: 1, Forwarded: 1},
	})

	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cycles/run", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary poller.CycleSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.Forwarded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunCycleRejectsConcurrent(t *testing.T) {
	server := newTestServer(t, &fakeRunner{err: poller.ErrCycleRunning})

	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cycles/run", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRunCycleReportsFailure(t *testing.T) {
	server := newTestServer(t, &fakeRunner{err: context.DeadlineExceeded})

	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cycles/run", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}
