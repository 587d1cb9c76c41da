package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maruel/docdb/internal/docdb"
	"github.com/maruel/docdb/internal/server/ratelimit"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := docdb.Open(t.TempDir(), docdb.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return NewRouter(store, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return resp.Data
}

func TestHealth(t *testing.T) {
	router := testRouter(t)
	w := do(t, router, "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRecordLifecycle(t *testing.T) {
	router := testRouter(t)

	// Create
	w := do(t, router, "POST", "/api/collections/widgets/records", map[string]any{"name": "a"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeData[map[string]any](t, w)
	id, _ := created["_id"].(string)
	if id == "" {
		t.Fatal("expected assigned _id in create response")
	}

	// List
	w = do(t, router, "GET", "/api/collections/widgets/records", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if recs := decodeData[[]map[string]any](t, w); len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	// Get
	w = do(t, router, "GET", "/api/collections/widgets/records/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if rec := decodeData[map[string]any](t, w); rec["name"] != "a" {
		t.Errorf("expected name 'a', got %v", rec["name"])
	}

	// Update (verbatim replace)
	w = do(t, router, "PUT", "/api/collections/widgets/records/"+id, map[string]any{"name": "a2"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Patch
	w = do(t, router, "PATCH", "/api/collections/widgets/records/"+id, map[string]any{"color": "red"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = do(t, router, "GET", "/api/collections/widgets/records/"+id, nil)
	rec := decodeData[map[string]any](t, w)
	if rec["name"] != "a2" || rec["color"] != "red" {
		t.Errorf("expected patched record, got %v", rec)
	}

	// Delete
	w = do(t, router, "DELETE", "/api/collections/widgets/records/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = do(t, router, "GET", "/api/collections/widgets/records", nil)
	if recs := decodeData[[]map[string]any](t, w); len(recs) != 0 {
		t.Errorf("expected empty collection after delete, got %v", recs)
	}
}

func TestListRecordsFilters(t *testing.T) {
	router := testRouter(t)

	for _, name := range []string{"a", "b", "a"} {
		w := do(t, router, "POST", "/api/collections/widgets/records", map[string]any{"name": name})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", w.Code)
		}
	}

	w := do(t, router, "GET", "/api/collections/widgets/records?name=a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	recs := decodeData[[]map[string]any](t, w)
	if len(recs) != 2 {
		t.Fatalf("expected 2 filtered records, got %d", len(recs))
	}
	for _, r := range recs {
		if r["name"] != "a" {
			t.Errorf("filter leaked record %v", r)
		}
	}
}

func TestGetMissingRecord(t *testing.T) {
	router := testRouter(t)
	w := do(t, router, "GET", "/api/collections/widgets/records/no-such-id", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

// Mutations on a missing id are soft successes, mirroring the store.
func TestMutationsOnMissingIDSoftSucceed(t *testing.T) {
	router := testRouter(t)

	w := do(t, router, "DELETE", "/api/collections/widgets/records/no-such-id", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for idempotent delete, got %d", w.Code)
	}
	if resp := decodeData[map[string]any](t, w); resp["id"] != "no-such-id" {
		t.Errorf("expected the id back, got %v", resp)
	}

	w = do(t, router, "PATCH", "/api/collections/widgets/records/no-such-id", map[string]any{"name": "ghost"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for patch of missing id, got %d", w.Code)
	}

	w = do(t, router, "GET", "/api/collections/widgets/records", nil)
	if recs := decodeData[[]map[string]any](t, w); len(recs) != 0 {
		t.Errorf("soft no-ops must not create records, got %v", recs)
	}
}

func TestInvalidCollectionName(t *testing.T) {
	router := testRouter(t)
	w := do(t, router, "POST", "/api/collections/..%2Fescape/records", map[string]any{"name": "a"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid collection name, got %d", w.Code)
	}
}

func TestInvalidBody(t *testing.T) {
	router := testRouter(t)
	req := httptest.NewRequest("POST", "/api/collections/widgets/records", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestListCollections(t *testing.T) {
	router := testRouter(t)
	do(t, router, "POST", "/api/collections/widgets/records", map[string]any{"name": "a"})

	w := do(t, router, "GET", "/api/collections", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeData[map[string][]string](t, w)
	if names := resp["collections"]; len(names) != 1 || names[0] != "widgets" {
		t.Errorf("expected [widgets], got %v", names)
	}
}

func TestRateLimitRejects(t *testing.T) {
	store, err := docdb.Open(t.TempDir(), docdb.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	limiter := ratelimit.NewLimiter(60, time.Minute, 1)
	defer limiter.Close()
	router := NewRouter(store, limiter)

	w := do(t, router, "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", w.Code)
	}
	w = do(t, router, "GET", "/api/health", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 beyond burst, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}
