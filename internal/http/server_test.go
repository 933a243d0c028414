package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"txboard/internal/core"
	applog "txboard/internal/log"
	"txboard/internal/query"
	"txboard/internal/reports"
	"txboard/internal/seed"
	"txboard/internal/store"
	"txboard/internal/store/memory"
)

const seedDocument = `[
	{"id": 1, "title": "Backpack", "description": "Fits laptops", "price": 50, "dateOfSale": "2024-03-05", "category": "A", "sold": true},
	{"id": 2, "title": "T-Shirt", "description": "Slim fit", "price": 150, "dateOfSale": "2024-03-20", "category": "B", "sold": false}
]`

func newTestServer(t *testing.T, s store.TransactionStore, seedURL string) *Server {
	t.Helper()
	srv := NewServer(":0", reports.NewService(s), seed.NewSeeder(s, seedURL, nil), time.Minute)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func seededServer(t *testing.T) *Server {
	t.Helper()
	s := memory.New()
	err := s.ReplaceAll(context.Background(), []core.Transaction{
		{ID: 1, Title: "Backpack", Description: "Fits laptops", Price: 50, DateOfSale: core.NewDate(2024, 3, 5), Category: "A", Sold: true},
		{ID: 2, Title: "T-Shirt", Description: "Slim fit", Price: 150, DateOfSale: core.NewDate(2024, 3, 20), Category: "B", Sold: false},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	return newTestServer(t, s, "")
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHandleTransactions(t *testing.T) {
	srv := seededServer(t)

	rec := get(t, srv, "/transactions?page=1&perPage=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var page reports.Page
	decode(t, rec, &page)
	if len(page.Transactions) != 1 || page.Transactions[0].ID != 1 {
		t.Errorf("page 1 = %+v", page.Transactions)
	}
	if page.Total != 2 {
		t.Errorf("total = %d, want 2", page.Total)
	}

	rec = get(t, srv, "/transactions?page=2&perPage=1")
	decode(t, rec, &page)
	if len(page.Transactions) != 1 || page.Transactions[0].ID != 2 {
		t.Errorf("page 2 = %+v", page.Transactions)
	}
}

func TestHandleTransactions_SearchAndDefaults(t *testing.T) {
	srv := seededServer(t)

	var page reports.Page
	decode(t, get(t, srv, "/transactions?search=backpack"), &page)
	if page.Total != 1 || len(page.Transactions) != 1 {
		t.Errorf("case-insensitive search: %+v", page)
	}

	// Malformed paging params fall back to defaults instead of failing.
	rec := get(t, srv, "/transactions?page=abc&perPage=-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	decode(t, rec, &page)
	if page.Total != 2 {
		t.Errorf("defaulted request total = %d, want 2", page.Total)
	}
}

func TestHandleStatistics(t *testing.T) {
	srv := seededServer(t)

	rec := get(t, srv, "/statistics?month=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var stats reports.Statistics
	decode(t, rec, &stats)
	want := reports.Statistics{TotalSaleAmount: 50, SoldItemsCount: 1, NotSoldItemsCount: 1}
	if stats != want {
		t.Errorf("statistics = %+v, want %+v", stats, want)
	}
}

func TestHandleStatistics_MalformedMonthIsNotRejected(t *testing.T) {
	srv := seededServer(t)

	// A bad month never yields a 4xx; it falls back to the unscoped report.
	rec := get(t, srv, "/statistics?month=bogus")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats reports.Statistics
	decode(t, rec, &stats)
	want := reports.Statistics{TotalSaleAmount: 50, SoldItemsCount: 1, NotSoldItemsCount: 1}
	if stats != want {
		t.Errorf("statistics = %+v, want unscoped %+v", stats, want)
	}

	// An out-of-range month scopes to a window outside the dataset's year.
	decode(t, get(t, srv, "/statistics?month=13"), &stats)
	if stats != (reports.Statistics{}) {
		t.Errorf("statistics for month 13 = %+v, want zeros", stats)
	}
}

func TestHandlePriceRange(t *testing.T) {
	srv := seededServer(t)

	var ranges []reports.RangeCount
	decode(t, get(t, srv, "/price-range?month=3"), &ranges)

	if len(ranges) != 10 {
		t.Fatalf("%d buckets, want 10", len(ranges))
	}
	for i, rc := range ranges {
		want := int64(0)
		switch rc.Range {
		case "0-100", "101-200":
			want = 1
		}
		if rc.Count != want {
			t.Errorf("bucket %q count = %d, want %d", rc.Range, rc.Count, want)
		}
		if rc.Range != core.PriceBuckets[i].Label {
			t.Errorf("bucket %d out of order: %q", i, rc.Range)
		}
	}
}

func TestHandleCategoryData(t *testing.T) {
	srv := seededServer(t)

	rec := get(t, srv, "/category-data?month=3")
	var cats []map[string]any
	decode(t, rec, &cats)

	if len(cats) != 2 {
		t.Fatalf("categories = %+v", cats)
	}
	// The aggregation row shape keeps the category under "_id".
	if cats[0]["_id"] != "A" || cats[0]["count"] != float64(1) {
		t.Errorf("first category row = %+v", cats[0])
	}
}

func TestHandleCombinedData(t *testing.T) {
	srv := seededServer(t)

	rec := get(t, srv, "/combined-data?month=3")
	var combined struct {
		Statistics reports.Statistics   `json:"statistics"`
		PriceRange []reports.RangeCount `json:"priceRangeData"`
		Categories []map[string]any     `json:"categoryData"`
	}
	decode(t, rec, &combined)

	if combined.Statistics.TotalSaleAmount != 50 {
		t.Errorf("combined statistics = %+v", combined.Statistics)
	}
	if len(combined.PriceRange) != 10 {
		t.Errorf("combined histogram has %d buckets", len(combined.PriceRange))
	}
	if len(combined.Categories) != 2 {
		t.Errorf("combined categories = %+v", combined.Categories)
	}
}

func TestHandleInitializeDatabase(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(seedDocument))
	}))
	defer source.Close()

	s := memory.New()
	srv := newTestServer(t, s, source.URL)

	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/initialize-database", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	decode(t, rec, &body)
	if !strings.Contains(body["message"], "seeded") {
		t.Errorf("body = %+v", body)
	}

	total, err := s.Count(context.Background(), query.Filter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 2 {
		t.Errorf("store holds %d records, want 2", total)
	}
}

func TestHandleInitializeDatabase_MethodNotAllowed(t *testing.T) {
	srv := seededServer(t)

	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/initialize-database", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleInitializeDatabase_UpstreamFailure(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer source.Close()

	srv := newTestServer(t, memory.New(), source.URL)

	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/initialize-database", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != errSeeding {
		t.Errorf("error = %q, want %q", body["error"], errSeeding)
	}
}

// failingStore errors on every operation to exercise the 500 boundary.
type failingStore struct{}

var errStore = errors.New("store unreachable")

func (failingStore) ReplaceAll(context.Context, []core.Transaction) error { return errStore }
func (failingStore) Count(context.Context, query.Filter) (int64, error)  { return 0, errStore }
func (failingStore) Find(context.Context, query.Filter, int, int) ([]core.Transaction, error) {
	return nil, errStore
}
func (failingStore) SumPrice(context.Context, query.Filter) (float64, error) { return 0, errStore }
func (failingStore) CategoryCounts(context.Context, query.Filter) ([]core.CategoryCount, error) {
	return nil, errStore
}

func TestHandlers_StoreFailuresAreUniform500s(t *testing.T) {
	srv := newTestServer(t, failingStore{}, "")

	tests := []struct {
		target  string
		wantMsg string
	}{
		{"/transactions", errTransactions},
		{"/statistics?month=3", errStatistics},
		{"/price-range?month=3", errPriceRange},
		{"/category-data?month=3", errCategoryData},
		{"/combined-data?month=3", errCombinedData},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, srv, tt.target)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			var body map[string]string
			decode(t, rec, &body)
			if body["error"] != tt.wantMsg {
				t.Errorf("error = %q, want %q", body["error"], tt.wantMsg)
			}
		})
	}
}

func TestReseedPurgesReportCache(t *testing.T) {
	doc := seedDocument
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(doc))
	}))
	defer source.Close()

	s := memory.New()
	srv := newTestServer(t, s, source.URL)

	seedOnce := func() {
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/initialize-database", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("seed status = %d", rec.Code)
		}
	}

	seedOnce()

	var stats reports.Statistics
	decode(t, get(t, srv, "/statistics?month=3"), &stats)
	if stats.SoldItemsCount != 1 {
		t.Fatalf("statistics before reseed = %+v", stats)
	}

	// Change the upstream dataset and reseed; the cached report must go.
	doc = `[{"id": 9, "title": "Lamp", "description": "", "price": 20, "dateOfSale": "2024-03-01", "category": "C", "sold": true}]`
	seedOnce()

	decode(t, get(t, srv, "/statistics?month=3"), &stats)
	if stats.TotalSaleAmount != 20 || stats.SoldItemsCount != 1 || stats.NotSoldItemsCount != 0 {
		t.Errorf("statistics after reseed = %+v, cache not purged", stats)
	}
}

func TestPurgeReportCache(t *testing.T) {
	s := memory.New()
	err := s.ReplaceAll(context.Background(), []core.Transaction{
		{ID: 1, Price: 50, Sold: true, DateOfSale: core.NewDate(2024, 3, 5), Category: "A"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	srv := newTestServer(t, s, "")

	var stats reports.Statistics
	decode(t, get(t, srv, "/statistics?month=3"), &stats)
	if stats.TotalSaleAmount != 50 {
		t.Fatalf("statistics = %+v", stats)
	}

	// Replace the dataset behind the cache, as a reseed on another
	// instance would. The stale report survives until the purge.
	err = s.ReplaceAll(context.Background(), []core.Transaction{
		{ID: 2, Price: 75, Sold: true, DateOfSale: core.NewDate(2024, 3, 9), Category: "A"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	decode(t, get(t, srv, "/statistics?month=3"), &stats)
	if stats.TotalSaleAmount != 50 {
		t.Fatalf("statistics should still be cached, got %+v", stats)
	}

	srv.PurgeReportCache()

	decode(t, get(t, srv, "/statistics?month=3"), &stats)
	if stats.TotalSaleAmount != 75 {
		t.Errorf("statistics after purge = %+v, want the new dataset", stats)
	}
}

func TestRequestLogFieldNames(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	srv := seededServer(t)
	get(t, srv, "/transactions")

	var completed map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line %q: %v", line, err)
		}
		if entry["msg"] == "Request completed" {
			completed = entry
		}
	}
	if completed == nil {
		t.Fatalf("no completion entry in log output: %s", buf.String())
	}

	for _, field := range []string{
		applog.FieldRequestID, applog.FieldMethod, applog.FieldPath,
		applog.FieldStatus, applog.FieldDuration, applog.FieldClientIP,
	} {
		if _, ok := completed[field]; !ok {
			t.Errorf("completion entry missing field %q: %v", field, completed)
		}
	}
	if completed[applog.FieldPath] != "/transactions" {
		t.Errorf("path = %v, want /transactions", completed[applog.FieldPath])
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := seededServer(t)

	for _, target := range []string{"/healthz", "/readyz"} {
		if rec := get(t, srv, target); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", target, rec.Code)
		}
	}
}
