package devpost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAPI serves total listings split into pages of perPage.
type fakeAPI struct {
	total   int
	perPage int

	// failures maps page -> failing attempts before success; -1 fails forever.
	failures  map[int]int
	malformed map[int]bool
	// extra maps page -> an ID injected in addition to the page's own listings.
	extra map[int]int64
	delay time.Duration

	mu       sync.Mutex
	attempts map[int]int

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeAPI(total, perPage int) *fakeAPI {
	return &fakeAPI{
		total:     total,
		perPage:   perPage,
		failures:  map[int]int{},
		malformed: map[int]bool{},
		extra:     map[int]int64{},
		attempts:  map[int]int{},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	current := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.maxInflight.Load()
		if current <= peak || f.maxInflight.CompareAndSwap(peak, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	f.mu.Lock()
	f.attempts[page]++
	attempt := f.attempts[page]
	failFor := f.failures[page]
	f.mu.Unlock()

	if failFor == -1 || attempt <= failFor {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	if f.malformed[page] {
		_, _ = io.WriteString(w, `{"hackathons": [`)
		return
	}

	items := []map[string]any{}
	start := (page-1)*f.perPage + 1
	for id := start; id < start+f.perPage && id <= f.total; id++ {
		items = append(items, listingJSON(int64(id)))
	}
	if id, ok := f.extra[page]; ok {
		items = append(items, listingJSON(id))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"hackathons": items,
		"meta":       map[string]any{"total_count": f.total, "per_page": f.perPage},
	})
}

func (f *fakeAPI) attemptsFor(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[page]
}

func listingJSON(id int64) map[string]any {
	return map[string]any{
		"id":                       id,
		"title":                    fmt.Sprintf("Hackathon %d", id),
		"url":                      fmt.Sprintf("https://h%d.devpost.com/", id),
		"organization_name":        "Major League Hacking",
		"displayed_location":       map[string]any{"icon": "globe", "location": "Online"},
		"open_state":               "closed",
		"submission_period_dates":  "Jan 01 - 05, 2025",
		"time_left_to_submission":  "about 1 month left",
		"prize_amount":             "$<span data-currency-value>10,000</span>",
		"prizes_counts":            map[string]any{"cash": 3, "other": 1},
		"registrations_count":      250,
		"themes":                   []map[string]any{{"id": 1, "name": "Web"}, {"id": 2, "name": "Beginner Friendly"}},
		"featured":                 false,
		"winners_announced":        true,
		"invite_only":              false,
		"managed_by_devpost_badge": true,
		"thumbnail_url":            "//d112y698adiu2z.cloudfront.net/photos/thumb.png",
		"submission_gallery_url":   fmt.Sprintf("https://h%d.devpost.com/project-gallery", id),
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScraper(t *testing.T, api *fakeAPI, options ...Option) *DevpostScraper {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	base := []Option{WithBaseURL(srv.URL + "/api/hackathons"), WithSleep(noSleep), WithLogger(quietLogger())}
	return NewScraper(srv.Client(), append(base, options...)...)
}

func TestScrape_FetchesEveryPage(t *testing.T) {
	api := newFakeAPI(47, 9)
	scraper := newTestScraper(t, api, WithConcurrency(4))

	result, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if result.TotalPages != 6 {
		t.Fatalf("TotalPages = %d, want 6", result.TotalPages)
	}
	if len(result.Hackathons) != 47 {
		t.Fatalf("got %d hackathons, want 47", len(result.Hackathons))
	}
	for i, h := range result.Hackathons {
		if h.ID != int64(i+1) {
			t.Fatalf("record %d has ID %d; expected page-ordered output", i, h.ID)
		}
	}
	if len(result.FailedPages) != 0 {
		t.Fatalf("unexpected failed pages: %v", result.FailedPages)
	}
}

func TestScrape_DeduplicatesByID(t *testing.T) {
	api := newFakeAPI(30, 10)
	api.extra[2] = 3
	api.extra[3] = 15
	scraper := newTestScraper(t, api)

	result, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(result.Hackathons) != 30 {
		t.Fatalf("got %d hackathons, want 30", len(result.Hackathons))
	}
	if result.Duplicates != 2 {
		t.Fatalf("Duplicates = %d, want 2", result.Duplicates)
	}
	seen := map[int64]bool{}
	for _, h := range result.Hackathons {
		if seen[h.ID] {
			t.Fatalf("duplicate ID %d in output", h.ID)
		}
		seen[h.ID] = true
	}
}

func TestScrape_RespectsMaxPages(t *testing.T) {
	api := newFakeAPI(100, 10)
	scraper := newTestScraper(t, api, WithMaxPages(3))

	result, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if result.TotalPages != 3 || len(result.Hackathons) != 30 {
		t.Fatalf("pages=%d hackathons=%d, want 3 and 30", result.TotalPages, len(result.Hackathons))
	}
	if api.attemptsFor(4) != 0 {
		t.Fatalf("page 4 should not have been requested")
	}
}

func TestScrape_DropsPageThatExhaustsRetries(t *testing.T) {
	api := newFakeAPI(40, 10)
	api.failures[3] = -1
	scraper := newTestScraper(t, api, WithRetry(3, time.Second))

	result, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(result.Hackathons) != 30 {
		t.Fatalf("got %d hackathons, want 30 (one page of 10 dropped)", len(result.Hackathons))
	}
	if len(result.FailedPages) != 1 || result.FailedPages[0] != 3 {
		t.Fatalf("FailedPages = %v, want [3]", result.FailedPages)
	}
	if got := api.attemptsFor(3); got != 3 {
		t.Fatalf("page 3 attempted %d times, want 3", got)
	}
	for _, h := range result.Hackathons {
		if h.ID >= 21 && h.ID <= 30 {
			t.Fatalf("record %d from the failed page leaked into output", h.ID)
		}
	}
}

func TestScrape_RetriesTransientFailures(t *testing.T) {
	api := newFakeAPI(20, 10)
	api.failures[2] = 2

	var waits []time.Duration
	var mu sync.Mutex
	sleep := func(_ context.Context, d time.Duration) error {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		return nil
	}
	scraper := newTestScraper(t, api, WithRetry(3, 500*time.Millisecond), WithSleep(sleep))

	result, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(result.Hackathons) != 20 {
		t.Fatalf("got %d hackathons, want 20", len(result.Hackathons))
	}
	if len(waits) != 2 || waits[0] != 500*time.Millisecond || waits[1] != time.Second {
		t.Fatalf("unexpected backoff schedule: %v", waits)
	}
}

func TestScrape_SkipsMalformedPageWithoutRetry(t *testing.T) {
	api := newFakeAPI(30, 10)
	api.malformed[2] = true
	scraper := newTestScraper(t, api)

	result, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(result.Hackathons) != 20 {
		t.Fatalf("got %d hackathons, want 20", len(result.Hackathons))
	}
	if got := api.attemptsFor(2); got != 1 {
		t.Fatalf("malformed page attempted %d times, want 1", got)
	}
}

func TestScrape_FirstPageFailureIsFatal(t *testing.T) {
	api := newFakeAPI(30, 10)
	api.failures[1] = -1
	scraper := newTestScraper(t, api, WithRetry(2, 0))

	_, err := scraper.Scrape(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected StatusError 500, got %v", err)
	}
}

func TestScrape_LimitsConcurrentRequests(t *testing.T) {
	api := newFakeAPI(200, 10)
	api.delay = 20 * time.Millisecond
	scraper := newTestScraper(t, api, WithConcurrency(3))

	result, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(result.Hackathons) != 200 {
		t.Fatalf("got %d hackathons, want 200", len(result.Hackathons))
	}
	if peak := api.maxInflight.Load(); peak > 3 {
		t.Fatalf("observed %d concurrent requests, limit is 3", peak)
	}
}

func TestFlatten_MapsListing(t *testing.T) {
	raw, err := json.Marshal(listingJSON(7))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var item listing
	if err := json.Unmarshal(raw, &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	h, ok := flatten(item)
	if !ok {
		t.Fatalf("flatten rejected listing")
	}
	if h.ID != 7 || h.Title != "Hackathon 7" || h.Location != "Online" {
		t.Fatalf("unexpected identity fields: %+v", h)
	}
	if h.PrizeAmount != "$10,000" {
		t.Fatalf("PrizeAmount = %q, want markup stripped", h.PrizeAmount)
	}
	if h.CashPrizesCount != 3 || h.OtherPrizesCount != 1 || h.RegistrationsCount != 250 {
		t.Fatalf("unexpected counts: %+v", h)
	}
	if h.Themes != "Web, Beginner Friendly" {
		t.Fatalf("Themes = %q", h.Themes)
	}
	if !h.WinnersAnnounced || !h.ManagedByDevpost || h.Featured || h.InviteOnly {
		t.Fatalf("unexpected flags: %+v", h)
	}
	if h.ThumbnailURL != "https://d112y698adiu2z.cloudfront.net/photos/thumb.png" {
		t.Fatalf("ThumbnailURL = %q", h.ThumbnailURL)
	}
}

func TestFlatten_SkipsMissingID(t *testing.T) {
	if _, ok := flatten(listing{Title: "no id"}); ok {
		t.Fatalf("expected listing without id to be skipped")
	}
}

func TestScrape_LogsListingsWithoutID(t *testing.T) {
	api := newFakeAPI(20, 10)
	api.extra[2] = 0

	var logs bytes.Buffer
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	scraper := NewScraper(srv.Client(),
		WithBaseURL(srv.URL), WithSleep(noSleep),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	result, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(result.Hackathons) != 20 {
		t.Fatalf("got %d hackathons, want 20", len(result.Hackathons))
	}
	out := logs.String()
	if !strings.Contains(out, "listings without id skipped") || !strings.Contains(out, "page=2") || !strings.Contains(out, "count=1") {
		t.Fatalf("skip not logged:\n%s", out)
	}
}

func TestRecords_ReportsSkippedListings(t *testing.T) {
	resp := listingResponse{Hackathons: []listing{
		{ID: json.Number("5"), Title: "Kept"},
		{Title: "Orphan"},
	}}
	records, skipped := resp.records()
	if len(records) != 1 || records[0].ID != 5 {
		t.Fatalf("records = %+v", records)
	}
	if len(skipped) != 1 || skipped[0] != `"Orphan" (id="")` {
		t.Fatalf("skipped = %q", skipped)
	}
}
