package devpost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"hackstats/internal/model"
)

const (
	DefaultBaseURL     = "https://devpost.com/api/hackathons"
	DefaultConcurrency = 10
	DefaultMaxRetries  = 3
	DefaultBackoff     = time.Second
	DefaultTimeout     = 30 * time.Second

	userAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	progressEvery = 100
	failedPreview = 20
)

// ErrMalformedPage marks a page whose body could not be decoded. Such pages
// are skipped without retrying.
var ErrMalformedPage = errors.New("malformed listing page")

type StatusError struct {
	Page int
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("page %d: unexpected status: %d", e.Page, e.Code)
}

type DevpostScraper struct {
	client      *http.Client
	base        string
	concurrency int
	maxPages    int
	maxRetries  int
	backoff     time.Duration
	timeout     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	log         *slog.Logger
}

type Option func(*DevpostScraper)

func WithBaseURL(base string) Option {
	return func(s *DevpostScraper) {
		s.base = base
	}
}

func WithConcurrency(n int) Option {
	return func(s *DevpostScraper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxPages caps the number of listing pages; zero fetches every page.
func WithMaxPages(n int) Option {
	return func(s *DevpostScraper) {
		if n >= 0 {
			s.maxPages = n
		}
	}
}

func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *DevpostScraper) {
		if attempts > 0 {
			s.maxRetries = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *DevpostScraper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *DevpostScraper) {
		s.sleep = sleep
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *DevpostScraper) {
		s.log = log
	}
}

func NewScraper(client *http.Client, options ...Option) *DevpostScraper {
	s := &DevpostScraper{
		client:      client,
		base:        DefaultBaseURL,
		concurrency: DefaultConcurrency,
		maxRetries:  DefaultMaxRetries,
		backoff:     DefaultBackoff,
		timeout:     DefaultTimeout,
		sleep:       sleepContext,
		log:         slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	s.log = s.log.With("source", s.Source())
	return s
}

func (s *DevpostScraper) Source() string {
	return "devpost"
}

// Scrape reads page 1 to learn the page count, then fetches the remaining
// pages with at most s.concurrency requests in flight. Pages that exhaust
// their retries are reported in FailedPages and contribute no rows.
func (s *DevpostScraper) Scrape(ctx context.Context) (model.FetchResult, error) {
	s.log.Info("fetching first page")
	first, err := s.fetchPageWithRetry(ctx, 1)
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("devpost: first page: %w", err)
	}

	totalPages := first.pageCount()
	if totalPages < 1 {
		totalPages = 1
	}
	if s.maxPages > 0 && totalPages > s.maxPages {
		totalPages = s.maxPages
	}
	s.log.Info("first page fetched",
		"total_count", first.Meta.TotalCount, "per_page", first.Meta.PerPage, "pages", totalPages)

	byPage := make(map[int][]model.Hackathon, totalPages)
	byPage[1] = s.pageRecords(1, first)

	failed := s.fetchRemainingPages(ctx, totalPages, byPage)

	result := merge(byPage, totalPages)
	result.FailedPages = failed

	if len(failed) > 0 {
		preview := failed
		if len(preview) > failedPreview {
			preview = preview[:failedPreview]
		}
		s.log.Warn("pages failed to fetch", "count", len(failed), "first", preview)
	}
	s.log.Info("fetch finished",
		"hackathons", len(result.Hackathons), "duplicates", result.Duplicates, "failed_pages", len(failed))

	return result, nil
}

func (s *DevpostScraper) fetchRemainingPages(ctx context.Context, totalPages int, byPage map[int][]model.Hackathon) []int {
	remaining := totalPages - 1
	if remaining <= 0 {
		return nil
	}

	s.log.Info("fetching remaining pages", "from", 2, "to", totalPages, "concurrency", s.concurrency)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	var (
		mu        sync.Mutex
		failed    []int
		completed atomic.Int64
	)
	for page := 2; page <= totalPages; page++ {
		group.Go(func() error {
			payload, err := s.fetchPageWithRetry(gctx, page)
			var records []model.Hackathon
			if err == nil {
				records = s.pageRecords(page, payload)
			}

			mu.Lock()
			if err != nil {
				failed = append(failed, page)
			} else {
				byPage[page] = records
			}
			mu.Unlock()

			if err != nil {
				s.log.Error("page dropped", "page", page, "error", err)
			} else {
				s.log.Debug("page fetched", "page", page, "items", len(payload.Hackathons))
			}

			done := completed.Add(1)
			if done%progressEvery == 0 || int(done) == remaining {
				s.log.Info("progress", "completed", done, "total", remaining, "percent", done*100/int64(remaining))
			}
			return nil
		})
	}
	_ = group.Wait()

	sort.Ints(failed)
	return failed
}

func (s *DevpostScraper) pageRecords(page int, payload listingResponse) []model.Hackathon {
	records, skipped := payload.records()
	if len(skipped) > 0 {
		s.log.Warn("listings without id skipped", "page", page, "count", len(skipped), "listings", skipped)
	}
	return records
}

// merge concatenates pages in page order and keeps the first record seen
// for every ID.
func merge(byPage map[int][]model.Hackathon, totalPages int) model.FetchResult {
	seen := make(map[int64]struct{})
	result := model.FetchResult{TotalPages: totalPages}
	for page := 1; page <= totalPages; page++ {
		for _, h := range byPage[page] {
			if _, dup := seen[h.ID]; dup {
				result.Duplicates++
				continue
			}
			seen[h.ID] = struct{}{}
			result.Hackathons = append(result.Hackathons, h)
		}
	}
	return result
}

func (s *DevpostScraper) fetchPageWithRetry(ctx context.Context, page int) (listingResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		payload, err := s.fetchPage(ctx, page)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		if errors.Is(err, ErrMalformedPage) {
			return listingResponse{}, err
		}
		if ctx.Err() != nil {
			return listingResponse{}, ctx.Err()
		}
		if attempt == s.maxRetries {
			break
		}

		wait := time.Duration(attempt) * s.backoff
		s.log.Debug("retrying page", "page", page, "attempt", attempt, "wait", wait, "error", err)
		if err := s.sleep(ctx, wait); err != nil {
			return listingResponse{}, err
		}
	}
	return listingResponse{}, fmt.Errorf("giving up after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *DevpostScraper) fetchPage(ctx context.Context, page int) (listingResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	u, err := url.Parse(s.base)
	if err != nil {
		return listingResponse{}, err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return listingResponse{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return listingResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return listingResponse{}, &StatusError{Page: page, Code: resp.StatusCode}
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload listingResponse
	if err := decoder.Decode(&payload); err != nil {
		return listingResponse{}, fmt.Errorf("page %d: %w: %v", page, ErrMalformedPage, err)
	}
	if payload.Hackathons == nil {
		return listingResponse{}, fmt.Errorf("page %d: %w: no hackathons list", page, ErrMalformedPage)
	}
	return payload, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
