package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"hackstats/internal/config"
	"hackstats/internal/model"
	"hackstats/internal/providers/devpost"
)

type memRepo struct{}

func (memRepo) CreateIfNotExists(context.Context, model.Hackathon) (bool, error) { return true, nil }

type nopNotifier struct{}

func (nopNotifier) SendAlert(model.Hackathon) {}

func TestBuild_WiresServices(t *testing.T) {
	cfg := &config.Config{
		OutputCSV:        "out.csv",
		HTTPPort:         "0",
		CronSpec:         "@hourly",
		FetchConcurrency: 2,
		FetchMaxRetries:  1,
	}
	application, err := NewBuilder(cfg,
		WithRepository(memRepo{}),
		WithNotifier(nopNotifier{}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if application.Pool != nil {
		t.Fatalf("no pool expected when a repository is injected")
	}
	if _, ok := application.Scraper.(*devpost.DevpostScraper); !ok {
		t.Fatalf("default scraper = %T", application.Scraper)
	}

	rec := httptest.NewRecorder()
	application.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestBuild_RequiresConfig(t *testing.T) {
	if _, err := NewBuilder(nil).Build(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

type recordingNotifier struct {
	closed atomic.Bool
}

func (n *recordingNotifier) SendAlert(model.Hackathon) {}

func (n *recordingNotifier) Close(context.Context) error {
	n.closed.Store(true)
	return nil
}

// stuckScraper ignores cancellation until release is closed.
type stuckScraper struct {
	started chan struct{}
	release chan struct{}
}

func (s *stuckScraper) Source() string { return "stuck" }

func (s *stuckScraper) Scrape(context.Context) (model.FetchResult, error) {
	close(s.started)
	<-s.release
	return model.FetchResult{}, nil
}

func TestShutdown_FinishesCleanupAfterError(t *testing.T) {
	notifier := &recordingNotifier{}
	scraper := &stuckScraper{started: make(chan struct{}), release: make(chan struct{})}
	cfg := &config.Config{OutputCSV: filepath.Join(t.TempDir(), "out.csv"), HTTPPort: "0", CronSpec: "@hourly"}

	application, err := NewBuilder(cfg,
		WithRepository(memRepo{}),
		WithNotifier(notifier),
		WithScraper(scraper),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := application.Scheduler.Start(); err != nil {
		t.Fatalf("scheduler: %v", err)
	}

	go application.FetchService.Run(context.Background())
	<-scraper.started
	defer close(scraper.release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = application.Shutdown(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown err = %v, want deadline exceeded from the stuck run", err)
	}
	if !notifier.closed.Load() {
		t.Fatalf("notifier was not drained after the fetch service error")
	}
}
