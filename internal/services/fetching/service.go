package fetching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hackstats/internal/dataset"
	"hackstats/internal/model"
)

var (
	ErrAlreadyRunning = errors.New("fetch already running")
	ErrNothingFetched = errors.New("no hackathons fetched")
	ErrShuttingDown   = errors.New("fetch service shutting down")
)

// Report summarises one fetch run.
type Report struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Pages       int       `json:"pages"`
	FailedPages []int     `json:"failed_pages"`
	Fetched     int       `json:"fetched"`
	Duplicates  int       `json:"duplicates"`
	Archived    int       `json:"archived"`
	Alerts      int       `json:"alerts"`
	OutputPath  string    `json:"output_path"`
}

type Service struct {
	scraper    SiteScraper
	outputPath string

	archive        Archive
	notifier       Notifier
	alertThreshold int64
	log            *slog.Logger

	// base is cancelled by Shutdown; every run's context is tied to it.
	base     context.Context
	stopRuns context.CancelFunc
	inflight sync.WaitGroup

	mu       sync.Mutex
	running  bool
	stopping bool
	last     *Report
}

type Option func(*Service)

func WithArchive(archive Archive) Option {
	return func(s *Service) {
		s.archive = archive
	}
}

// WithNotifier enables alerts for newly archived open hackathons whose prize
// is at least threshold dollars.
func WithNotifier(notifier Notifier, threshold int64) Option {
	return func(s *Service) {
		s.notifier = notifier
		s.alertThreshold = threshold
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

func NewService(scraper SiteScraper, outputPath string, options ...Option) *Service {
	s := &Service{scraper: scraper, outputPath: outputPath, log: slog.Default()}
	s.base, s.stopRuns = context.WithCancel(context.Background())
	for _, option := range options {
		option(s)
	}
	return s
}

// Run is the fire-and-forget entry used by the scheduler and HTTP trigger.
func (s *Service) Run(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyRunning):
			s.log.Info("fetch already running; skipping")
			return
		case errors.Is(err, ErrShuttingDown):
			s.log.Info("fetch service shutting down; skipping")
			return
		}
		s.log.Error("fetch error", "error", err)
	}
}

// RunOnce fetches every listing page, rewrites the CSV and feeds new records
// to the archive and notifier when they are configured.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return Report{}, ErrShuttingDown
	}
	if s.running {
		s.mu.Unlock()
		return Report{}, ErrAlreadyRunning
	}
	s.running = true
	s.inflight.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.inflight.Done()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.base, cancel)
	defer stop()

	report, err := s.fetch(ctx)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
	return report, nil
}

// Shutdown refuses new runs, cancels the one in flight and waits for it to
// return or for ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
	s.stopRuns()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastReport returns the most recent successful run, if any.
func (s *Service) LastReport() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Report{}, false
	}
	return *s.last, true
}

func (s *Service) fetch(ctx context.Context) (Report, error) {
	report := Report{
		RunID:      uuid.NewString(),
		Source:     s.scraper.Source(),
		StartedAt:  time.Now(),
		OutputPath: s.outputPath,
	}
	log := s.log.With("source", report.Source, "run_id", report.RunID)
	log.Info("fetch started")

	result, err := s.scraper.Scrape(ctx)
	if err != nil {
		return report, fmt.Errorf("scrape %s: %w", report.Source, err)
	}
	report.Pages = result.TotalPages
	report.FailedPages = result.FailedPages
	report.Fetched = len(result.Hackathons)
	report.Duplicates = result.Duplicates

	if len(result.Hackathons) == 0 {
		return report, ErrNothingFetched
	}

	if err := dataset.Write(s.outputPath, result.Hackathons); err != nil {
		return report, fmt.Errorf("write %s: %w", s.outputPath, err)
	}
	log.Info("dataset written", "path", s.outputPath, "hackathons", report.Fetched)

	if s.archive != nil {
		report.Archived, report.Alerts = s.archiveNew(ctx, log, result.Hackathons)
	}

	report.FinishedAt = time.Now()
	log.Info("summary",
		"fetched", report.Fetched,
		"duplicates", report.Duplicates,
		"failed_pages", len(report.FailedPages),
		"archived", report.Archived,
		"alerts", report.Alerts,
		"elapsed", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	return report, nil
}

func (s *Service) archiveNew(ctx context.Context, log *slog.Logger, hackathons []model.Hackathon) (archived, alerts int) {
	for i, h := range hackathons {
		if ctx.Err() != nil {
			log.Warn("archiving interrupted", "remaining", len(hackathons)-i)
			break
		}
		created, err := s.archive.CreateIfNotExists(ctx, h)
		if err != nil {
			log.Error("archive insert failed", "id", h.ID, "error", err)
			continue
		}
		if !created {
			continue
		}
		archived++

		if s.shouldAlert(h) {
			s.notifier.SendAlert(h)
			alerts++
		}
	}
	return archived, alerts
}

func (s *Service) shouldAlert(h model.Hackathon) bool {
	return s.notifier != nil && h.IsOpen() && h.PrizeValue() >= s.alertThreshold
}
