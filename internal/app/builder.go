package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hackstats/internal/config"
	"hackstats/internal/db"
	"hackstats/internal/httpapi"
	"hackstats/internal/providers/devpost"
	"hackstats/internal/repositories"
	"hackstats/internal/repositories/postgres"
	"hackstats/internal/scheduler"
	"hackstats/internal/services/fetching"
	"hackstats/internal/telegram"
)

type Builder struct {
	cfg          *config.Config
	basePath     string
	ensureSchema bool
	log          *slog.Logger

	pool     *pgxpool.Pool
	repo     repositories.HackathonRepository
	notifier fetching.Notifier
	scraper  fetching.SiteScraper
	client   *http.Client

	scheduler *scheduler.Scheduler
	server    *http.Server
}

type BuilderOption func(*Builder)

func NewBuilder(cfg *config.Config, options ...BuilderOption) *Builder {
	builder := &Builder{
		cfg:          cfg,
		ensureSchema: true,
	}
	for _, option := range options {
		option(builder)
	}
	return builder
}

func WithBasePath(basePath string) BuilderOption {
	return func(b *Builder) {
		b.basePath = basePath
	}
}

func WithEnsureSchema(enabled bool) BuilderOption {
	return func(b *Builder) {
		b.ensureSchema = enabled
	}
}

func WithLogger(log *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.log = log
	}
}

func WithDBPool(pool *pgxpool.Pool) BuilderOption {
	return func(b *Builder) {
		b.pool = pool
	}
}

func WithRepository(repo repositories.HackathonRepository) BuilderOption {
	return func(b *Builder) {
		b.repo = repo
	}
}

func WithNotifier(notifier fetching.Notifier) BuilderOption {
	return func(b *Builder) {
		b.notifier = notifier
	}
}

func WithScraper(scraper fetching.SiteScraper) BuilderOption {
	return func(b *Builder) {
		b.scraper = scraper
	}
}

func WithHTTPClient(client *http.Client) BuilderOption {
	return func(b *Builder) {
		b.client = client
	}
}

func WithScheduler(scheduler *scheduler.Scheduler) BuilderOption {
	return func(b *Builder) {
		b.scheduler = scheduler
	}
}

func WithHTTPServer(server *http.Server) BuilderOption {
	return func(b *Builder) {
		b.server = server
	}
}

// NewDevpostScraper builds the listing scraper from the fetch settings in cfg.
func NewDevpostScraper(cfg *config.Config, client *http.Client, log *slog.Logger) *devpost.DevpostScraper {
	return devpost.NewScraper(client,
		devpost.WithBaseURL(cfg.DevpostURL),
		devpost.WithConcurrency(cfg.FetchConcurrency),
		devpost.WithMaxPages(cfg.FetchMaxPages),
		devpost.WithRetry(cfg.FetchMaxRetries, cfg.FetchBackoff),
		devpost.WithTimeout(cfg.FetchTimeout),
		devpost.WithLogger(log),
	)
}

func (b *Builder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, errors.New("config is required")
	}
	if b.log == nil {
		b.log = slog.Default()
	}

	basePath := b.basePath
	if basePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		basePath = wd
	}

	app := &App{Config: b.cfg, log: b.log}
	if b.repo == nil {
		if b.pool == nil {
			pool, err := db.NewPool(ctx, b.cfg.PostgresDSN())
			if err != nil {
				return nil, err
			}
			b.pool = pool
			app.ownsPool = true
		}
		app.Pool = b.pool

		if b.ensureSchema {
			path, err := filepath.Abs(basePath)
			if err != nil {
				return nil, err
			}
			if err := db.EnsureSchema(ctx, b.pool, path); err != nil {
				return nil, err
			}
		}
		b.repo = postgres.NewHackathonRepository(b.pool)
	}
	app.Repo = b.repo

	if b.notifier == nil {
		b.notifier = telegram.NewSender(b.cfg.TelegramToken, b.cfg.TelegramChat, b.cfg.TelegramThreadID,
			telegram.WithLogger(b.log.With("component", "telegram")))
	}
	app.Notifier = b.notifier

	if b.client == nil {
		b.client = &http.Client{}
	}

	if b.scraper == nil {
		b.scraper = NewDevpostScraper(b.cfg, b.client, b.log)
	}
	app.Scraper = b.scraper

	app.FetchService = fetching.NewService(app.Scraper, b.cfg.OutputCSV,
		fetching.WithArchive(app.Repo),
		fetching.WithNotifier(app.Notifier, b.cfg.PrizeAlertThreshold),
		fetching.WithLogger(b.log),
	)

	if b.scheduler == nil {
		b.scheduler = scheduler.New(b.cfg.CronSpec, app.FetchService, b.log)
	}
	app.Scheduler = b.scheduler

	if b.server == nil {
		handler := httpapi.NewHandler(app.FetchService, b.cfg.OutputCSV, b.log)
		b.server = &http.Server{
			Addr:              ":" + b.cfg.HTTPPort,
			Handler:           handler.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	app.Server = b.server

	return app, nil
}
