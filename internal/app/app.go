package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"hackstats/internal/config"
	"hackstats/internal/repositories"
	"hackstats/internal/scheduler"
	"hackstats/internal/services/fetching"
)

type App struct {
	Config       *config.Config
	Pool         *pgxpool.Pool
	Repo         repositories.HackathonRepository
	Notifier     fetching.Notifier
	Scraper      fetching.SiteScraper
	FetchService *fetching.Service
	Scheduler    *scheduler.Scheduler
	Server       *http.Server

	log      *slog.Logger
	ownsPool bool
}

// drainer is implemented by notifiers that buffer messages.
type drainer interface {
	Close(ctx context.Context) error
}

// Start launches the scheduler and the HTTP server. Listen errors are sent
// on the returned channel.
func (a *App) Start() (<-chan error, error) {
	if err := a.Scheduler.Start(); err != nil {
		return nil, err
	}

	errs := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	return errs, nil
}

// Shutdown stops triggers first, then in-flight fetch runs, then drains the
// notifier and closes the pool. Every step runs even if an earlier one fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.Scheduler.Stop()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.FetchService.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("fetch service: %w", err))
	}
	if d, ok := a.Notifier.(drainer); ok {
		if err := d.Close(ctx); err != nil {
			a.log.Warn("notifier did not drain", "error", err)
		}
	}
	if a.ownsPool {
		a.Pool.Close()
	}
	return errors.Join(errs...)
}
