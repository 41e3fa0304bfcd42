package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hackstats/internal/app"
	"hackstats/internal/config"
	"hackstats/internal/logger"
	"hackstats/internal/services/fetching"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scraper := app.NewDevpostScraper(&cfg, &http.Client{}, slog.Default())
	service := fetching.NewService(scraper, cfg.OutputCSV)

	report, err := service.RunOnce(ctx)
	if err != nil {
		slog.Error("fetch failed", "error", err)
		os.Exit(1)
	}
	slog.Info("saved hackathons", "count", report.Fetched, "path", report.OutputPath)
}
