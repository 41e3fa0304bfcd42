package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hackstats/internal/app"
	"hackstats/internal/config"
	"hackstats/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Env)

	ctx := context.Background()
	builder := app.NewBuilder(&cfg, app.WithLogger(slog.Default()))
	application, err := builder.Build(ctx)
	if err != nil {
		slog.Error("app build error", "error", err)
		os.Exit(1)
	}

	serveErrs, err := application.Start()
	if err != nil {
		slog.Error("app start error", "error", err)
		os.Exit(1)
	}

	waitForShutdown(application, serveErrs)
}

func waitForShutdown(application *app.App, serveErrs <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		slog.Info("shutdown signal received")
	case err, ok := <-serveErrs:
		if ok && err != nil {
			slog.Error("http server error", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
}
