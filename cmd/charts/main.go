package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"hackstats/internal/charts"
	"hackstats/internal/config"
	"hackstats/internal/dataset"
	"hackstats/internal/logger"
	"hackstats/internal/report"
	"hackstats/internal/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Env)

	if err := run(cfg, os.Stdout); err != nil {
		slog.Error("chart generation failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, stdout io.Writer) error {
	records, err := dataset.Read(cfg.OutputCSV)
	if err != nil {
		return fmt.Errorf("load %s: %w", cfg.OutputCSV, err)
	}
	slog.Info("dataset loaded", "path", cfg.OutputCSV, "hackathons", len(records))

	paths, err := charts.NewRenderer(cfg.ChartsDir, slog.Default()).Render(stats.Compute(records))
	if err != nil {
		return err
	}
	slog.Info("charts written", "dir", cfg.ChartsDir, "count", len(paths))

	var buf bytes.Buffer
	if err := report.Write(&buf, stats.Summarize(records)); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(cfg.ChartsDir, "summary.txt"), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	_, err = stdout.Write(buf.Bytes())
	return err
}
