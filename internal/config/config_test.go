package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"FETCH_MAX_PAGES", "FETCH_CONCURRENCY", "FETCH_MAX_RETRIES", "FETCH_RETRY_BACKOFF", "FETCH_TIMEOUT", "OUTPUT_CSV", "CHARTS_DIR", "TELEGRAM_CHAT_THREAD_ID", "PRIZE_ALERT_THRESHOLD"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FetchConcurrency != 10 || cfg.FetchMaxRetries != 3 || cfg.FetchMaxPages != 0 {
		t.Fatalf("unexpected fetch defaults: %+v", cfg)
	}
	if cfg.FetchBackoff != time.Second || cfg.FetchTimeout != 30*time.Second {
		t.Fatalf("unexpected durations: backoff=%s timeout=%s", cfg.FetchBackoff, cfg.FetchTimeout)
	}
	if cfg.OutputCSV != "devpost_hackathons.csv" || cfg.ChartsDir != "charts" {
		t.Fatalf("unexpected paths: %q %q", cfg.OutputCSV, cfg.ChartsDir)
	}
	if cfg.PrizeAlertThreshold != 10000 {
		t.Fatalf("unexpected threshold: %d", cfg.PrizeAlertThreshold)
	}
	if cfg.TelegramThreadID != nil {
		t.Fatalf("expected nil thread id")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FETCH_MAX_PAGES", "5")
	t.Setenv("FETCH_CONCURRENCY", "2")
	t.Setenv("FETCH_RETRY_BACKOFF", "250ms")
	t.Setenv("TELEGRAM_CHAT_THREAD_ID", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FetchMaxPages != 5 || cfg.FetchConcurrency != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.FetchBackoff != 250*time.Millisecond {
		t.Fatalf("backoff = %s", cfg.FetchBackoff)
	}
	if cfg.TelegramThreadID == nil || *cfg.TelegramThreadID != 42 {
		t.Fatalf("thread id = %v", cfg.TelegramThreadID)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"FETCH_CONCURRENCY":   "many",
		"FETCH_RETRY_BACKOFF": "soon",
		"FETCH_MAX_RETRIES":   "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestValidateServer(t *testing.T) {
	cfg := Config{DBHost: "db", DBUser: "u", DBName: "n"}
	if err := cfg.ValidateServer(); err == nil || !strings.Contains(err.Error(), "TELEGRAM") {
		t.Fatalf("expected telegram error, got %v", err)
	}
	cfg.TelegramToken = "t"
	cfg.TelegramChat = "c"
	if err := cfg.ValidateServer(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "d", DBSSLMode: "disable"}
	if got := cfg.PostgresDSN(); got != "postgres://u:p@h:5432/d?sslmode=disable" {
		t.Fatalf("dsn = %q", got)
	}
}
