package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env string

	DevpostURL       string
	FetchMaxPages    int
	FetchConcurrency int
	FetchMaxRetries  int
	FetchBackoff     time.Duration
	FetchTimeout     time.Duration

	OutputCSV string
	ChartsDir string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	TelegramToken    string
	TelegramChat     string
	TelegramThreadID *int

	PrizeAlertThreshold int64

	HTTPPort string
	CronSpec string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:              envOrDefault("ENV", "development"),
		DevpostURL:       envOrDefault("DEVPOST_API_URL", "https://devpost.com/api/hackathons"),
		OutputCSV:        envOrDefault("OUTPUT_CSV", "devpost_hackathons.csv"),
		ChartsDir:        envOrDefault("CHARTS_DIR", "charts"),
		DBHost:           envOrDefault("DB_HOST", "localhost"),
		DBPort:           envOrDefault("DB_PORT", "5432"),
		DBUser:           envOrDefault("DB_USERNAME", "postgres"),
		DBPassword:       envOrDefault("DB_PASSWORD", "postgres"),
		DBName:           envOrDefault("DB_DATABASE", "hackstats"),
		DBSSLMode:        envOrDefault("DB_SSLMODE", "disable"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChat:     os.Getenv("TELEGRAM_CHAT_ID"),
		TelegramThreadID: nil,
		HTTPPort:         envOrDefault("HTTP_PORT", "3000"),
		CronSpec:         envOrDefault("FETCH_CRON", "0 */6 * * *"),
	}

	var err error
	if cfg.FetchMaxPages, err = envOrInt("FETCH_MAX_PAGES", 0); err != nil {
		return cfg, err
	}
	if cfg.FetchConcurrency, err = envOrInt("FETCH_CONCURRENCY", 10); err != nil {
		return cfg, err
	}
	if cfg.FetchMaxRetries, err = envOrInt("FETCH_MAX_RETRIES", 3); err != nil {
		return cfg, err
	}
	if cfg.FetchBackoff, err = envOrDuration("FETCH_RETRY_BACKOFF", time.Second); err != nil {
		return cfg, err
	}
	if cfg.FetchTimeout, err = envOrDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return cfg, err
	}

	threshold, err := envOrInt("PRIZE_ALERT_THRESHOLD", 10000)
	if err != nil {
		return cfg, err
	}
	cfg.PrizeAlertThreshold = int64(threshold)

	threadID, err := envOrIntPtr("TELEGRAM_CHAT_THREAD_ID")
	if err != nil {
		return cfg, err
	}
	cfg.TelegramThreadID = threadID

	if cfg.FetchConcurrency < 1 {
		return cfg, errors.New("FETCH_CONCURRENCY must be at least 1")
	}
	if cfg.FetchMaxRetries < 1 {
		return cfg, errors.New("FETCH_MAX_RETRIES must be at least 1")
	}
	if cfg.FetchMaxPages < 0 {
		return cfg, errors.New("FETCH_MAX_PAGES must not be negative")
	}

	return cfg, nil
}

// ValidateServer checks the settings only the long-running watcher needs.
func (c Config) ValidateServer() error {
	if c.TelegramToken == "" || c.TelegramChat == "" {
		return errors.New("missing TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID")
	}
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		return errors.New("missing database configuration")
	}
	return nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envOrDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envOrIntPtr(key string) (*int, error) {
	val := os.Getenv(key)
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &parsed, nil
}
