package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs the process-wide slog handler: JSON at info level for
// production, text at debug level everywhere else.
func Setup(env string) {
	slog.SetDefault(New(env, os.Stdout))
}

func New(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler

	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	return slog.New(handler)
}
