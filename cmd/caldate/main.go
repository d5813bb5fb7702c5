package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "caldate",
		Usage: "Expand recurrence rules across timezones and index dates by calendar week.",
		// Rule lines contain commas.
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to a YAML config file. Created with defaults if missing."},
			&cli.StringFlag{Name: "tz", Usage: "IANA timezone. Overrides the config and CALDATE_TIMEZONE."},
			&cli.StringFlag{Name: "week-start", Usage: "Week numbering: sunday, monday or iso."},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error."},
		},
		Commands: []*cli.Command{
			expandCommand(),
			nextCommand(),
			rangeCommand(),
			occursCommand(),
			weekCommand(),
			monthCommand(),
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
