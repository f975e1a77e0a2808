package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/mediabridge/mediabridge/internal/utils"
)

var logClosers []func() error

func newConsoleHandler(level slog.Leveler) slog.Handler {
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
}

// setupLogging logs to the console and, with line numbers, to logFile.
func setupLogging(logFile string, level slog.Level) error {
	if err := utils.EnsureParent(logFile); err != nil {
		return err
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	interceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(interceptor, &slog.HandlerOptions{Level: level})

	closeLogging()
	logClosers = append(logClosers, interceptor.Close, file.Close)
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(newConsoleHandler(level), fileHandler)))
	return nil
}

func closeLogging() {
	for _, fn := range logClosers {
		fn()
	}
	logClosers = nil
}
