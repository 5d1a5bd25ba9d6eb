package main

import (
	"io"
	"log/slog"
)

// setupLogging installs the process-wide logger.  --debug adds per-page detail.
func setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).With("app", "site-mirror"))
}
