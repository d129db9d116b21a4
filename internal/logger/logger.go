// Package logger builds the slog logger used by the command line.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.trai.ch/zerr"
)

// New returns a text logger writing to w, or stderr when w is nil. Verbose
// enables debug records.
func New(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Error logs err with its zerr metadata as structured fields.
func Error(ctx context.Context, logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	zerr.Log(ctx, logger, err)
}
