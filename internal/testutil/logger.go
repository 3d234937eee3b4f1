package testutil

import (
	"io"
	"log/slog"

	"github.com/eventure/eventure/internal/logger"
)

// Logger returns a logger that discards all output.
func Logger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
