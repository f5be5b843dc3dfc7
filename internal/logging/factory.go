package logging

import (
	"fmt"
	"io"
	"strings"
)

// New builds a Logger for the configured backend ("slog" or "zap"), level
// ("debug", "info", "warn", "error") and format ("json" or "text").
func New(backend, level, format string, w io.Writer) (Logger, error) {
	switch strings.ToLower(backend) {
	case "", "slog":
		return newSlog(level, format, w)
	case "zap":
		return newZap(level, format, w)
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}
