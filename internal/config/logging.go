package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (expected debug|info|warn|error)", s)
	}
}

// NewLogger returns a text logger on w. "off" discards everything.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	if strings.EqualFold(strings.TrimSpace(level), "off") {
		return slog.New(slog.DiscardHandler), nil
	}
	lv, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})), nil
}
