package logging

import (
	"log/slog"
	"os"
	"strings"
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewJSONLogger builds the process-wide structured logger. Every line carries
// a "service" attribute so api, worker and demo logs stay distinguishable
// when aggregated. Unknown level names fall back to info.
func NewJSONLogger(service, level string) *slog.Logger {
	minLevel, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		minLevel = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: minLevel})
	return slog.New(handler).With(slog.String("service", service))
}
