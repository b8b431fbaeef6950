package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production always emits JSON so
// log shippers can parse posting events; elsewhere LOG_FORMAT decides,
// defaulting to the text handler for readable local output. Source
// locations are attached in both shapes.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
