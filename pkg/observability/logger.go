// Package observability provides the gateway's structured logger, HTTP middleware
// and Prometheus metrics.
package observability

import (
	"io"
	"log/slog"

	"github.com/nnnkkk7/sqlgateway/pkg/config"
)

// NewLogger builds the service logger. A nil writer discards output.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	var handler slog.Handler
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: cfg.Observability.LogLevel})
	}
	return slog.New(handler).With(slog.String("service", cfg.Service.Name))
}

// NopLogger returns a logger that drops every record.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrNop returns logger, or a discarding logger when it is nil.
func OrNop(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NopLogger()
	}
	return logger
}
