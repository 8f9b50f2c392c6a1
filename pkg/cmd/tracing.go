package cmd

import (
	"context"
	"log/slog"

	"github.com/dukex/nbctl/pkg/otelhelper"
)

// SetupTracing installs the OTLP exporter when enabled. The returned
// function flushes pending spans and is safe to call when tracing is off.
func SetupTracing(ctx context.Context, enabled bool, serviceName string, logger *slog.Logger) func(context.Context) {
	if !enabled {
		return func(context.Context) {}
	}

	shutdown, err := otelhelper.Install(ctx, serviceName)
	if err != nil {
		logger.WarnContext(ctx, "failed to install tracing, continuing without it", "error", err)

		return func(context.Context) {}
	}

	return func(ctx context.Context) {
		if err := shutdown(ctx); err != nil {
			logger.WarnContext(ctx, "failed to flush traces", "error", err)
		}
	}
}
