// Package observability wires logging, tracing and metrics from the
// application config.
package observability

import (
	"github.com/smallbiznis/bizadmin/internal/config"
	"github.com/smallbiznis/bizadmin/internal/observability/logger"
	"github.com/smallbiznis/bizadmin/internal/observability/metrics"
	"github.com/smallbiznis/bizadmin/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		loggerConfig,
		logger.New,
		tracingConfig,
		tracing.NewProvider,
		metricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// The tracer provider has no consumers by type; force its construction
	// so the global provider and propagator are installed.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func loggerConfig(cfg config.Config) logger.Config {
	return logger.Config{
		Service:     cfg.AppName,
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.IsDevelopment() && !cfg.IsProduction(),
	}
}

func tracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:       cfg.Telemetry.Enabled,
		Service:       cfg.AppName,
		Version:       cfg.AppVersion,
		Environment:   cfg.Environment,
		Endpoint:      cfg.Telemetry.Endpoint,
		Protocol:      cfg.Telemetry.Protocol,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
	}
}

func metricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.AppName,
	}
}
