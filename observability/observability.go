// Package observability initializes OpenTelemetry tracing and metrics for
// the daemon: OTLP HTTP exporters, a shared service resource, and a single
// shutdown hook. Packages record spans and instruments through the otel
// global API; this package owns provider lifecycle only.
package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/speakerkit/logger"
)

// Config configures tracing and metrics export.
type Config struct {
	// ServiceName identifies the service in exported telemetry.
	ServiceName string
	// ServiceVersion is the running build version.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g. "localhost:4318").
	Endpoint string
	// Insecure allows plain-HTTP export, for development.
	Insecure bool
	// SampleRate is the trace sampling rate in [0, 1].
	SampleRate float64
	// MetricInterval is the metric export interval.
	MetricInterval time.Duration
}

// DefaultConfig returns development defaults for the given service.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1.0,
		MetricInterval: 15 * time.Second,
	}
}

// Provider owns the initialized tracer and meter providers.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Init sets up the global tracer and meter providers. The returned
// Provider must be shut down on exit to flush pending telemetry.
func Init(ctx context.Context, cfg Config, log *logger.Logger) (*Provider, error) {
	tp, err := initTracer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mp, err := initMeter(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	log.Info("observability initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return &Provider{tp: tp, mp: mp}, nil
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	return errors.Join(p.tp.Shutdown(ctx), p.mp.Shutdown(ctx))
}
