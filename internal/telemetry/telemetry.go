// Package telemetry wires OpenTelemetry metrics and tracing.  When a signal
// is disabled the global no-op provider stays in place, so instruments and
// spans created elsewhere cost nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/travelhub/busticket/internal/config"
)

// Version is reported as service.version.
var Version = "dev"

// Init installs the enabled providers and returns a shutdown func that
// flushes them.  Exporter failures are logged and leave the signal off.
func Init(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}
	if !cfg.MetricsEnabled && !cfg.TracingEnabled {
		slog.Debug("OpenTelemetry disabled")
		return shutdown, nil
	}

	host, path, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return shutdown, err
	}
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return shutdown, fmt.Errorf("otel resource: %w", err)
	}

	if cfg.MetricsEnabled {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(host)}
		if path != "" {
			opts = append(opts, otlpmetrichttp.WithURLPath(path+"/v1/metrics"))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			slog.Warn("otlp metric exporter unavailable", "error", err)
		} else {
			mp := sdkmetric.NewMeterProvider(
				sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.ExportInterval))),
				sdkmetric.WithResource(res),
			)
			otel.SetMeterProvider(mp)
			shutdowns = append(shutdowns, mp.Shutdown)
		}
	}

	if cfg.TracingEnabled {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(host)}
		if path != "" {
			opts = append(opts, otlptracehttp.WithURLPath(path+"/v1/traces"))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			slog.Warn("otlp trace exporter unavailable", "error", err)
		} else {
			tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
			otel.SetTracerProvider(tp)
			otel.SetTextMapPropagator(propagation.TraceContext{})
			shutdowns = append(shutdowns, tp.Shutdown)
		}
	}

	slog.Info("OpenTelemetry initialized", "endpoint", cfg.Endpoint,
		"metrics", cfg.MetricsEnabled, "tracing", cfg.TracingEnabled)
	return shutdown, nil
}

// splitEndpoint turns http://host:4318/prefix into ("host:4318", "/prefix").
func splitEndpoint(endpoint string) (string, string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", fmt.Errorf("invalid OTLP endpoint: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	path := u.Path
	for len(path) > 0 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return u.Host, path, nil
}
