// Package obstrace provides OpenTelemetry tracer/meter provider lifecycle
// for the engine. It follows the degrade-gracefully shape of contextd's
// telemetry package: provider setup failures never abort startup, they
// just fall back to the global no-op providers.
package obstrace

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Config controls provider construction. ServiceName/Version populate the
// OTel resource; Enabled=false returns a Telemetry that hands out no-op
// tracers/meters via the global providers.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
}

// Telemetry owns the tracer and meter providers for the process lifetime.
type Telemetry struct {
	config         Config
	tracerProvider *trace.TracerProvider
	meterProvider  *metric.MeterProvider
}

// New builds tracer/meter providers writing to stdout, installs them as
// the global OTel providers, and returns a Telemetry handle for shutdown.
// A disabled config, or any provider construction error, yields a
// Telemetry that degrades to the no-op global providers rather than
// failing startup.
func New(ctx context.Context, cfg Config) (*Telemetry, error) {
	t := &Telemetry{config: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return t, fmt.Errorf("obstrace: building resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithoutTimestamps())
	if err != nil {
		return t, fmt.Errorf("obstrace: building trace exporter: %w", err)
	}
	tp := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)
	t.tracerProvider = tp
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return t, fmt.Errorf("obstrace: building metric exporter: %w", err)
	}
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter)),
	)
	t.meterProvider = mp
	otel.SetMeterProvider(mp)

	return t, nil
}

// Tracer returns a tracer for name, falling back to the global (possibly
// no-op) provider if this Telemetry never initialized one.
func (t *Telemetry) Tracer(name string) oteltrace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return t.tracerProvider.Tracer(name)
}

// Shutdown flushes and stops both providers, joining any errors.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
