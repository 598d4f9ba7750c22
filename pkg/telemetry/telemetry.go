// Package telemetry wires blastdb's observability: an OpenTelemetry meter
// exported through Prometheus (the buffer pool registers its instruments
// on it) and a tracer the CLI uses to span REPL commands. The /metrics
// endpoint runs on its own http.Server so Shutdown can stop it cleanly.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/blastdb/blastdb/core/storage/page"
)

// Config holds the telemetry configuration.
type Config struct {
	// Enabled toggles telemetry; when off, Start returns no-op providers.
	Enabled bool `yaml:"enabled"`
	// ListenAddr is the address of the /metrics endpoint, e.g. ":9464".
	ListenAddr string `yaml:"listen_addr"`
}

const defaultListenAddr = ":9464"

// Telemetry is the running observability stack. Meter and Tracer are
// always usable; with telemetry disabled they are no-ops and Shutdown does
// nothing.
type Telemetry struct {
	Meter  metric.Meter
	Tracer trace.Tracer

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	server         *http.Server
}

// Start brings up the meter, tracer, and metrics endpoint. Call Shutdown
// when the process exits.
func Start(config Config) (*Telemetry, error) {
	if !config.Enabled {
		return &Telemetry{
			Meter:  metricnoop.NewMeterProvider().Meter(""),
			Tracer: tracenoop.NewTracerProvider().Tracer(""),
		}, nil
	}

	// The storage geometry is fixed at build time, so it rides along as a
	// resource attribute rather than a per-measurement label.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("blastdb"),
			attribute.Int("blastdb.page_size", page.PageSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)
	otel.SetTracerProvider(tracerProvider)

	addr := config.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			otel.Handle(fmt.Errorf("metrics http server failed: %w", err))
		}
	}()

	return &Telemetry{
		Meter:          meterProvider.Meter("blastdb"),
		Tracer:         tracerProvider.Tracer("blastdb"),
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		server:         server,
	}, nil
}

// Shutdown stops the metrics endpoint and flushes both providers, keeping
// the first error encountered.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var firstErr error
	if err := t.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("failed to stop metrics server: %w", err)
	}
	if err := t.tracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return firstErr
}
