// Package telemetry installs the global OpenTelemetry tracer and meter
// providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName identifies this process in exported telemetry.
const ServiceName = "contest-bot"

// Exporter names accepted by Setup.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// ProtocolGRPC selects OTLP over gRPC; anything else uses OTLP over HTTP.
const ProtocolGRPC = "grpc"

const metricInterval = 30 * time.Second

// ShutdownFunc flushes and stops the providers.
type ShutdownFunc func(context.Context) error

// Setup installs global providers for exporter and returns their shutdown
// function. With ExporterNone the tracer provider is a no-op and nothing is
// exported.
func Setup(ctx context.Context, exporter, protocol, version string) (ShutdownFunc, error) {
	if exporter == ExporterNone || exporter == "" {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	spanExporter, metricExporter, err := newExporters(ctx, exporter, protocol)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newExporters(ctx context.Context, exporter, protocol string) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	switch exporter {
	case ExporterStdout:
		spans, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		metrics, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		return spans, metrics, nil

	case ExporterOTLP:
		if protocol == ProtocolGRPC {
			spans, err := otlptracegrpc.New(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create otlp grpc trace exporter: %w", err)
			}
			metrics, err := otlpmetricgrpc.New(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create otlp grpc metric exporter: %w", err)
			}
			return spans, metrics, nil
		}
		spans, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp http trace exporter: %w", err)
		}
		metrics, err := otlpmetrichttp.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp http metric exporter: %w", err)
		}
		return spans, metrics, nil

	default:
		return nil, nil, fmt.Errorf("unknown exporter %q", exporter)
	}
}
