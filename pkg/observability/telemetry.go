package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// Config holds observability configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLP Trace Exporter
	OTLPEndpoint string // e.g., "localhost:4318" for OTLP HTTP
	OTLPInsecure bool

	// Sampling
	SamplingRate float64 // 0.0 to 1.0, default 1.0 (sample all)
}

// Provider holds the OpenTelemetry providers.
type Provider struct {
	TracerProvider     *trace.TracerProvider
	MeterProvider      *metric.MeterProvider
	PrometheusExporter *prometheus.Exporter
}

// InitTelemetry initializes OpenTelemetry tracing and metrics.
func InitTelemetry(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"", // empty schema URL inherits from Default()
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentName(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tracerProvider, err := initTracing(ctx, res, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}

	meterProvider, promExporter, err := initMetrics(res)
	if err != nil {
		return nil, fmt.Errorf("initialize metrics: %w", err)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	// W3C Trace Context propagation
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		TracerProvider:     tracerProvider,
		MeterProvider:      meterProvider,
		PrometheusExporter: promExporter,
	}, nil
}

func initTracing(ctx context.Context, res *resource.Resource, cfg Config) (*trace.TracerProvider, error) {
	samplingRate := cfg.SamplingRate
	if samplingRate == 0 {
		samplingRate = 1.0
	}

	var exporter trace.SpanExporter
	var err error

	// Only configure the OTLP exporter when an endpoint is provided.
	if cfg.OTLPEndpoint != "" {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}

		exporter, err = otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create OTLP exporter: %w", err)
		}
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(samplingRate)),
	)
	if exporter != nil {
		tp.RegisterSpanProcessor(trace.NewBatchSpanProcessor(exporter))
	}
	return tp, nil
}

func initMetrics(res *resource.Resource) (*metric.MeterProvider, *prometheus.Exporter, error) {
	promExporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("create Prometheus exporter: %w", err)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(promExporter),
	)
	return meterProvider, promExporter, nil
}

// Shutdown gracefully shuts down the telemetry providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.TracerProvider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	if err := p.MeterProvider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}
