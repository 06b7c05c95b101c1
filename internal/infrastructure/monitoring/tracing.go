package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/careplane/careplane/internal/config"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/logger"
)

// TracingManager owns the OpenTelemetry tracer provider lifecycle.
type TracingManager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	logger   logger.Logger
}

// NewTracingManager initializes tracing. When disabled it returns a manager
// over the global no-op tracer so callers never branch.
func NewTracingManager(cfg *config.Config, log logger.Logger) (*TracingManager, error) {
	if !cfg.Tracing.Enabled {
		log.Info(context.Background(), "tracing disabled")
		return &TracingManager{
			tracer: otel.Tracer(constants.ServiceName),
			logger: log,
		}, nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(cfg.Tracing.JaegerEndpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.Tracing.ServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(context.Background(), "tracing initialized",
		logger.String("endpoint", cfg.Tracing.JaegerEndpoint),
	)

	return &TracingManager{
		tracer:   provider.Tracer(constants.ServiceName),
		provider: provider,
		logger:   log,
	}, nil
}

// Tracer returns the service tracer.
func (t *TracingManager) Tracer() trace.Tracer { return t.tracer }

// Shutdown flushes pending spans.
func (t *TracingManager) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
