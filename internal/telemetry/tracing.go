package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "uiflow"

// TracerProvider wraps the process-wide OpenTelemetry SDK provider so
// cmd/server can shut it down cleanly on exit.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewNoopTracerProvider installs the SDK's default no-op behavior: spans
// are created but never exported. This is the default posture described
// in the domain-stack notes; enabling stdouttrace is opt-in.
func NewNoopTracerProvider() *TracerProvider {
	provider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(provider)
	return &TracerProvider{provider: provider}
}

// NewStdoutTracerProvider installs a tracer provider that prints spans
// to stdout, for local debugging of a request's span tree (one span per
// request, one child span per test case).
func NewStdoutTracerProvider(ctx context.Context) (*TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: create stdout trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	return &TracerProvider{provider: provider}, nil
}

// Shutdown flushes and stops the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}
