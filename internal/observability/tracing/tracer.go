package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName names the tracer and the service in spans.
const ServiceName = "teamhub"

// GetTracer returns the service tracer from the current global provider.
// It is looked up on every call so a provider installed by Init, or swapped
// in a test, takes effect immediately.
func GetTracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// Init installs a global tracer provider and the W3C trace context
// propagator. The returned function flushes and shuts the provider down.
func Init(opts ...sdktrace.TracerProviderOption) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}
