package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ServiceVersion is reported on every span and metric export
const ServiceVersion = "1.0.0"

// ResourceConfig describes where the service runs. Empty fields are left off
// the resource.
type ResourceConfig struct {
	ServiceName string
	Environment string
	Region      string
	Table       string
}

// NewResource builds the resource shared by the tracer and meter providers
func NewResource(ctx context.Context, rc ResourceConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(rc.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		semconv.CloudProviderAWS,
	}
	if rc.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(rc.Environment))
	}
	if rc.Region != "" {
		attrs = append(attrs, semconv.CloudRegion(rc.Region))
	}
	if rc.Table != "" {
		attrs = append(attrs, semconv.AWSDynamoDBTableNames(rc.Table))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// InitTracer exports spans over OTLP gRPC with parent-based ratio sampling
func InitTracer(ctx context.Context, rc ResourceConfig, endpoint string, samplingRatio float64) (*sdktrace.TracerProvider, error) {
	res, err := NewResource(ctx, rc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(), // collector runs as a sidecar
		otlptracegrpc.WithDialOption(grpc.WithBlock()),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(samplingRatio))),
	)
	otel.SetTracerProvider(tp)

	return tp, nil
}
