package telemetry

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config configures the tracing subsystem started in wiring step 4.
// Spans recorded by the earlier steps go to the no-op tracer.
type Config struct {
	Enabled bool

	// ServiceName and ServiceVersion identify the binary in the trace backend.
	ServiceName    string
	ServiceVersion string

	// ProcessName and Role are attached to every span's resource so traces
	// from the primary process can be told apart from auxiliary ones.
	ProcessName string
	Role        string

	// Endpoint is the OTLP gRPC collector address, host:port.
	Endpoint string
	Insecure bool

	// SampleRate in [0, 1]. Values outside the range are clamped.
	SampleRate float64

	// FlushTimeout bounds the final export on Stop.
	FlushTimeout time.Duration
}

// DefaultConfig returns tracing disabled, pointed at a local collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "kestrel",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
		FlushTimeout:   5 * time.Second,
	}
}

func (c Config) flushTimeout() time.Duration {
	if c.FlushTimeout <= 0 {
		return 5 * time.Second
	}
	return c.FlushTimeout
}

func (c Config) resourceAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(c.ServiceVersion),
	}
	if c.ProcessName != "" {
		attrs = append(attrs, ProcessName(c.ProcessName))
	}
	if c.Role != "" {
		attrs = append(attrs, Role(c.Role))
	}
	return attrs
}
