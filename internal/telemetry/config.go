package telemetry

// Config configures the OpenTelemetry tracer provider, decoded from
// internal/config's TelemetryConfig section.
type Config struct {
	// Enabled turns on the OTLP/gRPC exporter. When false, Tracer returns a
	// no-op tracer and every span-producing call is a cheap no-op.
	Enabled bool

	// ServiceName/ServiceVersion identify this process in the trace backend.
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP/gRPC collector address, e.g. "localhost:4317".
	Endpoint string

	// Insecure disables TLS on the OTLP connection (local collector setups).
	Insecure bool

	// SampleRate is the trace sampling ratio, 0.0-1.0.
	SampleRate float64
}

// DefaultConfig returns telemetry disabled, matching the teacher's
// zero-config-is-safe default.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "restatevm",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
