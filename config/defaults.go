package config

import "time"

// DefaultConfig returns the gateway's default configuration, matching
// spec.md's environment-variable defaults where one is named.
func DefaultConfig() *Config {
	return &Config{
		Arbitrage: DefaultArbitrageConfig(),
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultArbitrageConfig returns the Health Tracker's and retry loop's
// defaults from spec §4.B/§4.E.
func DefaultArbitrageConfig() ArbitrageConfig {
	return ArbitrageConfig{
		FallbackModel:    "azure/gpt-4o",
		MaxAttempts:      3,
		FailureWindow:    60 * time.Second,
		FailureThreshold: 3,
		Cooldown:         300 * time.Second,
	}
}

// DefaultServerConfig returns the metrics listener's default port.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MetricsPort:     9091,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultLogConfig returns a sensible production logging default.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}

// DefaultTelemetryConfig returns telemetry disabled by default.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "coreason-arbitrage",
		SampleRate:   0.1,
	}
}
