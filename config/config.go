// Package config loads the gateway's configuration: default values,
// overridden by an optional YAML file, overridden in turn by environment
// variables. Grounded on the teacher's config.Loader
// (agentflow/config/loader.go) for the reflection-driven env-override
// mechanism and on config.Config/DefaultConfig
// (agentflow/config/loader.go, agentflow/config/defaults.go) for the nested
// section shape.
package config

import (
	"time"

	"github.com/CoReason-AI/coreason-arbitrage/model"
)

// Config is the gateway's complete configuration.
type Config struct {
	Arbitrage ArbitrageConfig `yaml:"arbitrage" env:"ARBITRAGE"`
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ArbitrageConfig holds the core gateway's tunables: the retry loop depth,
// the fallback model, and the Health Tracker's window/threshold/cooldown.
type ArbitrageConfig struct {
	FallbackModel    string        `yaml:"fallback_model" env:"FALLBACK_MODEL"`
	MaxAttempts      int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	FailureWindow    time.Duration `yaml:"failure_window" env:"FAILURE_WINDOW"`
	FailureThreshold int           `yaml:"failure_threshold" env:"FAILURE_THRESHOLD"`
	Cooldown         time.Duration `yaml:"cooldown" env:"COOLDOWN"`
	Models           []ModelConfig `yaml:"models" env:"-"`
}

// ModelConfig is one statically-configured model.Definition.
type ModelConfig struct {
	ID              string  `yaml:"id"`
	Provider        string  `yaml:"provider"`
	Tier            string  `yaml:"tier"`
	CostPer1kInput  float64 `yaml:"cost_per_1k_input"`
	CostPer1kOutput float64 `yaml:"cost_per_1k_output"`
	Domain          string  `yaml:"domain"`
}

// ToDefinition converts a ModelConfig into a model.Definition, marking it
// healthy by default. Unknown tier strings fall back to TierFast.
func (m ModelConfig) ToDefinition() model.Definition {
	return model.Definition{
		ID:              m.ID,
		Provider:        m.Provider,
		Tier:            parseTier(m.Tier),
		CostPer1kInput:  m.CostPer1kInput,
		CostPer1kOutput: m.CostPer1kOutput,
		IsHealthy:       true,
		Domain:          m.Domain,
	}
}

func parseTier(s string) model.Tier {
	switch s {
	case "smart":
		return model.TierSmart
	case "reasoning":
		return model.TierReasoning
	default:
		return model.TierFast
	}
}

// ServerConfig configures the HTTP listener the cmd/gateway entrypoint
// opens for /metrics, /health and /v1/chat/completions. The core packages
// never open a listener themselves.
type ServerConfig struct {
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LogConfig configures the zap logger shared by every component.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// TelemetryConfig configures the optional OTel exporters.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}
