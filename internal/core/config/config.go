package config

import (
	"time"

	redisclient "github.com/vietddude/mailsift/internal/infra/redis"
	"github.com/vietddude/mailsift/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Engine    EngineConfig       `yaml:"engine"`
	Providers []ProviderConfig   `yaml:"providers"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// EngineConfig holds resolution engine settings.
type EngineConfig struct {
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	BatchGroupSize      int           `yaml:"batch_group_size"`
	BatchGroupPause     time.Duration `yaml:"batch_group_pause"`
}

// WireFormat selects the request/response shape an adapter speaks.
type WireFormat string

const (
	WireFormatOpenAI WireFormat = "openai"
	WireFormatNative WireFormat = "native"
)

// ProviderConfig holds settings for a remote classifier endpoint.
type ProviderConfig struct {
	Name         string     `yaml:"name"          mapstructure:"name"`
	BaseURL      string     `yaml:"base_url"      mapstructure:"base_url"`
	Model        string     `yaml:"model"         mapstructure:"model"`
	EndpointPath string     `yaml:"endpoint_path" mapstructure:"endpoint_path"`
	WireFormat   WireFormat `yaml:"wire_format"   mapstructure:"wire_format"`
	APIKey       string     `yaml:"api_key"       mapstructure:"api_key"`
	Temperature  float64    `yaml:"temperature"   mapstructure:"temperature"`
	MaxTokens    int        `yaml:"max_tokens"    mapstructure:"max_tokens"`
	TimeoutMs    int        `yaml:"timeout_ms"    mapstructure:"timeout_ms"`
	Priority     int        `yaml:"priority"      mapstructure:"priority"` // ascending = tried first
	Enabled      bool       `yaml:"enabled"       mapstructure:"enabled"`
	// RequestsPerMinute caps the request rate to this endpoint. 0 = unlimited.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}
