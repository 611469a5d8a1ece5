package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Engine.ConfidenceThreshold == 0 {
		cfg.Engine.ConfidenceThreshold = 0.75
	}
	if cfg.Engine.BatchGroupSize == 0 {
		cfg.Engine.BatchGroupSize = 5
	}
	if cfg.Engine.BatchGroupPause == 0 {
		cfg.Engine.BatchGroupPause = 2 * time.Second
	}

	// The simple single-provider setup needs no config file entry at all:
	// CLASSIFIER_PROVIDER_URL alone is enough.
	if len(cfg.Providers) == 0 {
		if p, ok := providerFromEnv(); ok {
			cfg.Providers = []ProviderConfig{p}
		}
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.WireFormat == "" {
			p.WireFormat = WireFormatOpenAI
		}
		if p.EndpointPath == "" {
			switch p.WireFormat {
			case WireFormatNative:
				p.EndpointPath = "/api/generate"
			default:
				p.EndpointPath = "/v1/chat/completions"
			}
		}
		if p.Temperature == 0 {
			p.Temperature = 0.3
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = 500
		}
		if p.TimeoutMs == 0 {
			p.TimeoutMs = 10000
		}
	}
}

// providerFromEnv builds a single provider from CLASSIFIER_PROVIDER_* vars.
func providerFromEnv() (ProviderConfig, bool) {
	baseURL := os.Getenv("CLASSIFIER_PROVIDER_URL")
	if baseURL == "" {
		return ProviderConfig{}, false
	}

	p := ProviderConfig{
		Name:       "default",
		BaseURL:    baseURL,
		Model:      os.Getenv("CLASSIFIER_PROVIDER_MODEL"),
		APIKey:     os.Getenv("CLASSIFIER_PROVIDER_API_KEY"),
		WireFormat: WireFormat(os.Getenv("CLASSIFIER_PROVIDER_WIRE_FORMAT")),
		Enabled:    true,
	}
	if name := os.Getenv("CLASSIFIER_PROVIDER_NAME"); name != "" {
		p.Name = name
	}
	if p.Model == "" {
		p.Model = "gpt-4o-mini"
	}
	if timeout := os.Getenv("CLASSIFIER_PROVIDER_TIMEOUT_MS"); timeout != "" {
		if ms, err := strconv.Atoi(timeout); err == nil {
			p.TimeoutMs = ms
		}
	}
	return p, true
}
