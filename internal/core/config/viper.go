package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration with environment > config file > defaults
// precedence. Environment variables use the PLANORA_ prefix with dots
// replaced by underscores (PLANORA_INGEST_API_PORT).
func LoadConfig(configPath string) (*IngestAPIConfig, error) {
	v := viper.New()

	defaults := DefaultIngestAPIConfig()
	v.SetDefault("ingest_api.host", defaults.Host)
	v.SetDefault("ingest_api.port", defaults.Port)
	v.SetDefault("ingest_api.request_timeout", defaults.RequestTimeout.String())
	v.SetDefault("ingest_api.max_body_bytes", defaults.MaxBodyBytes)

	v.SetEnvPrefix("PLANORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &IngestAPIConfig{
		Host:           v.GetString("ingest_api.host"),
		Port:           v.GetInt("ingest_api.port"),
		RequestTimeout: v.GetDuration("ingest_api.request_timeout"),
		MaxBodyBytes:   v.GetInt64("ingest_api.max_body_bytes"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
