// Package config provides configuration management for the automations
// service.
package config

import (
	"fmt"
	"time"
)

// IngestAPIConfig holds configuration for the HTTP ingestion service.
type IngestAPIConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// DefaultIngestAPIConfig returns configuration with default values.
func DefaultIngestAPIConfig() *IngestAPIConfig {
	return &IngestAPIConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		RequestTimeout: 15 * time.Second,
		MaxBodyBytes:   1 << 20,
	}
}

// Validate checks port range and positive limits.
func (cfg *IngestAPIConfig) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", cfg.MaxBodyBytes)
	}
	return nil
}
