// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

// LLMDashConfig is the root configuration for the CLI and the
// dashboard service. Loaded from ~/.llmdash/llmdash.yaml.
type LLMDashConfig struct {
	// Daemon: where the Ollama daemon lives
	Daemon DaemonConfig `yaml:"daemon"`

	// Cache: inventory snapshot freshness and disk accounting
	Cache CacheConfig `yaml:"cache"`

	// Dashboard: the HTTP service surface
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Logging: shared log settings for all components
	Logging LoggingConfig `yaml:"logging"`
}

type DaemonConfig struct {
	// BaseURL of the Ollama daemon. The OLLAMA_HOST environment
	// variable overrides this value when set.
	BaseURL string `yaml:"base_url" validate:"required,url"`
}

type CacheConfig struct {
	// TTLSeconds is how long a snapshot stays fresh. e.g. 60
	TTLSeconds int `yaml:"ttl_seconds" validate:"gte=1,lte=3600"`

	// DiskPath is the filesystem whose usage is reported. e.g. "/"
	DiskPath string `yaml:"disk_path" validate:"required"`
}

type DashboardConfig struct {
	// Port the dashboard service listens on. e.g. 12230
	Port int `yaml:"port" validate:"gte=1,lte=65535"`

	// OTLPEndpoint receives traces when set. e.g. "localhost:4317"
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

type LoggingConfig struct {
	// Level: "debug", "info", "warn", or "error"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir enables file logging when set. e.g. "~/.llmdash/logs"
	Dir string `yaml:"dir,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() LLMDashConfig {
	return LLMDashConfig{
		Daemon: DaemonConfig{
			BaseURL: "http://localhost:11434",
		},
		Cache: CacheConfig{
			TTLSeconds: 60,
			DiskPath:   "/",
		},
		Dashboard: DashboardConfig{
			Port: 12230,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
