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

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	// Global is a singleton instance
	Global LLMDashConfig
	once   sync.Once
)

// Load ensures the config is loaded into the Global variable
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

func loadInternal() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not find the user's home directory: %w", err)
	}
	configPath := filepath.Join(home, ".llmdash", "llmdash.yaml")
	// create it if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf(" First run detected, creating the config at %s\n", configPath)
		if err := createDefault(configPath); err != nil {
			return err
		}
	}
	cfg, err := loadFrom(configPath)
	if err != nil {
		return err
	}
	Global = cfg
	return nil
}

// loadFrom reads, overrides, and validates a config file.
func loadFrom(path string) (LLMDashConfig, error) {
	var cfg LLMDashConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse the config file: %w", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults fills in zero-valued fields so a partial config
// file stays usable.
func applyDefaults(cfg *LLMDashConfig) {
	defaults := DefaultConfig()
	if cfg.Daemon.BaseURL == "" {
		cfg.Daemon.BaseURL = defaults.Daemon.BaseURL
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = defaults.Cache.TTLSeconds
	}
	if cfg.Cache.DiskPath == "" {
		cfg.Cache.DiskPath = defaults.Cache.DiskPath
	}
	if cfg.Dashboard.Port == 0 {
		cfg.Dashboard.Port = defaults.Dashboard.Port
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
}

// applyEnvOverrides maps environment variables onto the config.
// OLLAMA_HOST wins over the file so the CLI tracks the same daemon
// as a user's shell session.
func applyEnvOverrides(cfg *LLMDashConfig) {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		// Ollama accepts bare host:port values for OLLAMA_HOST
		if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
			host = "http://" + host
		}
		cfg.Daemon.BaseURL = host
	}
}

func validate(cfg *LLMDashConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	defaultCfg := DefaultConfig()
	data, err := yaml.Marshal(defaultCfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
