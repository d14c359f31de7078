// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths lists where config files are searched, first hit
// wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/protagonist/config.yaml",
	"/etc/protagonist/config.yml",
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in rising precedence, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// SERVER_PORT becomes server.port, AUTH_JWT_SECRET becomes
	// auth.jwt_secret, and so on.
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration struct against its constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	return nil
}

// sectionPrefixes maps the first env segment to a config section. Only
// prefixed variables are consumed, keeping unrelated environment noise
// out of the tree.
var sectionPrefixes = []string{
	"SERVER_", "LOGGING_", "DATABASE_", "ORIGIN_",
	"FAST_STORAGE_", "ORCHESTRATE_", "AUTH_", "PROXY_",
}

func envTransform(s string) string {
	for _, prefix := range sectionPrefixes {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		section := strings.ToLower(strings.TrimSuffix(prefix, "_"))
		rest := strings.ToLower(strings.TrimPrefix(s, prefix))
		return section + "." + rest
	}
	return ""
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
