// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

package config

import (
	"testing"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Database.DSN = "postgres://protagonist@localhost/protagonist"
	cfg.Origin.Bucket = "dlcs-origin"
	cfg.Auth.JWTSecret = "0123456789abcdef"
	cfg.Proxy = ProxyConfig{
		CachingProxyURL: "http://cantaloupe:8182",
		OrchestratorURL: "http://special-server:8183",
		S3URL:           "https://s3.eu-west-1.amazonaws.com",
		ThumbsURL:       "http://thumbs:8184",
	}
	return cfg
}

func TestValidate(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("valid configuration rejected: %v", err)
	}

	// Defaults alone are not deployable: required fields are empty.
	if err := Validate(defaultConfig()); err == nil {
		t.Error("defaults passed validation without DSN, bucket or secret")
	}

	mutations := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"zero lock timeout", func(c *Config) { c.Orchestrate.LockTimeout = 0 }},
		{"empty status store path", func(c *Config) { c.Orchestrate.StatusStorePath = "" }},
		{"non-url proxy destination", func(c *Config) { c.Proxy.CachingProxyURL = "cantaloupe:8182" }},
	}
	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("invalid configuration accepted")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SERVER_PORT", "server.port"},
		{"AUTH_JWT_SECRET", "auth.jwt_secret"},
		{"FAST_STORAGE_ROOT", "fast_storage.root"},
		{"ORCHESTRATE_LOCK_TIMEOUT", "orchestrate.lock_timeout"},
		{"PROXY_CACHING_PROXY_URL", "proxy.caching_proxy_url"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
