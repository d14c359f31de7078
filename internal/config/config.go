// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package config loads layered configuration: built-in defaults, an
// optional YAML file, then environment variables. The resulting struct
// is validated before use.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Database    DatabaseConfig    `koanf:"database"`
	Origin      OriginConfig      `koanf:"origin"`
	FastStorage FastStorageConfig `koanf:"fast_storage"`
	Orchestrate OrchestrateConfig `koanf:"orchestrate"`
	Auth        AuthConfig        `koanf:"auth"`
	Proxy       ProxyConfig       `koanf:"proxy"`
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig tunes structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig points at the shared metadata database.
type DatabaseConfig struct {
	DSN string `koanf:"dsn" validate:"required"`
}

// OriginConfig describes slow object storage holding asset originals.
type OriginConfig struct {
	Endpoint  string `koanf:"endpoint" validate:"required"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket" validate:"required"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// FastStorageConfig describes the local fast cache.
type FastStorageConfig struct {
	Root string `koanf:"root" validate:"required"`
	// FlushEvery syncs the copy to disk after this many bytes. Zero
	// disables periodic syncing.
	FlushEvery int64 `koanf:"flush_every" validate:"gte=0"`
}

// OrchestrateConfig tunes the warming state machine.
type OrchestrateConfig struct {
	StatusStorePath string        `koanf:"status_store_path" validate:"required"`
	LockTimeout     time.Duration `koanf:"lock_timeout" validate:"gt=0"`
	// OrchestratingTTL bounds how long a crashed copier can hold the
	// Orchestrating claim before it self-clears.
	OrchestratingTTL time.Duration `koanf:"orchestrating_ttl" validate:"gt=0"`
	TrackerCacheTTL  time.Duration `koanf:"tracker_cache_ttl" validate:"gt=0"`
}

// AuthConfig tunes sessions, cookies and bearer tokens.
type AuthConfig struct {
	SessionStorePath string        `koanf:"session_store_path" validate:"required"`
	SessionTTL       time.Duration `koanf:"session_ttl" validate:"gt=0"`
	CookieDomain     string        `koanf:"cookie_domain"`
	CookieSecure     bool          `koanf:"cookie_secure"`
	JWTSecret        string        `koanf:"jwt_secret" validate:"required,min=16"`
	JWTIssuer        string        `koanf:"jwt_issuer" validate:"required"`
	BearerTTL        time.Duration `koanf:"bearer_ttl" validate:"gt=0"`
	// RoleInheritance seeds the role hierarchy, e.g. "staff" implying
	// "clickthrough" for a customer.
	RoleInheritance []RoleInheritanceConfig `koanf:"role_inheritance" validate:"dive"`
}

// RoleInheritanceConfig declares that Role inherits Inherits for Customer.
type RoleInheritanceConfig struct {
	Customer int    `koanf:"customer" validate:"gt=0"`
	Role     string `koanf:"role" validate:"required"`
	Inherits string `koanf:"inherits" validate:"required"`
}

// ProxyConfig names the downstream destination roots.
type ProxyConfig struct {
	CachingProxyURL string `koanf:"caching_proxy_url" validate:"required,url"`
	OrchestratorURL string `koanf:"orchestrator_url" validate:"required,url"`
	S3URL           string `koanf:"s3_url" validate:"required,url"`
	ThumbsURL       string `koanf:"thumbs_url" validate:"required,url"`
}

// defaultConfig returns the built-in defaults, overridden by file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       0,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			DSN: "",
		},
		Origin: OriginConfig{
			Endpoint: "s3.eu-west-1.amazonaws.com",
			Region:   "eu-west-1",
			Bucket:   "",
			UseSSL:   true,
		},
		FastStorage: FastStorageConfig{
			Root:       "/data/fast",
			FlushEvery: 8 << 20, // 8MiB
		},
		Orchestrate: OrchestrateConfig{
			StatusStorePath:  "/data/status",
			LockTimeout:      10 * time.Second,
			OrchestratingTTL: 10 * time.Minute,
			TrackerCacheTTL:  30 * time.Second,
		},
		Auth: AuthConfig{
			SessionStorePath: "/data/sessions",
			SessionTTL:       15 * time.Minute,
			CookieSecure:     true,
			JWTIssuer:        "protagonist",
			BearerTTL:        time.Hour,
		},
		Proxy: ProxyConfig{},
	}
}
