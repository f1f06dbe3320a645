// Copyright 2026 The Memberhub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/memberhub/memberhub/internal/feature"
)

// MFA verifier modes
const (
	MFAModeTOTP   = "totp"
	MFAModeStatic = "static"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	MFA           MFAConfig
	Features      FeaturesConfig
	Observability ObservabilityConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Bootstrap     BootstrapConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// DatabaseConfig holds database configuration. An empty URL and host
// selects the in-memory store.
type DatabaseConfig struct {
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	QueryTimeout time.Duration
	AutoMigrate  bool
}

// Enabled reports whether a PostgreSQL store is configured
func (c DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

// RedisConfig holds Redis configuration. An empty Addr disables the
// feature cache and the session deny-list.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
	Prefix   string
	CacheTTL time.Duration
}

// AuthConfig holds session and decision configuration
type AuthConfig struct {
	JWTSecret            string
	Issuer               string
	SessionTTL           time.Duration
	BootstrapPrincipalID string
	DecisionTimeout      time.Duration
}

// MFAConfig holds second-factor configuration
type MFAConfig struct {
	Mode   string
	Issuer string
}

// FeaturesConfig holds the built-in feature defaults after overrides
type FeaturesConfig struct {
	Defaults feature.Set
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// TrustedProxies are the peers whose X-Forwarded-For / X-Real-IP
	// headers are believed. Empty means client headers are ignored.
	TrustedProxies []netip.Prefix
}

// BootstrapConfig seeds the first global administrator
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

var defaults = map[string]any{
	"SERVER_HOST":          "0.0.0.0",
	"SERVER_PORT":          "8080",
	"SERVER_READ_TIMEOUT":  "15s",
	"SERVER_WRITE_TIMEOUT": "15s",
	"SERVER_IDLE_TIMEOUT":  "60s",

	"DATABASE_URL":      "",
	"DB_HOST":           "",
	"DB_PORT":           "5432",
	"DB_USER":           "memberhub",
	"DB_PASSWORD":       "",
	"DB_NAME":           "memberhub",
	"DB_SSLMODE":        "disable",
	"DB_MAX_OPEN_CONNS": 25,
	"DB_MAX_IDLE_CONNS": 5,
	"DB_QUERY_TIMEOUT":  "3s",
	"DB_AUTO_MIGRATE":   true,

	"REDIS_ADDR":      "",
	"REDIS_PASSWORD":  "",
	"REDIS_DB":        0,
	"REDIS_TIMEOUT":   "500ms",
	"REDIS_PREFIX":    "memberhub",
	"REDIS_CACHE_TTL": "60s",

	"AUTH_JWT_SECRET":             "",
	"AUTH_ISSUER":                 "memberhub",
	"AUTH_SESSION_TTL":            "8h",
	"AUTH_BOOTSTRAP_PRINCIPAL_ID": "",
	"AUTH_DECISION_TIMEOUT":       "5s",

	"MFA_MODE":   MFAModeTOTP,
	"MFA_ISSUER": "Memberhub",

	"FEATURES_DEFAULTS": "",

	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "json",
	"OTEL_ENABLED":         false,
	"OTEL_SERVICE_NAME":    "memberhub",
	"OTEL_SERVICE_VERSION": "0.1.0",

	"ARGON2_MEMORY":      65536,
	"ARGON2_ITERATIONS":  3,
	"ARGON2_PARALLELISM": 4,
	"ARGON2_SALT_LENGTH": 16,
	"ARGON2_KEY_LENGTH":  32,

	"RATELIMIT_RPS":             10,
	"RATELIMIT_BURST":           20,
	"RATELIMIT_TRUSTED_PROXIES": "",

	"BOOTSTRAP_ADMIN_EMAIL":    "",
	"BOOTSTRAP_ADMIN_PASSWORD": "",
	"BOOTSTRAP_ADMIN_NAME":     "Platform Administrator",
}

// Load loads configuration from an optional .env file, an optional
// memberhub.yaml and the environment, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("memberhub")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/memberhub")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds the configuration from v with env binding and defaults applied
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	featureDefaults, err := feature.ParseDefaults(v.GetString("FEATURES_DEFAULTS"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: FEATURES_DEFAULTS: %w", err)
	}
	trustedProxies, err := parsePrefixes(v.GetString("RATELIMIT_TRUSTED_PROXIES"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: RATELIMIT_TRUSTED_PROXIES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetString("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			URL:          v.GetString("DATABASE_URL"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Database:     v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			QueryTimeout: v.GetDuration("DB_QUERY_TIMEOUT"),
			AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Timeout:  v.GetDuration("REDIS_TIMEOUT"),
			Prefix:   v.GetString("REDIS_PREFIX"),
			CacheTTL: v.GetDuration("REDIS_CACHE_TTL"),
		},
		Auth: AuthConfig{
			JWTSecret:            v.GetString("AUTH_JWT_SECRET"),
			Issuer:               v.GetString("AUTH_ISSUER"),
			SessionTTL:           v.GetDuration("AUTH_SESSION_TTL"),
			BootstrapPrincipalID: v.GetString("AUTH_BOOTSTRAP_PRINCIPAL_ID"),
			DecisionTimeout:      v.GetDuration("AUTH_DECISION_TIMEOUT"),
		},
		MFA: MFAConfig{
			Mode:   strings.ToLower(v.GetString("MFA_MODE")),
			Issuer: v.GetString("MFA_ISSUER"),
		},
		Features: FeaturesConfig{
			Defaults: featureDefaults,
		},
		Observability: ObservabilityConfig{
			LogLevel:       v.GetString("LOG_LEVEL"),
			LogFormat:      v.GetString("LOG_FORMAT"),
			OTELEnabled:    v.GetBool("OTEL_ENABLED"),
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			ServiceVersion: v.GetString("OTEL_SERVICE_VERSION"),
		},
		Security: SecurityConfig{
			Argon2Memory:      v.GetUint32("ARGON2_MEMORY"),
			Argon2Iterations:  v.GetUint32("ARGON2_ITERATIONS"),
			Argon2Parallelism: uint8(v.GetUint("ARGON2_PARALLELISM")),
			Argon2SaltLength:  v.GetUint32("ARGON2_SALT_LENGTH"),
			Argon2KeyLength:   v.GetUint32("ARGON2_KEY_LENGTH"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATELIMIT_RPS"),
			Burst:             v.GetInt("RATELIMIT_BURST"),
			TrustedProxies:    trustedProxies,
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    v.GetString("BOOTSTRAP_ADMIN_EMAIL"),
			AdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
			AdminName:     v.GetString("BOOTSTRAP_ADMIN_NAME"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 bytes")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("AUTH_SESSION_TTL must be positive")
	}
	if c.Auth.DecisionTimeout <= 0 {
		return fmt.Errorf("AUTH_DECISION_TIMEOUT must be positive")
	}
	if c.MFA.Mode != MFAModeTOTP && c.MFA.Mode != MFAModeStatic {
		return fmt.Errorf("MFA_MODE must be %q or %q", MFAModeTOTP, MFAModeStatic)
	}
	if c.Database.Host != "" && c.Database.URL == "" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required when DB_HOST is set")
	}
	if c.Bootstrap.AdminEmail != "" && c.Bootstrap.AdminPassword == "" {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD is required when BOOTSTRAP_ADMIN_EMAIL is set")
	}
	return nil
}

// parsePrefixes reads a comma-separated list of CIDRs or bare addresses
func parsePrefixes(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}
