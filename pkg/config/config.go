// Package config provides unified configuration for the portier service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PORTIER_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"time"

	"github.com/rhuss/portier/pkg/auth/apikey"
	"github.com/rhuss/portier/pkg/auth/pgmanager"
	"github.com/rhuss/portier/pkg/tokens"
)

// Config holds all configuration for portier.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Tokens        TokensConfig        `yaml:"tokens"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 15s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
}

// TokensConfig configures the token codec.
type TokensConfig struct {
	Issuer            string `yaml:"issuer"`
	Secret            string `yaml:"secret"`
	SecretFile        string `yaml:"secret_file"`         // _file variant for secret
	DefaultTTLMinutes int    `yaml:"default_ttl_minutes"` // default: 60
	PublicJWKS        string `yaml:"public_jwks"`         // file path or http(s) URL
	PrivateJWKS       string `yaml:"private_jwks"`        // file path or http(s) URL
	Algorithm         string `yaml:"algorithm"`           // default: RS256
}

// Codec converts the section into a tokens.Config.
func (c TokensConfig) Codec() tokens.Config {
	return tokens.Config{
		Issuer:                c.Issuer,
		Secret:                c.Secret,
		DefaultTTLMinutes:     c.DefaultTTLMinutes,
		PublicKeySetLocation:  c.PublicJWKS,
		PrivateKeySetLocation: c.PrivateJWKS,
		Algorithm:             c.Algorithm,
	}
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type              string         `yaml:"type"`               // "none", "dev", "apikey" or "postgres"
	TenantHeader      string         `yaml:"tenant_header"`      // default: X-TenantId
	ApplicationHeader string         `yaml:"application_header"` // default: X-Application
	APIKeys           []APIKeyConfig `yaml:"api_keys"`           // entries for type=apikey
	Postgres          PostgresConfig `yaml:"postgres"`
}

// APIKeyConfig describes one static principal.
type APIKeyConfig struct {
	Key          string   `yaml:"key" json:"key"`
	KeyFile      string   `yaml:"key_file" json:"key_file"` // _file variant for key
	Username     string   `yaml:"username" json:"username"`
	Password     string   `yaml:"password" json:"password"`
	PasswordFile string   `yaml:"password_file" json:"password_file"`
	TenantID     string   `yaml:"tenant_id" json:"tenant_id"`
	Application  string   `yaml:"application" json:"application"`
	Roles        []string `yaml:"roles" json:"roles"`
	Permissions  []string `yaml:"permissions" json:"permissions"`
}

// Entries converts the static principals to apikey entries.
func (c AuthConfig) Entries() []apikey.Entry {
	out := make([]apikey.Entry, 0, len(c.APIKeys))
	for _, k := range c.APIKeys {
		out = append(out, apikey.Entry{
			Key:         k.Key,
			Username:    k.Username,
			Password:    k.Password,
			TenantID:    k.TenantID,
			Application: k.Application,
			Roles:       k.Roles,
			Permissions: k.Permissions,
		})
	}
	return out
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// Manager converts the section into a pgmanager.Config.
func (c PostgresConfig) Manager() pgmanager.Config {
	return pgmanager.Config{
		DSN:            c.DSN,
		MaxConns:       c.MaxConns,
		MigrateOnStart: c.MigrateOnStart,
	}
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LogConfig holds logging settings. PORTIER_LOG_LEVEL and PORTIER_DEBUG
// are read by pkg/debug directly and override these.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: INFO
	Format string `yaml:"format"` // "text" or "json", default: text
	Debug  string `yaml:"debug"`  // comma-separated categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Tokens: TokensConfig{
			DefaultTTLMinutes: tokens.DefaultTTLMinutes,
			Algorithm:         tokens.DefaultAlgorithm,
		},
		Auth: AuthConfig{
			Type:              "none",
			TenantHeader:      "X-TenantId",
			ApplicationHeader: "X-Application",
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
