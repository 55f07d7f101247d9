package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources:
//  1. Built-in defaults
//  2. YAML config file (explicit path, PORTIER_CONFIG env, ./portier.yaml, /etc/portier/config.yaml)
//  3. PORTIER_* environment variables
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if filePath := discoverConfigFile(configPath); filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile returns the first config file found, or "" when
// none exists.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("PORTIER_CONFIG"); envPath != "" {
		return envPath
	}
	for _, path := range []string{"portier.yaml", "/etc/portier/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile parses path over cfg. Fields absent from the file keep
// their current values. Unknown keys are rejected.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps PORTIER_* variables onto cfg. Malformed numbers
// are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"PORTIER_TOKENS_ISSUER":       &cfg.Tokens.Issuer,
		"PORTIER_TOKENS_SECRET":       &cfg.Tokens.Secret,
		"PORTIER_TOKENS_SECRET_FILE":  &cfg.Tokens.SecretFile,
		"PORTIER_TOKENS_PUBLIC_JWKS":  &cfg.Tokens.PublicJWKS,
		"PORTIER_TOKENS_PRIVATE_JWKS": &cfg.Tokens.PrivateJWKS,
		"PORTIER_TOKENS_ALGORITHM":    &cfg.Tokens.Algorithm,
		"PORTIER_AUTH_TYPE":           &cfg.Auth.Type,
		"PORTIER_AUTH_TENANT_HEADER":  &cfg.Auth.TenantHeader,
		"PORTIER_AUTH_POSTGRES_DSN":   &cfg.Auth.Postgres.DSN,
		"PORTIER_LOG_FORMAT":          &cfg.Log.Format,
	}
	for name, field := range str {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"PORTIER_PORT":                       &cfg.Server.Port,
		"PORTIER_TOKENS_DEFAULT_TTL_MINUTES": &cfg.Tokens.DefaultTTLMinutes,
	}
	for name, field := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*field = n
	}

	// PORTIER_API_KEYS: JSON array of static principals.
	if v := os.Getenv("PORTIER_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			return err
		}
		cfg.Auth.APIKeys = keys
	}
	return nil
}

func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing PORTIER_API_KEYS: %w", err)
	}
	return keys, nil
}

// resolveFileReferences fills each value field from its _file sibling
// when the value is empty.
func resolveFileReferences(cfg *Config) error {
	if err := resolveFile("tokens.secret_file", cfg.Tokens.SecretFile, &cfg.Tokens.Secret); err != nil {
		return err
	}
	if err := resolveFile("auth.postgres.dsn_file", cfg.Auth.Postgres.DSNFile, &cfg.Auth.Postgres.DSN); err != nil {
		return err
	}
	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		if err := resolveFile(fmt.Sprintf("auth.api_keys[%d].key_file", i), k.KeyFile, &k.Key); err != nil {
			return err
		}
		if err := resolveFile(fmt.Sprintf("auth.api_keys[%d].password_file", i), k.PasswordFile, &k.Password); err != nil {
			return err
		}
	}
	return nil
}

func resolveFile(field, path string, value *string) error {
	if path == "" || *value != "" {
		return nil
	}
	val, err := readSecretFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*value = val
	return nil
}

// readSecretFile returns the file content with surrounding whitespace
// trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
