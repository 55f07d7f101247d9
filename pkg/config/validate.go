package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Tokens.DefaultTTLMinutes <= 0 {
		errs = append(errs, fmt.Errorf("tokens.default_ttl_minutes must be > 0, got %d", c.Tokens.DefaultTTLMinutes))
	}
	if c.Tokens.Secret == "" && c.Tokens.PublicJWKS == "" && c.Tokens.PrivateJWKS == "" {
		errs = append(errs, errors.New("tokens: one of secret, secret_file, public_jwks or private_jwks is required"))
	}
	if err := validateLocation(c.Tokens.PublicJWKS); err != nil {
		errs = append(errs, fmt.Errorf("tokens.public_jwks: %w", err))
	}
	if err := validateLocation(c.Tokens.PrivateJWKS); err != nil {
		errs = append(errs, fmt.Errorf("tokens.private_jwks: %w", err))
	}

	switch c.Auth.Type {
	case "none", "dev", "apikey", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"dev\", \"apikey\" or \"postgres\", got %q", c.Auth.Type))
	}

	if c.Auth.Type == "postgres" && c.Auth.Postgres.DSN == "" {
		errs = append(errs, errors.New("auth.postgres.dsn or auth.postgres.dsn_file is required when auth.type is \"postgres\""))
	}

	if c.Auth.Type == "apikey" {
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, errors.New("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" && k.Username == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d]: key or username is required", i))
			}
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func validateLocation(loc string) error {
	if loc == "" || !strings.Contains(loc, "://") {
		return nil
	}
	u, err := url.Parse(loc)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}
