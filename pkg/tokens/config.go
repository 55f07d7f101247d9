package tokens

import "net/http"

// DefaultAlgorithm is the signature algorithm bound to key sets when the
// configuration does not name one.
const DefaultAlgorithm = "RS256"

// DefaultTTLMinutes applies when Config.DefaultTTLMinutes is zero.
const DefaultTTLMinutes = 60

// Config holds the key material and defaults for a Codec.
type Config struct {
	// Issuer is embedded as the iss claim on issuance and checked on
	// secret verification.
	Issuer string

	// Secret is the HMAC shared secret.
	Secret string

	// DefaultTTLMinutes is the lifetime used by CreateDefault and by Create
	// when the requested ttl is not positive.
	DefaultTTLMinutes int

	// PublicKeySetLocation is a file path or http(s):// URL of a JWKS
	// document used for verification.
	PublicKeySetLocation string

	// PrivateKeySetLocation is a file path or http(s):// URL of a JWKS
	// document holding a private signing key.
	PrivateKeySetLocation string

	// Algorithm is the JWS algorithm bound to the key sets. Default: RS256.
	Algorithm string

	// HTTPClient is used to fetch remote key sets. Default: http.DefaultClient.
	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	if c.DefaultTTLMinutes <= 0 {
		c.DefaultTTLMinutes = DefaultTTLMinutes
	}
	if c.Algorithm == "" {
		c.Algorithm = DefaultAlgorithm
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// CanIssue reports whether the configuration carries signing material.
func (c Config) CanIssue() bool {
	return c.PrivateKeySetLocation != "" || c.Secret != ""
}

// CanVerify reports whether the configuration carries verification material.
func (c Config) CanVerify() bool {
	return c.PublicKeySetLocation != "" || c.Secret != ""
}
