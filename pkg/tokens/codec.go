package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/portier/pkg/identity"
	"github.com/rhuss/portier/pkg/observability"
)

type signer interface {
	algorithm() string
	sign(claims jwtlib.MapClaims) (string, error)
}

type verifier interface {
	strategy() string
	verify(raw string) (subject string, claims map[string]any, err error)
}

// ClaimsExtractor turns a verified token into an Authentication.
type ClaimsExtractor interface {
	Extract(token Token) *identity.Authentication
}

// ExtractorFunc adapts a function to ClaimsExtractor.
type ExtractorFunc func(token Token) *identity.Authentication

// Extract calls f(token).
func (f ExtractorFunc) Extract(token Token) *identity.Authentication { return f(token) }

// NormalizingExtractor maps claims with identity.Normalize.
var NormalizingExtractor = ExtractorFunc(func(token Token) *identity.Authentication {
	return identity.Normalize(token.Claims, token.Subject)
})

// Codec creates and verifies tokens. It is safe for concurrent use.
type Codec struct {
	config   Config
	signer   signer
	verifier verifier
	now      func() time.Time
}

// New builds a Codec from cfg. Key sets are loaded here, once; ctx bounds
// any remote fetch.
func New(ctx context.Context, cfg Config) (*Codec, error) {
	cfg.applyDefaults()
	c := &Codec{config: cfg, now: time.Now}

	switch {
	case cfg.PrivateKeySetLocation != "":
		set, err := loadKeySet(ctx, cfg.HTTPClient, cfg.PrivateKeySetLocation)
		if err != nil {
			return nil, fmt.Errorf("loading private key set: %w", err)
		}
		s, err := newKeySetSigner(set, cfg.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("private key set: %w", err)
		}
		c.signer = s
	case cfg.Secret != "":
		c.signer = &secretSigner{secret: []byte(cfg.Secret)}
	}

	if cfg.PublicKeySetLocation != "" {
		set, err := loadKeySet(ctx, cfg.HTTPClient, cfg.PublicKeySetLocation)
		if err != nil {
			return nil, fmt.Errorf("loading public key set: %w", err)
		}
		v, err := newKeySetVerifier(set, cfg.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("public key set: %w", err)
		}
		c.verifier = v
	} else {
		c.verifier = &secretVerifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
	}

	slog.Debug("token codec ready",
		"strategy", c.verifier.strategy(),
		"can_issue", c.signer != nil,
		"issuer", cfg.Issuer,
	)
	return c, nil
}

// Config returns the configuration the codec was built with.
func (c *Codec) Config() Config {
	return c.config
}

// Secret returns the configured shared secret, possibly empty.
func (c *Codec) Secret() string {
	return c.config.Secret
}

// Strategy names the active verification strategy: "key_set" or "secret".
func (c *Codec) Strategy() string {
	return c.verifier.strategy()
}

// CreateDefault mints a token with the configured default ttl.
func (c *Codec) CreateDefault(kind Kind, subject string, claims map[string]any) (Token, error) {
	return c.Create(kind, subject, claims, c.config.DefaultTTLMinutes)
}

// Create mints a token of the given kind. Caller claims are embedded
// alongside iss, sub, iat and exp; the registered claims win on conflict.
// A non-positive ttlMinutes uses the configured default.
func (c *Codec) Create(kind Kind, subject string, claims map[string]any, ttlMinutes int) (Token, error) {
	if kind != JWT {
		return Token{}, fmt.Errorf("%w: %q", ErrUnsupportedTokenType, kind)
	}
	if c.signer == nil {
		return Token{}, fmt.Errorf("%w: no secret or private key set configured", ErrConfiguration)
	}
	if ttlMinutes <= 0 {
		ttlMinutes = c.config.DefaultTTLMinutes
	}

	now := c.now()
	exp := now.Add(time.Duration(ttlMinutes) * time.Minute)

	mc := jwtlib.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	if c.config.Issuer != "" {
		mc["iss"] = c.config.Issuer
	}
	mc["sub"] = subject
	mc["iat"] = now.Unix()
	mc["exp"] = exp.Unix()

	signed, err := c.signer.sign(mc)
	if err != nil {
		return Token{}, fmt.Errorf("signing token: %w", err)
	}
	observability.TokensIssuedTotal.WithLabelValues(c.signer.algorithm()).Inc()

	return Token{
		Value:     signed,
		Subject:   subject,
		Claims:    copyClaims(claims),
		ExpiresAt: time.Unix(exp.Unix(), 0),
	}, nil
}

// Verify checks raw with the active strategy and returns its subject and
// claims. Failures wrap ErrInvalidToken (key set) or ErrUnauthorized (secret).
func (c *Codec) Verify(raw string) (Token, error) {
	strategy := c.verifier.strategy()
	sub, claims, err := c.verifier.verify(raw)
	if err != nil {
		observability.TokenVerificationsTotal.WithLabelValues(strategy, "rejected").Inc()
		slog.Debug("token rejected", "strategy", strategy, "error", err)
		return Token{}, err
	}
	observability.TokenVerificationsTotal.WithLabelValues(strategy, "verified").Inc()
	return Token{Value: raw, Subject: sub, Claims: claims}, nil
}

// Decode verifies raw and normalizes its claims.
func (c *Codec) Decode(raw string) (*identity.Authentication, error) {
	return c.DecodeWith(raw, NormalizingExtractor)
}

// DecodeWith verifies raw and maps it with extractor.
func (c *Codec) DecodeWith(raw string, extractor ClaimsExtractor) (*identity.Authentication, error) {
	token, err := c.Verify(raw)
	if err != nil {
		return nil, err
	}
	return extractor.Extract(token), nil
}
