package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rhuss/portier/pkg/debug"
	"github.com/rhuss/portier/pkg/identity"
	"github.com/rhuss/portier/pkg/observability"
	"github.com/rhuss/portier/pkg/tenant"
)

const (
	bearerPrefix = "bearer "
	basicPrefix  = "basic "
)

// Gate turns an Authorization header into a resolved authentication and
// publishes the derived authorities. It holds no per-request state and is
// safe for concurrent use.
type Gate struct {
	bearer AuthChain
	basic  AuthChain
	access AccessControl
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithAccessControl replaces the default ContextAccessControl.
func WithAccessControl(ac AccessControl) GateOption {
	return func(g *Gate) { g.access = ac }
}

// NewGate builds a gate. A nil manager or decoder is replaced with a
// collaborator that always abstains.
func NewGate(manager AuthManager, decoder TokenDecoder, opts ...GateOption) *Gate {
	if manager == nil {
		manager = abstainer{}
	}
	if decoder == nil {
		decoder = abstainer{}
	}

	g := &Gate{
		bearer: AuthChain{Authenticators: []Authenticator{
			managerToken(manager),
			decoderToken(decoder),
		}},
		basic: AuthChain{Authenticators: []Authenticator{
			serviceIdentity(decoder),
			managerCredentials(manager),
		}},
		access: ContextAccessControl{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle resolves header for rc. Guests leave rc and ctx untouched and
// yield no error. A rejected credential returns an error wrapping
// ErrUnauthenticated. On success rc carries the authentication and raw
// header, and the returned context carries the published authorities.
// A nil rc is treated as an empty request context. When rc names a tenant,
// an authentication bound to a different tenant is rejected with
// ErrTenantMismatch.
func (g *Gate) Handle(ctx context.Context, rc *RequestContext, header string) (context.Context, error) {
	if rc == nil {
		rc = &RequestContext{}
	}
	if header == "" {
		observability.AuthAttemptsTotal.WithLabelValues("none", "guest").Inc()
		return ctx, nil
	}

	cred, ok := ParseAuthorization(ctx, header)
	if !ok {
		observability.AuthAttemptsTotal.WithLabelValues(string(cred.Scheme), "guest").Inc()
		return ctx, nil
	}

	result := AuthResult{Decision: Abstain}
	switch cred.Scheme {
	case SchemeBearer:
		debug.Log("auth", "bearer authorization header received")
		result = g.bearer.Authenticate(ctx, rc, cred)
	case SchemeBasic:
		debug.Log("auth", "basic authorization header received")
		result = g.basic.Authenticate(ctx, rc, cred)
	}

	switch result.Decision {
	case No:
		observability.AuthAttemptsTotal.WithLabelValues(string(cred.Scheme), "rejected").Inc()
		return ctx, fmt.Errorf("%w: %w", ErrUnauthenticated, result.Err)
	case Abstain:
		observability.AuthAttemptsTotal.WithLabelValues(string(cred.Scheme), "guest").Inc()
		debug.Log("auth", "auth.username: guest")
		return ctx, nil
	}

	a := result.Authentication
	requested, bound := tenant.Normalize(rc.TenantID), tenant.Normalize(a.TenantID)
	if requested != "" && bound != "" && requested != bound {
		observability.AuthAttemptsTotal.WithLabelValues(string(cred.Scheme), "rejected").Inc()
		slog.WarnContext(ctx, "tenant mismatch", "requested", requested, "bound", bound)
		return ctx, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrTenantMismatch)
	}
	rc.Authentication = a
	rc.Authorization = header
	dumpAuthentication(ctx, rc)

	observability.AuthAttemptsTotal.WithLabelValues(string(cred.Scheme), "authenticated").Inc()
	return g.access.Publish(ctx, DeriveAuthorities(rc, a)), nil
}

// ParseAuthorization splits an Authorization header into credentials.
// It reports false for headers that can only yield a guest: unknown
// schemes, undecodable basic payloads and basic payloads without a colon.
func ParseAuthorization(ctx context.Context, header string) (Credentials, bool) {
	lower := strings.ToLower(header)
	switch {
	case strings.HasPrefix(lower, bearerPrefix):
		return Credentials{
			Scheme: SchemeBearer,
			Token:  strings.TrimSpace(header[len(bearerPrefix):]),
		}, true

	case strings.HasPrefix(lower, basicPrefix):
		cred := Credentials{Scheme: SchemeBasic}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(basicPrefix):]))
		if err != nil {
			slog.WarnContext(ctx, "malformed basic authorization header", "error", err)
			return cred, false
		}
		user, password, found := strings.Cut(string(decoded), ":")
		if !found {
			debug.Log("auth", "basic credentials without separator")
			return cred, false
		}
		cred.Username, cred.Password = user, password
		return cred, true

	default:
		slog.WarnContext(ctx, "authorization header is neither bearer nor basic")
		return Credentials{Scheme: "other"}, false
	}
}

func managerToken(m AuthManager) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, rc *RequestContext, cred Credentials) AuthResult {
		if cred.Token == "" {
			return AuthResult{Decision: No, Err: fmt.Errorf("empty bearer token")}
		}
		result := vote(m.AuthenticateToken(ctx, rc, cred.Token))
		if result.Decision == Yes {
			debug.Log("auth", "authentication provided by local manager", "manager", fmt.Sprintf("%T", m))
		}
		return result
	})
}

func decoderToken(d TokenDecoder) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, _ *RequestContext, cred Credentials) AuthResult {
		debug.Log("auth", "decoding token with token decoder")
		return vote(d.Decode(cred.Token))
	})
}

// serviceIdentity grants IS_SERVICE to basic credentials whose password
// is the configured shared secret.
func serviceIdentity(d TokenDecoder) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, rc *RequestContext, cred Credentials) AuthResult {
		secret := d.Secret()
		if secret == "" || subtle.ConstantTimeCompare([]byte(cred.Password), []byte(secret)) != 1 {
			return AuthResult{Decision: Abstain}
		}
		debug.Log("auth", "service identity granted", "application", cred.Username)
		return AuthResult{Decision: Yes, Authentication: &identity.Authentication{
			TenantID:    rc.TenantID,
			Application: cred.Username,
			Principal:   cred.Username,
			Roles:       identity.NewSet(IsService),
			Permissions: identity.NewSet(IsService),
		}}
	})
}

func managerCredentials(m AuthManager) Authenticator {
	return AuthenticatorFunc(func(ctx context.Context, rc *RequestContext, cred Credentials) AuthResult {
		return vote(m.AuthenticateCredentials(ctx, rc, cred.Username, cred.Password))
	})
}

func dumpAuthentication(ctx context.Context, rc *RequestContext) {
	if !debug.Enabled("auth") {
		return
	}
	a := rc.Authentication
	slog.DebugContext(ctx, "authentication resolved",
		"username", a.Username,
		"tenant", a.TenantID,
		"application", rc.ApplicationName,
		"claims", len(a.Claims),
	)
	for k, v := range a.Claims {
		slog.DebugContext(ctx, "auth.claims", "key", k, "value", v)
	}
}
