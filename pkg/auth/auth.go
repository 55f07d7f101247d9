package auth

import (
	"context"
	"errors"

	"github.com/rhuss/portier/pkg/identity"
)

// AuthDecision represents the three possible outcomes of an attempt.
type AuthDecision int

const (
	// Yes means credentials are valid. The chain stops and the
	// authentication is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The chain stops and
	// the request is rejected.
	No

	// Abstain means this attempt cannot decide. The chain continues.
	Abstain
)

// AuthResult carries the outcome of an attempt.
type AuthResult struct {
	Decision       AuthDecision
	Authentication *identity.Authentication // populated only when Decision == Yes
	Err            error                    // populated only when Decision == No
}

// Scheme is the Authorization scheme of a credential.
type Scheme string

const (
	SchemeBearer Scheme = "bearer"
	SchemeBasic  Scheme = "basic"
)

// Credentials is a parsed Authorization header.
type Credentials struct {
	Scheme   Scheme
	Token    string // bearer only
	Username string // basic only
	Password string // basic only
}

// Authenticator is one attempt in a chain.
type Authenticator interface {
	Authenticate(ctx context.Context, rc *RequestContext, cred Credentials) AuthResult
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, rc *RequestContext, cred Credentials) AuthResult

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, rc *RequestContext, cred Credentials) AuthResult {
	return f(ctx, rc, cred)
}

// AuthManager is a local authority consulted before token verification.
// Returning a nil Authentication with a nil error means "not mine".
type AuthManager interface {
	AuthenticateToken(ctx context.Context, rc *RequestContext, token string) (*identity.Authentication, error)
	AuthenticateCredentials(ctx context.Context, rc *RequestContext, username, password string) (*identity.Authentication, error)
}

// TokenDecoder verifies bearer tokens. *tokens.Codec implements it.
type TokenDecoder interface {
	Decode(raw string) (*identity.Authentication, error)

	// Secret returns the shared secret used for the service identity
	// shortcut, or "" when none is configured.
	Secret() string
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrTenantMismatch  = errors.New("credential belongs to another tenant")
)

// AuthChain evaluates authenticators in order. It stops on the first Yes
// or No and abstains when every authenticator abstains.
type AuthChain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator
}

// Authenticate runs the chain.
func (c *AuthChain) Authenticate(ctx context.Context, rc *RequestContext, cred Credentials) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, rc, cred)
		if result.Decision != Abstain {
			return result
		}
	}
	return AuthResult{Decision: Abstain}
}

// vote converts a collaborator answer into a result.
func vote(a *identity.Authentication, err error) AuthResult {
	switch {
	case err != nil:
		return AuthResult{Decision: No, Err: err}
	case a == nil:
		return AuthResult{Decision: Abstain}
	default:
		return AuthResult{Decision: Yes, Authentication: a}
	}
}

// abstainer is substituted for missing collaborators.
type abstainer struct{}

func (abstainer) AuthenticateToken(context.Context, *RequestContext, string) (*identity.Authentication, error) {
	return nil, nil
}

func (abstainer) AuthenticateCredentials(context.Context, *RequestContext, string, string) (*identity.Authentication, error) {
	return nil, nil
}

func (abstainer) Decode(string) (*identity.Authentication, error) { return nil, nil }

func (abstainer) Secret() string { return "" }
