package auth

import (
	"context"

	"github.com/rhuss/portier/pkg/identity"
)

// RequestContext is the mutable per-request state the gate reads and
// fills in.
type RequestContext struct {
	TenantID        string
	ApplicationName string

	// Authorization is the raw header, set once an authentication resolves.
	Authorization string

	// Authentication is nil for guests.
	Authentication *identity.Authentication
}

// IsAuthenticated reports whether an authentication was resolved.
func (rc *RequestContext) IsAuthenticated() bool {
	return rc != nil && rc.Authentication != nil
}

type requestContextKey struct{}

type authoritiesKey struct{}

// WithRequestContext stores rc in the context.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom retrieves the request context, or nil.
func RequestContextFrom(ctx context.Context) *RequestContext {
	if v, ok := ctx.Value(requestContextKey{}).(*RequestContext); ok {
		return v
	}
	return nil
}

// AuthenticationFromContext returns the resolved authentication, or nil
// for guests.
func AuthenticationFromContext(ctx context.Context) *identity.Authentication {
	if rc := RequestContextFrom(ctx); rc != nil {
		return rc.Authentication
	}
	return nil
}

// AccessControl receives the authorities of a resolved request.
type AccessControl interface {
	Publish(ctx context.Context, authorities []string) context.Context
}

// ContextAccessControl publishes authorities into the context, where
// AuthoritiesFromContext and HasAuthority find them.
type ContextAccessControl struct{}

// Publish stores authorities in ctx.
func (ContextAccessControl) Publish(ctx context.Context, authorities []string) context.Context {
	return WithAuthorities(ctx, authorities)
}

// WithAuthorities stores a copy of authorities in the context.
func WithAuthorities(ctx context.Context, authorities []string) context.Context {
	cp := make([]string, len(authorities))
	copy(cp, authorities)
	return context.WithValue(ctx, authoritiesKey{}, cp)
}

// AuthoritiesFromContext returns the published authorities, or nil.
func AuthoritiesFromContext(ctx context.Context) []string {
	v, _ := ctx.Value(authoritiesKey{}).([]string)
	return v
}

// HasAuthority reports whether name was published for this request.
func HasAuthority(ctx context.Context, name string) bool {
	for _, a := range AuthoritiesFromContext(ctx) {
		if a == name {
			return true
		}
	}
	return false
}
