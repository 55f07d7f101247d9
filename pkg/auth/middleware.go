package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/portier/pkg/identity"
	"github.com/rhuss/portier/pkg/tenant"
	"github.com/rhuss/portier/pkg/transport"
)

// DefaultApplicationHeader names the calling application.
const DefaultApplicationHeader = "X-Application"

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// TenantHeader defaults to identity.TenantHeader.
	TenantHeader string

	// ApplicationHeader defaults to DefaultApplicationHeader.
	ApplicationHeader string

	// BypassEndpoints are served without running the gate.
	BypassEndpoints []string
}

// Middleware runs gate for every request. Each request gets its own tenant
// scope, seeded from the tenant header and otherwise from the resolved
// authentication. Guests pass through; handlers that need an identity
// wrap themselves in RequireAuthority.
func Middleware(gate *Gate, cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.TenantHeader == "" {
		cfg.TenantHeader = identity.TenantHeader
	}
	if cfg.ApplicationHeader == "" {
		cfg.ApplicationHeader = DefaultApplicationHeader
	}
	bypass := make(map[string]bool, len(cfg.BypassEndpoints))
	for _, ep := range cfg.BypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := tenant.Fork(r.Context())
			rc := &RequestContext{
				TenantID:        tenant.Normalize(r.Header.Get(cfg.TenantHeader)),
				ApplicationName: r.Header.Get(cfg.ApplicationHeader),
			}
			tenant.Set(ctx, rc.TenantID)

			ctx, err := gate.Handle(ctx, rc, r.Header.Get("Authorization"))
			if err != nil {
				slog.WarnContext(ctx, "authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				transport.WriteError(w, http.StatusUnauthorized, transport.ErrorTypeUnauthorized, ErrUnauthenticated.Error())
				return
			}

			if rc.TenantID == "" && rc.IsAuthenticated() {
				tenant.Set(ctx, rc.Authentication.TenantID)
			}

			next.ServeHTTP(w, r.WithContext(WithRequestContext(ctx, rc)))
		})
	}
}

// RequireAuthority rejects guests with 401 and callers lacking any of
// names with 403.
func RequireAuthority(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !RequestContextFrom(r.Context()).IsAuthenticated() {
				transport.WriteError(w, http.StatusUnauthorized, transport.ErrorTypeUnauthorized, ErrUnauthenticated.Error())
				return
			}
			for _, name := range names {
				if !HasAuthority(r.Context(), name) {
					slog.WarnContext(r.Context(), "missing authority", "authority", name, "path", r.URL.Path)
					transport.WriteError(w, http.StatusForbidden, transport.ErrorTypeForbidden, ErrForbidden.Error())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
