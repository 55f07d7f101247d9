package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/portier/pkg/auth"
	"github.com/rhuss/portier/pkg/config"
	"github.com/rhuss/portier/pkg/identity"
	"github.com/rhuss/portier/pkg/observability"
	"github.com/rhuss/portier/pkg/tenant"
	"github.com/rhuss/portier/pkg/tokens"
	"github.com/rhuss/portier/pkg/transport"
)

const maxBodySize = 64 << 10

// readiness is implemented by managers with a backing store.
type readiness interface {
	Ping(ctx context.Context) error
}

// issuer mints tokens. *tokens.Codec implements it.
type issuer interface {
	Create(kind tokens.Kind, subject string, claims map[string]any, ttlMinutes int) (tokens.Token, error)
}

type whoamiResponse struct {
	Authenticated bool     `json:"authenticated"`
	Username      string   `json:"username,omitempty"`
	Tenant        string   `json:"tenant,omitempty"`
	Application   string   `json:"application,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
	Authorities   []string `json:"authorities,omitempty"`
}

type issueRequest struct {
	Subject    string         `json:"subject"`
	Claims     map[string]any `json:"claims,omitempty"`
	TTLMinutes int            `json:"ttl_minutes,omitempty"`
}

func newHandler(cfg *config.Config, codec issuer, gate *auth.Gate, ready readiness) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready.Ping(ctx); err != nil {
				transport.WriteError(w, http.StatusServiceUnavailable, transport.ErrorTypeServer, "not ready")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	bypass := []string{"/healthz", "/readyz"}
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
		bypass = append(bypass, cfg.Observability.Metrics.Path)
	}

	mux.HandleFunc("GET /v1/whoami", handleWhoami)
	mux.Handle("POST /v1/tokens", auth.RequireAuthority(auth.IsService)(handleIssue(codec)))

	authn := auth.Middleware(gate, auth.MiddlewareConfig{
		TenantHeader:      cfg.Auth.TenantHeader,
		ApplicationHeader: cfg.Auth.ApplicationHeader,
		BypassEndpoints:   bypass,
	})
	return transport.Chain(observability.MetricsMiddleware, authn)(mux)
}

func handleWhoami(w http.ResponseWriter, r *http.Request) {
	resp := whoamiResponse{Tenant: tenant.Current(r.Context())}
	if rc := auth.RequestContextFrom(r.Context()); rc.IsAuthenticated() {
		a := rc.Authentication
		resp.Authenticated = true
		resp.Username = a.Username
		resp.Application = a.Application
		if rc.ApplicationName != "" {
			resp.Application = rc.ApplicationName
		}
		resp.Roles = a.Roles.Sorted()
		resp.Permissions = a.Permissions.Sorted()
		resp.Authorities = auth.AuthoritiesFromContext(r.Context())
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

// handleIssue mints a token for the requested subject. The active tenant
// is embedded unless the caller supplies one.
func handleIssue(codec issuer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req issueRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			transport.WriteError(w, http.StatusBadRequest, transport.ErrorTypeInvalidRequest, "malformed request body")
			return
		}
		if req.Subject == "" {
			transport.WriteError(w, http.StatusBadRequest, transport.ErrorTypeInvalidRequest, "subject is required")
			return
		}

		claims := req.Claims
		if claims == nil {
			claims = map[string]any{}
		}
		if id := tenant.Current(r.Context()); id != "" {
			if _, ok := identity.Lookup(claims, identity.TenantAliases...); !ok {
				claims["tenantId"] = id
			}
		}

		tok, err := codec.Create(tokens.JWT, req.Subject, claims, req.TTLMinutes)
		switch {
		case errors.Is(err, tokens.ErrConfiguration):
			transport.WriteError(w, http.StatusNotImplemented, transport.ErrorTypeServer, "token issuance is not configured")
			return
		case err != nil:
			transport.WriteError(w, http.StatusInternalServerError, transport.ErrorTypeServer, "token issuance failed")
			return
		}
		transport.WriteJSON(w, http.StatusCreated, tok)
	})
}
