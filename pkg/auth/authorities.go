package auth

import (
	"strings"

	"github.com/rhuss/portier/pkg/identity"
	"github.com/rhuss/portier/pkg/tenant"
)

// Built-in authority names.
const (
	IsAuthenticated = "IS_AUTHENTICATED"
	IsUser          = "IS_USER"
	HasUserProfile  = "HAS_USER_PROFILE"
	IsApplication   = "IS_APPLICATION"
	HasApplication  = "HAS_APPLICATION"
	HasTenant       = "HAS_TENANT"

	// IsService is granted to callers presenting the shared secret.
	IsService = "IS_SERVICE"
)

// DeriveAuthorities computes the authority list of a resolved request.
// The application and tenant come from rc, falling back to a. Role and
// permission names are only trimmed; their case is kept.
func DeriveAuthorities(rc *RequestContext, a *identity.Authentication) []string {
	var out []string
	seen := make(map[string]bool)
	grant := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	grant(IsAuthenticated)
	if !a.Profile.IsEmpty() {
		grant(IsUser)
		grant(HasUserProfile)
	} else {
		grant(IsApplication)
	}

	application, tenantID := a.Application, a.TenantID
	if rc != nil {
		if rc.ApplicationName != "" {
			application = rc.ApplicationName
		}
		if rc.TenantID != "" {
			tenantID = rc.TenantID
		}
	}
	if application != "" {
		grant(HasApplication)
	}
	if tenant.Normalize(tenantID) != "" {
		grant(HasTenant)
	}

	for _, role := range a.Roles.Sorted() {
		grant(role)
	}
	for _, permission := range a.Permissions.Sorted() {
		grant(permission)
	}
	return out
}
