// Package apikey provides an AuthManager backed by a static key store.
// Bearer keys and basic passwords are held as SHA-256 hashes and compared
// in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"github.com/rhuss/portier/pkg/auth"
	"github.com/rhuss/portier/pkg/identity"
	"github.com/rhuss/portier/pkg/tenant"
)

// ErrTenantMismatch is returned when a key bound to one tenant is used in
// the scope of another.
var ErrTenantMismatch = auth.ErrTenantMismatch

// Entry is the configuration format for one principal. Key enables
// bearer authentication, Username and Password enable basic
// authentication. Either may be empty.
type Entry struct {
	Key      string
	Username string
	Password string

	TenantID    string
	Application string
	Roles       []string
	Permissions []string
}

type storedEntry struct {
	keyHash      [32]byte
	hasKey       bool
	username     string
	passwordHash [32]byte
	entry        Entry
}

// Manager authenticates against the configured entries. Unknown bearer
// keys and unknown usernames abstain so the token decoder can run.
type Manager struct {
	entries []storedEntry
}

var _ auth.AuthManager = (*Manager)(nil)

// New hashes the entries. Plaintext secrets are not retained.
func New(entries []Entry) *Manager {
	m := &Manager{}
	for _, e := range entries {
		s := storedEntry{
			username:     e.Username,
			passwordHash: sha256.Sum256([]byte(e.Password)),
			hasKey:       e.Key != "",
			keyHash:      sha256.Sum256([]byte(e.Key)),
			entry:        e,
		}
		s.entry.Key, s.entry.Password = "", ""
		m.entries = append(m.entries, s)
	}
	return m
}

// AuthenticateToken matches token against the stored key hashes.
func (m *Manager) AuthenticateToken(ctx context.Context, rc *auth.RequestContext, token string) (*identity.Authentication, error) {
	tokenHash := sha256.Sum256([]byte(token))
	for _, s := range m.entries {
		if s.hasKey && subtle.ConstantTimeCompare(tokenHash[:], s.keyHash[:]) == 1 {
			return s.authentication(ctx, rc, s.username)
		}
	}
	return nil, nil
}

// AuthenticateCredentials checks the password of a known username. A
// wrong password rejects the request.
func (m *Manager) AuthenticateCredentials(ctx context.Context, rc *auth.RequestContext, username, password string) (*identity.Authentication, error) {
	passwordHash := sha256.Sum256([]byte(password))
	for _, s := range m.entries {
		if s.username == "" || s.username != username {
			continue
		}
		if subtle.ConstantTimeCompare(passwordHash[:], s.passwordHash[:]) != 1 {
			return nil, fmt.Errorf("invalid password for %q", username)
		}
		return s.authentication(ctx, rc, username)
	}
	return nil, nil
}

func (s storedEntry) authentication(ctx context.Context, rc *auth.RequestContext, username string) (*identity.Authentication, error) {
	scope := tenant.Normalize(rc.TenantID)
	if scope == "" {
		scope = tenant.Current(ctx)
	}
	bound := tenant.Normalize(s.entry.TenantID)
	if bound != "" && scope != "" && bound != scope {
		return nil, fmt.Errorf("%w: %s", ErrTenantMismatch, bound)
	}

	tenantID := bound
	if tenantID == "" {
		tenantID = scope
	}
	return &identity.Authentication{
		Username:    username,
		TenantID:    tenantID,
		Application: s.entry.Application,
		Principal:   username,
		Roles:       identity.NewSet(s.entry.Roles...),
		Permissions: identity.NewSet(s.entry.Permissions...),
	}, nil
}
