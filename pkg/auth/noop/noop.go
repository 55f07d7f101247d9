// Package noop provides a development AuthManager that accepts any basic
// credentials. It never handles bearer tokens.
package noop

import (
	"context"

	"github.com/rhuss/portier/pkg/auth"
	"github.com/rhuss/portier/pkg/identity"
)

// Manager treats every basic login as a valid user of the request tenant.
type Manager struct{}

var _ auth.AuthManager = Manager{}

func (Manager) AuthenticateToken(context.Context, *auth.RequestContext, string) (*identity.Authentication, error) {
	return nil, nil
}

func (Manager) AuthenticateCredentials(_ context.Context, rc *auth.RequestContext, username, _ string) (*identity.Authentication, error) {
	if username == "" {
		return nil, nil
	}
	return &identity.Authentication{
		Username:  username,
		TenantID:  rc.TenantID,
		Principal: username,
	}, nil
}
