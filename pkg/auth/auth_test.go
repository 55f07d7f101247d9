package auth

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/rhuss/portier/pkg/identity"
)

type fixedAuthn struct {
	result AuthResult
	calls  int
}

func (f *fixedAuthn) Authenticate(context.Context, *RequestContext, Credentials) AuthResult {
	f.calls++
	return f.result
}

func TestAuthChain_FirstYesStops(t *testing.T) {
	second := &fixedAuthn{result: AuthResult{Decision: No, Err: ErrUnauthenticated}}
	chain := &AuthChain{Authenticators: []Authenticator{
		&fixedAuthn{result: AuthResult{Decision: Yes, Authentication: &identity.Authentication{Username: "alice"}}},
		second,
	}}

	result := chain.Authenticate(context.Background(), &RequestContext{}, Credentials{})
	if result.Decision != Yes || result.Authentication.Username != "alice" {
		t.Errorf("result = %+v, want Yes for alice", result)
	}
	if second.calls != 0 {
		t.Error("second authenticator should not run")
	}
}

func TestAuthChain_FirstNoStops(t *testing.T) {
	chain := &AuthChain{Authenticators: []Authenticator{
		&fixedAuthn{result: AuthResult{Decision: No, Err: ErrUnauthenticated}},
		&fixedAuthn{result: AuthResult{Decision: Yes, Authentication: &identity.Authentication{}}},
	}}

	result := chain.Authenticate(context.Background(), &RequestContext{}, Credentials{})
	if result.Decision != No {
		t.Errorf("Decision = %d, want No", result.Decision)
	}
}

func TestAuthChain_AllAbstain(t *testing.T) {
	chain := &AuthChain{Authenticators: []Authenticator{
		&fixedAuthn{result: AuthResult{Decision: Abstain}},
		&fixedAuthn{result: AuthResult{Decision: Abstain}},
	}}

	if got := chain.Authenticate(context.Background(), &RequestContext{}, Credentials{}).Decision; got != Abstain {
		t.Errorf("Decision = %d, want Abstain", got)
	}
	if got := (&AuthChain{}).Authenticate(context.Background(), &RequestContext{}, Credentials{}).Decision; got != Abstain {
		t.Errorf("empty chain Decision = %d, want Abstain", got)
	}
}

func TestVote(t *testing.T) {
	boom := errors.New("boom")
	if r := vote(nil, boom); r.Decision != No || !errors.Is(r.Err, boom) {
		t.Errorf("error vote = %+v", r)
	}
	if r := vote(nil, nil); r.Decision != Abstain {
		t.Errorf("nil vote = %+v", r)
	}
	if r := vote(&identity.Authentication{}, nil); r.Decision != Yes {
		t.Errorf("auth vote = %+v", r)
	}
}

func TestDeriveAuthorities(t *testing.T) {
	tests := []struct {
		name string
		rc   *RequestContext
		a    *identity.Authentication
		want []string
	}{
		{
			name: "user with tenant and roles",
			rc:   &RequestContext{TenantID: "t1"},
			a: &identity.Authentication{
				Profile:     identity.Profile{Email: "a@x"},
				Roles:       identity.NewSet("admin"),
				Permissions: identity.NewSet("read", "write"),
			},
			want: []string{IsAuthenticated, IsUser, HasUserProfile, HasTenant, "admin", "read", "write"},
		},
		{
			name: "application from authentication",
			rc:   &RequestContext{},
			a:    &identity.Authentication{Application: "billing"},
			want: []string{IsAuthenticated, IsApplication, HasApplication},
		},
		{
			name: "request values win and default tenant is none",
			rc:   &RequestContext{ApplicationName: "web", TenantID: "default"},
			a:    &identity.Authentication{},
			want: []string{IsAuthenticated, IsApplication, HasApplication},
		},
		{
			name: "duplicates and blanks dropped",
			rc:   &RequestContext{},
			a: &identity.Authentication{
				TenantID:    "t2",
				Roles:       identity.NewSet(" Admin ", "IS_AUTHENTICATED"),
				Permissions: identity.NewSet("Admin", " "),
			},
			want: []string{IsAuthenticated, IsApplication, HasTenant, "Admin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveAuthorities(tt.rc, tt.a)
			if !slices.Equal(got, tt.want) {
				t.Errorf("DeriveAuthorities = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasAuthority(t *testing.T) {
	ctx := ContextAccessControl{}.Publish(context.Background(), []string{IsAuthenticated, "admin"})
	if !HasAuthority(ctx, "admin") {
		t.Error("admin should be published")
	}
	if HasAuthority(ctx, "ADMIN") {
		t.Error("authority match should be case sensitive")
	}
	if HasAuthority(context.Background(), IsAuthenticated) {
		t.Error("empty context should carry no authorities")
	}
}
