package apikey

import (
	"context"
	"errors"
	"testing"

	"github.com/rhuss/portier/pkg/auth"
)

func newTestManager() *Manager {
	return New([]Entry{
		{
			Key:      "sk-test-key-1",
			Username: "alice",
			TenantID: "org-1",
			Roles:    []string{"admin"},
		},
		{
			Username:    "bob",
			Password:    "hunter2",
			Application: "billing",
			Permissions: []string{"invoices:read"},
		},
	})
}

func TestValidKey(t *testing.T) {
	m := newTestManager()

	a, err := m.AuthenticateToken(context.Background(), &auth.RequestContext{}, "sk-test-key-1")
	if err != nil {
		t.Fatalf("AuthenticateToken: %v", err)
	}
	if a == nil || a.Username != "alice" || a.TenantID != "org-1" {
		t.Fatalf("Authentication = %+v", a)
	}
	if !a.HasRole("admin") {
		t.Error("alice should hold admin")
	}
}

func TestUnknownKeyAbstains(t *testing.T) {
	m := newTestManager()

	a, err := m.AuthenticateToken(context.Background(), &auth.RequestContext{}, "eyJhbGciOi.not.a.key")
	if a != nil || err != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", a, err)
	}
}

func TestKeyTenantMismatch(t *testing.T) {
	m := newTestManager()

	_, err := m.AuthenticateToken(context.Background(), &auth.RequestContext{TenantID: "org-2"}, "sk-test-key-1")
	if !errors.Is(err, ErrTenantMismatch) {
		t.Errorf("err = %v, want ErrTenantMismatch", err)
	}

	a, err := m.AuthenticateToken(context.Background(), &auth.RequestContext{TenantID: "default"}, "sk-test-key-1")
	if err != nil || a.TenantID != "org-1" {
		t.Errorf("default scope: got (%+v, %v)", a, err)
	}
}

func TestCredentials(t *testing.T) {
	m := newTestManager()
	rc := &auth.RequestContext{TenantID: "org-7"}

	a, err := m.AuthenticateCredentials(context.Background(), rc, "bob", "hunter2")
	if err != nil {
		t.Fatalf("AuthenticateCredentials: %v", err)
	}
	if a.Application != "billing" || a.TenantID != "org-7" || !a.HasPermission("invoices:read") {
		t.Errorf("Authentication = %+v", a)
	}

	if _, err := m.AuthenticateCredentials(context.Background(), rc, "bob", "wrong"); err == nil {
		t.Error("wrong password should fail")
	}

	if a, err := m.AuthenticateCredentials(context.Background(), rc, "carol", "x"); a != nil || err != nil {
		t.Errorf("unknown user: got (%v, %v), want (nil, nil)", a, err)
	}
}

func TestGateIntegration(t *testing.T) {
	gate := auth.NewGate(newTestManager(), nil)

	rc := &auth.RequestContext{}
	ctx, err := gate.Handle(context.Background(), rc, "Bearer sk-test-key-1")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !auth.HasAuthority(ctx, auth.HasTenant) || !auth.HasAuthority(ctx, "admin") {
		t.Errorf("authorities = %v", auth.AuthoritiesFromContext(ctx))
	}
}
