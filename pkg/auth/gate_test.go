package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rhuss/portier/pkg/identity"
	"github.com/rhuss/portier/pkg/observability"
	"github.com/rhuss/portier/pkg/tokens"
)

type fakeManager struct {
	tokenAuth *identity.Authentication
	tokenErr  error
	credAuth  *identity.Authentication
	credErr   error

	tokenCalls int
	credCalls  int
	gotUser    string
	gotPass    string
}

func (m *fakeManager) AuthenticateToken(_ context.Context, _ *RequestContext, _ string) (*identity.Authentication, error) {
	m.tokenCalls++
	return m.tokenAuth, m.tokenErr
}

func (m *fakeManager) AuthenticateCredentials(_ context.Context, _ *RequestContext, user, pass string) (*identity.Authentication, error) {
	m.credCalls++
	m.gotUser, m.gotPass = user, pass
	return m.credAuth, m.credErr
}

type fakeDecoder struct {
	auth   *identity.Authentication
	err    error
	secret string
	calls  int
}

func (d *fakeDecoder) Decode(string) (*identity.Authentication, error) {
	d.calls++
	return d.auth, d.err
}

func (d *fakeDecoder) Secret() string { return d.secret }

type recordingAccess struct {
	published [][]string
}

func (r *recordingAccess) Publish(ctx context.Context, authorities []string) context.Context {
	r.published = append(r.published, authorities)
	return ctx
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestGate_BearerDerivesAuthorities(t *testing.T) {
	decoder := &fakeDecoder{auth: &identity.Authentication{
		Username:    "alice",
		TenantID:    "t1",
		Profile:     identity.Profile{Email: "alice@example.com"},
		Roles:       identity.NewSet("admin"),
		Permissions: identity.NewSet("read"),
	}}
	gate := NewGate(&fakeManager{}, decoder)

	rc := &RequestContext{}
	ctx, err := gate.Handle(context.Background(), rc, "Bearer abc.def.ghi")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	want := []string{IsAuthenticated, IsUser, HasUserProfile, HasTenant, "admin", "read"}
	if got := AuthoritiesFromContext(ctx); !slices.Equal(got, want) {
		t.Errorf("authorities = %v, want %v", got, want)
	}
	if rc.Authentication == nil || rc.Authentication.Username != "alice" {
		t.Errorf("rc.Authentication = %+v", rc.Authentication)
	}
	if rc.Authorization != "Bearer abc.def.ghi" {
		t.Errorf("rc.Authorization = %q", rc.Authorization)
	}
}

func TestGate_BearerPrefixCaseInsensitive(t *testing.T) {
	decoder := &fakeDecoder{auth: &identity.Authentication{Username: "bob"}}
	gate := NewGate(nil, decoder)

	rc := &RequestContext{}
	if _, err := gate.Handle(context.Background(), rc, "BEARER tok"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !rc.IsAuthenticated() {
		t.Error("upper case scheme should authenticate")
	}
}

func TestGate_ManagerWinsOverDecoder(t *testing.T) {
	manager := &fakeManager{tokenAuth: &identity.Authentication{Username: "local"}}
	decoder := &fakeDecoder{auth: &identity.Authentication{Username: "remote"}}
	gate := NewGate(manager, decoder)

	rc := &RequestContext{}
	if _, err := gate.Handle(context.Background(), rc, "Bearer tok"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if rc.Authentication.Username != "local" {
		t.Errorf("Username = %q, want local", rc.Authentication.Username)
	}
	if decoder.calls != 0 {
		t.Errorf("decoder calls = %d, want 0", decoder.calls)
	}
}

func TestGate_ManagerErrorRejects(t *testing.T) {
	manager := &fakeManager{tokenErr: errors.New("revoked")}
	decoder := &fakeDecoder{auth: &identity.Authentication{Username: "remote"}}
	gate := NewGate(manager, decoder)

	_, err := gate.Handle(context.Background(), &RequestContext{}, "Bearer tok")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
	if decoder.calls != 0 {
		t.Error("decoder should not run after a manager rejection")
	}
}

func TestGate_DecoderFailureIsError(t *testing.T) {
	verr := errors.New("signature mismatch")
	gate := NewGate(&fakeManager{}, &fakeDecoder{err: verr})

	rc := &RequestContext{}
	_, err := gate.Handle(context.Background(), rc, "Bearer bad")
	if !errors.Is(err, ErrUnauthenticated) || !errors.Is(err, verr) {
		t.Errorf("err = %v, want ErrUnauthenticated wrapping verifier error", err)
	}
	if rc.IsAuthenticated() || rc.Authorization != "" {
		t.Error("failed authentication must not mutate the request context")
	}
}

func TestGate_EmptyBearerRejects(t *testing.T) {
	decoder := &fakeDecoder{}
	gate := NewGate(nil, decoder)

	if _, err := gate.Handle(context.Background(), &RequestContext{}, "Bearer   "); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
	if decoder.calls != 0 {
		t.Error("decoder should not see an empty token")
	}
}

func TestGate_EmptyHeaderIsGuest(t *testing.T) {
	access := &recordingAccess{}
	manager := &fakeManager{}
	gate := NewGate(manager, &fakeDecoder{}, WithAccessControl(access))

	base := context.Background()
	rc := &RequestContext{TenantID: "t1", ApplicationName: "web"}
	ctx, err := gate.Handle(base, rc, "")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if ctx != base {
		t.Error("guest context should be returned unchanged")
	}
	if *rc != (RequestContext{TenantID: "t1", ApplicationName: "web"}) {
		t.Errorf("rc mutated: %+v", rc)
	}
	if len(access.published) != 0 || manager.tokenCalls+manager.credCalls != 0 {
		t.Error("guest should not consult collaborators or publish")
	}
}

func TestGate_GuestHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"unknown scheme", "Digest username=x"},
		{"invalid base64", "Basic not*base64"},
		{"no separator", "Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := &fakeManager{credAuth: &identity.Authentication{Username: "x"}}
			access := &recordingAccess{}
			gate := NewGate(manager, &fakeDecoder{secret: "s"}, WithAccessControl(access))

			rc := &RequestContext{}
			if _, err := gate.Handle(context.Background(), rc, tt.header); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if rc.IsAuthenticated() {
				t.Error("should stay guest")
			}
			if manager.credCalls != 0 || len(access.published) != 0 {
				t.Error("guest header should not reach the manager or publish")
			}
		})
	}
}

func TestGate_NilCollaboratorsYieldGuest(t *testing.T) {
	gate := NewGate(nil, nil)

	for _, header := range []string{"Bearer tok", basicHeader("u", "p")} {
		rc := &RequestContext{}
		if _, err := gate.Handle(context.Background(), rc, header); err != nil {
			t.Errorf("%s: %v", header, err)
		}
		if rc.IsAuthenticated() {
			t.Errorf("%s: should be guest", header)
		}
	}
}

func TestGate_ServiceIdentity(t *testing.T) {
	manager := &fakeManager{}
	gate := NewGate(manager, &fakeDecoder{secret: "s3cr3t"})

	rc := &RequestContext{TenantID: "t9"}
	ctx, err := gate.Handle(context.Background(), rc, basicHeader("svc", "s3cr3t"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	a := rc.Authentication
	if a == nil || a.Application != "svc" || a.Principal != "svc" || a.TenantID != "t9" {
		t.Fatalf("Authentication = %+v", a)
	}
	if !a.HasRole(IsService) || !a.HasPermission(IsService) {
		t.Error("service identity should carry IS_SERVICE")
	}
	for _, name := range []string{IsAuthenticated, IsApplication, HasApplication, HasTenant, IsService} {
		if !HasAuthority(ctx, name) {
			t.Errorf("missing authority %s", name)
		}
	}
	if manager.credCalls != 0 {
		t.Error("manager should not be consulted for the shared secret")
	}
}

func TestGate_WrongSecretFallsThrough(t *testing.T) {
	manager := &fakeManager{credAuth: &identity.Authentication{Username: "svc"}}
	gate := NewGate(manager, &fakeDecoder{secret: "s3cr3t"})

	rc := &RequestContext{}
	if _, err := gate.Handle(context.Background(), rc, basicHeader("svc", "wrong")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if manager.gotUser != "svc" || manager.gotPass != "wrong" {
		t.Errorf("manager got (%q, %q), want (svc, wrong)", manager.gotUser, manager.gotPass)
	}
	if rc.Authentication.HasRole(IsService) {
		t.Error("fallthrough identity must not be a service")
	}
}

func TestGate_EmptySecretNeverMatches(t *testing.T) {
	manager := &fakeManager{}
	gate := NewGate(manager, &fakeDecoder{})

	rc := &RequestContext{}
	if _, err := gate.Handle(context.Background(), rc, basicHeader("svc", "")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if rc.IsAuthenticated() {
		t.Error("empty password must not match an unset secret")
	}
	if manager.credCalls != 1 {
		t.Errorf("manager calls = %d, want 1", manager.credCalls)
	}
}

func TestGate_BasicManagerRejects(t *testing.T) {
	manager := &fakeManager{credErr: errors.New("bad password")}
	gate := NewGate(manager, nil)

	if _, err := gate.Handle(context.Background(), &RequestContext{}, basicHeader("alice", "x")); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestGate_PasswordWithColon(t *testing.T) {
	manager := &fakeManager{credAuth: &identity.Authentication{Username: "alice"}}
	gate := NewGate(manager, nil)

	if _, err := gate.Handle(context.Background(), &RequestContext{}, basicHeader("alice", "a:b")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if manager.gotPass != "a:b" {
		t.Errorf("password = %q, want a:b", manager.gotPass)
	}
}

func TestGate_WithCodec(t *testing.T) {
	codec, err := tokens.New(context.Background(), tokens.Config{Issuer: "portier", Secret: "shared"})
	if err != nil {
		t.Fatalf("tokens.New: %v", err)
	}
	tok, err := codec.CreateDefault(tokens.JWT, "alice", map[string]any{
		"tenantId": "acme",
		"roles":    "admin,ops",
	})
	if err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}

	gate := NewGate(nil, codec)
	rc := &RequestContext{}
	ctx, err := gate.Handle(context.Background(), rc, "Bearer "+tok.Value)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if rc.Authentication.Username != "alice" || rc.Authentication.TenantID != "acme" {
		t.Errorf("Authentication = %+v", rc.Authentication)
	}
	for _, name := range []string{HasTenant, "admin", "ops"} {
		if !HasAuthority(ctx, name) {
			t.Errorf("missing authority %s", name)
		}
	}

	// The codec secret doubles as the service identity secret.
	rc = &RequestContext{}
	if _, err := gate.Handle(context.Background(), rc, basicHeader("batch", "shared")); err != nil {
		t.Fatalf("Handle basic: %v", err)
	}
	if !rc.Authentication.HasRole(IsService) {
		t.Error("shared secret should grant IS_SERVICE")
	}
}

func TestGate_RecordsAttempts(t *testing.T) {
	rejected := observability.AuthAttemptsTotal.WithLabelValues("bearer", "rejected")
	guests := observability.AuthAttemptsTotal.WithLabelValues("none", "guest")
	beforeRejected, beforeGuests := testutil.ToFloat64(rejected), testutil.ToFloat64(guests)

	gate := NewGate(nil, &fakeDecoder{err: errors.New("bad")})
	_, _ = gate.Handle(context.Background(), &RequestContext{}, "Bearer x")
	_, _ = gate.Handle(context.Background(), &RequestContext{}, "")

	if got := testutil.ToFloat64(rejected) - beforeRejected; got != 1 {
		t.Errorf("rejected delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(guests) - beforeGuests; got != 1 {
		t.Errorf("guest delta = %v, want 1", got)
	}
}

func TestGate_NilRequestContext(t *testing.T) {
	decoder := &fakeDecoder{auth: &identity.Authentication{Username: "alice"}, secret: "s3cr3t"}
	gate := NewGate(&fakeManager{}, decoder)

	for _, header := range []string{"", "Bearer tok", basicHeader("svc", "s3cr3t")} {
		ctx, err := gate.Handle(context.Background(), nil, header)
		if err != nil {
			t.Errorf("%q: Handle: %v", header, err)
		}
		if header != "" && !HasAuthority(ctx, IsAuthenticated) {
			t.Errorf("%q: authorities not published", header)
		}
	}
}

func TestGate_TenantMismatch(t *testing.T) {
	decoder := &fakeDecoder{auth: &identity.Authentication{Username: "alice", TenantID: "acme"}}
	gate := NewGate(nil, decoder)

	tests := []struct {
		name    string
		tenant  string
		wantErr bool
	}{
		{"no scope", "", false},
		{"same tenant", "acme", false},
		{"default scope", "default", false},
		{"other tenant", "globex", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &RequestContext{TenantID: tt.tenant}
			_, err := gate.Handle(context.Background(), rc, "Bearer tok")
			if !tt.wantErr {
				if err != nil || !rc.IsAuthenticated() {
					t.Errorf("err = %v, authenticated = %v", err, rc.IsAuthenticated())
				}
				return
			}
			if !errors.Is(err, ErrUnauthenticated) || !errors.Is(err, ErrTenantMismatch) {
				t.Errorf("err = %v, want ErrUnauthenticated and ErrTenantMismatch", err)
			}
			if rc.IsAuthenticated() {
				t.Error("mismatched tenant must not populate rc")
			}
		})
	}
}
