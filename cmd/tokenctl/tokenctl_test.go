package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portier.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIssueAndVerify(t *testing.T) {
	cfg := writeConfig(t, "tokens:\n  issuer: portier\n  secret: cli-secret\n")

	token, err := execute(t, "issue", "alice", "-c", cfg, "--tenant", "acme", "--role", "admin", "--role", "ops", "--claim", "live=true", "--raw")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	out, err := execute(t, "verify", strings.TrimSpace(token), "-c", cfg)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	var got verifyOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding: %v (%s)", err, out)
	}
	if got.Subject != "alice" || got.Tenant != "acme" {
		t.Errorf("output = %+v", got)
	}
	for _, want := range []string{"IS_AUTHENTICATED", "HAS_TENANT", "admin", "ops"} {
		if !slices.Contains(got.Authorities, want) {
			t.Errorf("authorities %v missing %s", got.Authorities, want)
		}
	}
	if got.Claims["live"] != true {
		t.Errorf("live claim = %v, want true", got.Claims["live"])
	}
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	a := writeConfig(t, "tokens:\n  secret: one\n")
	b := writeConfig(t, "tokens:\n  secret: two\n")

	token, err := execute(t, "issue", "bob", "-c", a, "--raw")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := execute(t, "verify", strings.TrimSpace(token), "-c", b); err == nil {
		t.Error("verify with another secret should fail")
	}
}

func TestIssueJSONOutput(t *testing.T) {
	cfg := writeConfig(t, "tokens:\n  secret: s\n")

	out, err := execute(t, "issue", "carol", "-c", cfg, "--ttl", "5")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	var tok struct {
		Value   string `json:"value"`
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal([]byte(out), &tok); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if tok.Subject != "carol" || strings.Count(tok.Value, ".") != 2 {
		t.Errorf("token = %+v", tok)
	}
}

func TestParseClaims(t *testing.T) {
	got, err := parseClaims([]string{"a=1", "b=true", "c=x=y"})
	if err != nil {
		t.Fatalf("parseClaims: %v", err)
	}
	if got["a"] != int64(1) || got["b"] != true || got["c"] != "x=y" {
		t.Errorf("claims = %v", got)
	}
	if _, err := parseClaims([]string{"novalue"}); err == nil {
		t.Error("expected error for missing =")
	}
}

func TestPrincipalAddNeedsPostgres(t *testing.T) {
	cfg := writeConfig(t, "tokens:\n  secret: s\n")

	_, err := execute(t, "principal", "add", "dave", "-c", cfg, "--password", "pw")
	if err == nil || !strings.Contains(err.Error(), "postgres") {
		t.Errorf("err = %v, want postgres requirement", err)
	}
}
