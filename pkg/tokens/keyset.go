package tokens

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	jose "github.com/go-jose/go-jose/v4"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

// maxKeySetSize bounds the size of a fetched JWKS document.
const maxKeySetSize = 1 << 20

// isRemote reports whether location must be fetched over HTTP.
func isRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// loadKeySet reads and parses a JWKS document from a file path or URL.
// This is the only blocking I/O performed by the package.
func loadKeySet(ctx context.Context, client *http.Client, location string) (*jose.JSONWebKeySet, error) {
	var (
		data []byte
		err  error
	)
	if isRemote(location) {
		data, err = fetchKeySet(ctx, client, location)
	} else {
		data, err = os.ReadFile(strings.TrimPrefix(location, "file://"))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrKeySet, location, err)
	}

	var set jose.JSONWebKeySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrKeySet, location, err)
	}
	if len(set.Keys) == 0 {
		return nil, fmt.Errorf("%w: %s contains no keys", ErrKeySet, location)
	}

	slog.Debug("key set loaded", "location", location, "keys", len(set.Keys))
	return &set, nil
}

func fetchKeySet(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxKeySetSize))
}

// keySetVerifier verifies tokens against the public keys of a JWKS
// document, accepting a single algorithm.
type keySetVerifier struct {
	algorithm string
	byKID     map[string]any
	all       []any
}

func newKeySetVerifier(set *jose.JSONWebKeySet, algorithm string) (*keySetVerifier, error) {
	v := &keySetVerifier{
		algorithm: algorithm,
		byKID:     make(map[string]any),
	}
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub := k.Public()
		if !verificationKeyType(pub.Key) {
			slog.Warn("skipping key set entry", "kid", k.KeyID, "type", fmt.Sprintf("%T", k.Key))
			continue
		}
		if k.KeyID != "" {
			v.byKID[k.KeyID] = pub.Key
		}
		v.all = append(v.all, pub.Key)
	}
	if len(v.all) == 0 {
		return nil, fmt.Errorf("%w: no usable verification keys", ErrKeySet)
	}
	return v, nil
}

func verificationKeyType(key any) bool {
	switch key.(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		return true
	default:
		return false
	}
}

func (v *keySetVerifier) strategy() string { return "key_set" }

// verify checks raw against the key named by its kid header. Tokens
// without a kid are tried against every key in the set.
func (v *keySetVerifier) verify(raw string) (string, map[string]any, error) {
	token, err := v.parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return "", nil, fmt.Errorf("%w: malformed claims", ErrInvalidToken)
	}
	sub, _ := claims.GetSubject()
	return sub, map[string]any(claims), nil
}

func (v *keySetVerifier) parse(raw string) (*jwtlib.Token, error) {
	parser := jwtlib.NewParser(jwtlib.WithValidMethods([]string{v.algorithm}))

	unverified, _, err := parser.ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, err
	}
	candidates := v.all
	if kid, ok := unverified.Header["kid"].(string); ok && kid != "" {
		key, found := v.byKID[kid]
		if !found {
			return nil, fmt.Errorf("key %q not found in key set", kid)
		}
		candidates = []any{key}
	}

	var lastErr error
	for _, key := range candidates {
		token, err := parser.Parse(raw, func(*jwtlib.Token) (any, error) { return key, nil })
		if err == nil {
			return token, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// keySetSigner signs with the first private key of a JWKS document.
type keySetSigner struct {
	kid    string
	method jwtlib.SigningMethod
	key    any
}

func newKeySetSigner(set *jose.JSONWebKeySet, algorithm string) (*keySetSigner, error) {
	for _, k := range set.Keys {
		if k.IsPublic() {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		switch k.Key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
		default:
			continue
		}

		alg := k.Algorithm
		if alg == "" {
			alg = algorithm
		}
		method := jwtlib.GetSigningMethod(alg)
		if method == nil {
			return nil, fmt.Errorf("%w: unknown algorithm %q for key %q", ErrKeySet, alg, k.KeyID)
		}
		return &keySetSigner{kid: k.KeyID, method: method, key: k.Key}, nil
	}
	return nil, fmt.Errorf("%w: no private signing key", ErrKeySet)
}

func (s *keySetSigner) algorithm() string { return s.method.Alg() }

func (s *keySetSigner) sign(claims jwtlib.MapClaims) (string, error) {
	token := jwtlib.NewWithClaims(s.method, claims)
	if s.kid != "" {
		token.Header["kid"] = s.kid
	}
	return token.SignedString(s.key)
}
