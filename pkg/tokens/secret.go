package tokens

import (
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// hmacMethods are accepted on the secret path.
var hmacMethods = []string{"HS256", "HS384", "HS512"}

type secretSigner struct {
	secret []byte
}

func (s *secretSigner) algorithm() string { return jwtlib.SigningMethodHS256.Alg() }

func (s *secretSigner) sign(claims jwtlib.MapClaims) (string, error) {
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
}

type secretVerifier struct {
	secret []byte
	issuer string
}

func (v *secretVerifier) strategy() string { return "secret" }

func (v *secretVerifier) verify(raw string) (string, map[string]any, error) {
	if len(v.secret) == 0 {
		return "", nil, fmt.Errorf("%w: %w: no secret configured", ErrUnauthorized, ErrConfiguration)
	}

	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods(hmacMethods)}
	if v.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(v.issuer))
	}

	token, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return "", nil, fmt.Errorf("%w: malformed claims", ErrUnauthorized)
	}
	sub, _ := claims.GetSubject()
	return sub, coerceClaims(claims), nil
}
