package tokens

import "time"

// Kind identifies a token serialization.
type Kind string

// JWT is the only supported Kind.
const JWT Kind = "jwt"

// Token is a minted or verified token. Treat it as immutable.
type Token struct {
	// Value is the compact serialized token.
	Value string `json:"value"`

	// Subject is the sub claim.
	Subject string `json:"subject"`

	// Claims holds the caller-supplied claims on issuance, or every
	// payload claim on verification.
	Claims map[string]any `json:"claims,omitempty"`

	// ExpiresAt is set on issuance.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Claim returns the named claim and whether it is present and non-nil.
func (t Token) Claim(name string) (any, bool) {
	v, ok := t.Claims[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func copyClaims(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
