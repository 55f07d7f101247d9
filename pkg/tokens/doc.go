// Package tokens creates and verifies signed JWTs for portier.
//
// A Codec is built once from a Config and is immutable afterwards. Two
// mutually exclusive verification strategies exist, selected at
// construction:
//
//   - Key set: a JSON Web Key Set is loaded once from a local file or an
//     http(s):// URL and bound to a single signature algorithm. Failures
//     wrap ErrInvalidToken.
//   - Secret: tokens are verified with an HMAC shared secret and the
//     configured issuer. Failures wrap ErrUnauthorized.
//
// Both failure kinds wrap ErrVerification, so callers that do not care
// which strategy is active can match on that instead.
//
// Issuance prefers a private key set over the shared secret. Without
// either, Create fails with ErrConfiguration.
package tokens
