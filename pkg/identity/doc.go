// Package identity defines the canonical principal produced by every
// authentication path and the normalizer that builds it from token claims.
//
// Upstream identity providers name the same fact differently ("given_name",
// "firstname", "prenom"). Normalize scans an ordered alias list per field
// and keeps the first present, non-empty value.
package identity
