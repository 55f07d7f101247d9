// Package auth resolves the Authorization header of a request into an
// identity.Authentication and the authority list used by access control.
//
// Resolution runs an ordered list of attempts per scheme using
// three-outcome voting: each attempt returns Yes (authentication found),
// No (credentials present but rejected) or Abstain (cannot decide). For
// bearer tokens the local AuthManager is asked before token verification;
// for basic credentials the service-secret shortcut is tried before the
// AuthManager. When every attempt abstains the request stays a guest.
//
// Gate is transport agnostic; Middleware adapts it to net/http and opens
// a tenant scope for the request.
package auth
