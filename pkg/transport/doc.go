// Package transport provides the HTTP plumbing shared by portier
// binaries: a middleware chain, request IDs, access logging, panic
// recovery, JSON error bodies and a server with graceful shutdown.
//
// # Middleware
//
// Middleware wraps an http.Handler. Chain(a, b, c) produces a(b(c(h))),
// so the first middleware is the outermost. NewServer installs Recovery,
// RequestID and Logging ahead of any caller-supplied middleware.
//
// # Request IDs
//
// An incoming X-Request-ID header is reused; otherwise an xid is
// generated. The ID is echoed in the response header and available through
// RequestIDFromContext.
package transport
