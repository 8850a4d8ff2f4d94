// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched per-request logger.
// Set by the router before invoking a handler, carrying connection_id and
// request_id fields.
type LoggerKey struct{}

// ConnectionIDKey is the context key type for the originating connection id.
type ConnectionIDKey struct{}

// PrincipalKey is the context key type for the authenticated principal
// attached to a request by the host's authenticator before it reaches the
// router.
type PrincipalKey struct{}
