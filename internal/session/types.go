// Package session manages authenticated session lifecycle: creation with
// per-user session limits, sliding-expiration validation, token refresh,
// and revocation.
package session

import "time"

// Session tracks an authenticated principal's context across connections.
type Session struct {
	ID     string
	UserID string

	// Token is the opaque bearer credential presented by the client.
	Token string
	// RefreshToken exchanges for a new Token/RefreshToken pair once Token
	// has expired, as long as the session itself is still within
	// RefreshExpiresAt.
	RefreshToken string

	// AuthMethod records how the identity behind this session was
	// established (e.g. "api_key", "oauth").
	AuthMethod string

	CreatedAt        time.Time
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	LastActivityAt   time.Time

	Active bool

	Metadata map[string]string
}

// IsExpired reports whether the session's access token has expired as of now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// IsRefreshExpired reports whether the session itself can no longer be
// refreshed, regardless of access token state.
func (s *Session) IsRefreshExpired(now time.Time) bool {
	return now.After(s.RefreshExpiresAt)
}
