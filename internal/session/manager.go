package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"
)

// DefaultTimeout is the default access token lifetime.
const DefaultTimeout = 30 * time.Minute

// DefaultRefreshTimeout is the default lifetime of the session as a whole.
const DefaultRefreshTimeout = 24 * time.Hour

// ErrMaxSessionsExceeded is returned by CreateSession when a user already
// holds MaxSessionsPerUser active sessions and eviction is disabled (never
// returned by Manager itself, kept for callers layering stricter policy).
var ErrMaxSessionsExceeded = errors.New("maximum sessions per user exceeded")

// Config configures a Manager's lifetime and sliding-expiration policy.
type Config struct {
	// Timeout is the access token lifetime. Default: 30 minutes.
	Timeout time.Duration
	// RefreshTimeout is how long the session as a whole may be refreshed
	// for, measured from creation. Default: 24 hours.
	RefreshTimeout time.Duration
	// SlidingExpiration, when > 0, extends ExpiresAt to now+SlidingExpiration
	// on a successful Validate call made within SlidingExpiration of the
	// current expiry, up to the session's RefreshExpiresAt ceiling.
	SlidingExpiration time.Duration
	// MaxSessionsPerUser caps concurrent sessions per user. 0 means
	// unlimited. When exceeded, the oldest session by LastActivityAt is
	// evicted to make room for the new one.
	MaxSessionsPerUser int
	// TokenSecret is the HMAC key used to sign issued tokens. Required
	// for non-trivial deployments; a random per-process key is used if
	// empty, which invalidates tokens across restarts.
	TokenSecret []byte
}

// Manager creates, validates, refreshes, and revokes sessions.
type Manager struct {
	store  Store
	cfg    Config
	secret []byte
}

// NewManager creates a Manager backed by store.
func NewManager(store Store, cfg Config) *Manager {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RefreshTimeout == 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	secret := cfg.TokenSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	return &Manager{store: store, cfg: cfg, secret: secret}
}

// CreateSession issues a new session for userID, evicting the
// least-recently-active existing session if MaxSessionsPerUser would
// otherwise be exceeded.
func (m *Manager) CreateSession(ctx context.Context, userID, authMethod string, metadata map[string]string) (*Session, error) {
	if m.cfg.MaxSessionsPerUser > 0 {
		existing, err := m.store.ListByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list sessions for eviction check: %w", err)
		}
		if len(existing) >= m.cfg.MaxSessionsPerUser {
			if err := m.evictOldest(ctx, existing, len(existing)-m.cfg.MaxSessionsPerUser+1); err != nil {
				return nil, err
			}
		}
	}

	id, err := generateID()
	if err != nil {
		return nil, err
	}
	token, err := m.issueToken(id)
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.issueToken(id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s := &Session{
		ID:               id,
		UserID:           userID,
		Token:            token,
		RefreshToken:     refreshToken,
		AuthMethod:       authMethod,
		CreatedAt:        now,
		ExpiresAt:        now.Add(m.cfg.Timeout),
		RefreshExpiresAt: now.Add(m.cfg.RefreshTimeout),
		LastActivityAt:   now,
		Active:           true,
		Metadata:         metadata,
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// evictOldest removes the n least-recently-active sessions from candidates.
func (m *Manager) evictOldest(ctx context.Context, candidates []*Session, n int) error {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastActivityAt.Before(candidates[j].LastActivityAt)
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	for i := 0; i < n; i++ {
		if err := m.store.Delete(ctx, candidates[i].ID); err != nil {
			return fmt.Errorf("evict session %s: %w", candidates[i].ID, err)
		}
	}
	return nil
}

// Validate looks up a session by ID and checks that it is active and its
// access token has not expired. When SlidingExpiration is configured and
// the session is within that window of expiring, ExpiresAt is extended
// (capped at RefreshExpiresAt) and LastActivityAt is updated.
func (m *Manager) Validate(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !s.Active {
		return nil, ErrNotFound
	}
	if s.IsExpired(now) {
		return nil, ErrNotFound
	}

	s.LastActivityAt = now
	if m.cfg.SlidingExpiration > 0 && s.ExpiresAt.Sub(now) < m.cfg.SlidingExpiration {
		newExpiry := now.Add(m.cfg.SlidingExpiration)
		if newExpiry.After(s.RefreshExpiresAt) {
			newExpiry = s.RefreshExpiresAt
		}
		s.ExpiresAt = newExpiry
	}

	if err := m.store.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("update session on validate: %w", err)
	}
	return s, nil
}

// Refresh exchanges a refresh token for a new access/refresh token pair.
// The session must be active and within its RefreshExpiresAt window.
func (m *Manager) Refresh(ctx context.Context, id, refreshToken string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !s.Active {
		return nil, ErrNotFound
	}
	if s.IsRefreshExpired(now) {
		return nil, ErrNotFound
	}
	if !hmac.Equal([]byte(s.RefreshToken), []byte(refreshToken)) {
		return nil, ErrNotFound
	}

	token, err := m.issueToken(id)
	if err != nil {
		return nil, err
	}
	newRefresh, err := m.issueToken(id)
	if err != nil {
		return nil, err
	}

	s.Token = token
	s.RefreshToken = newRefresh
	s.ExpiresAt = now.Add(m.cfg.Timeout)
	s.LastActivityAt = now

	if err := m.store.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("update session on refresh: %w", err)
	}
	return s, nil
}

// Revoke deactivates a session, preventing further Validate/Refresh calls.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	s.Active = false
	return m.store.Update(ctx, s)
}

// issueToken produces an opaque bearer token bound to sessionID:
// base64url(32 random bytes) + "." + base64url(HMAC-SHA-256(secret, sessionID || randomPart)).
func (m *Manager) issueToken(sessionID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	randomPart := base64.RawURLEncoding.EncodeToString(raw)

	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(sessionID))
	mac.Write([]byte(randomPart))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return randomPart + "." + sig, nil
}

// generateID creates a cryptographically random session ID: 64 hex
// characters (32 bytes).
func generateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
