package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var (
	errKeyNotFound      = errors.New("api key not found")
	errIdentityNotFound = errors.New("identity not found")
)

type mockStore struct {
	keys       map[string]*APIKey
	identities map[string]*Identity
}

func newMockStore() *mockStore {
	return &mockStore{
		keys:       make(map[string]*APIKey),
		identities: make(map[string]*Identity),
	}
}

func (m *mockStore) GetAPIKey(ctx context.Context, keyHash string) (*APIKey, error) {
	key, ok := m.keys[keyHash]
	if !ok {
		return nil, errKeyNotFound
	}
	return key, nil
}

func (m *mockStore) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	identity, ok := m.identities[id]
	if !ok {
		return nil, errIdentityNotFound
	}
	return identity, nil
}

func (m *mockStore) ListAPIKeys(ctx context.Context) ([]*APIKey, error) {
	result := make([]*APIKey, 0, len(m.keys))
	for _, key := range m.keys {
		result = append(result, key)
	}
	return result, nil
}

var _ Store = (*mockStore)(nil)

func TestAPIKeyService_Validate(t *testing.T) {
	rawKey := "test-api-key-12345"
	keyHash := HashKey(rawKey)

	now := time.Now().UTC()
	pastTime := now.Add(-1 * time.Hour)
	futureTime := now.Add(1 * time.Hour)

	tests := []struct {
		name       string
		rawKey     string
		setupStore func(*mockStore)
		wantErr    error
		wantID     string
		wantRoles  []Role
	}{
		{
			name:   "valid key returns identity with roles",
			rawKey: rawKey,
			setupStore: func(m *mockStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "user-1", CreatedAt: now, ExpiresAt: &futureTime}
				m.identities["user-1"] = &Identity{ID: "user-1", Name: "Test User", Roles: []Role{RoleUser, RoleReadOnly}, Active: true}
			},
			wantID:    "user-1",
			wantRoles: []Role{RoleUser, RoleReadOnly},
		},
		{
			name:   "valid key without expiry returns identity",
			rawKey: rawKey,
			setupStore: func(m *mockStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "user-2", CreatedAt: now}
				m.identities["user-2"] = &Identity{ID: "user-2", Name: "Admin User", Roles: []Role{RoleAdmin}, Active: true}
			},
			wantID:    "user-2",
			wantRoles: []Role{RoleAdmin},
		},
		{
			name:   "expired key returns ErrInvalidKey",
			rawKey: rawKey,
			setupStore: func(m *mockStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "user-1", CreatedAt: now, ExpiresAt: &pastTime}
			},
			wantErr: ErrInvalidKey,
		},
		{
			name:   "revoked key returns ErrInvalidKey",
			rawKey: rawKey,
			setupStore: func(m *mockStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "user-1", CreatedAt: now, ExpiresAt: &futureTime, Revoked: true}
			},
			wantErr: ErrInvalidKey,
		},
		{
			name:       "non-existent key returns error",
			rawKey:     "non-existent-key",
			setupStore: func(m *mockStore) {},
			wantErr:    ErrInvalidKey,
		},
		{
			name:   "inactive identity returns ErrInvalidKey",
			rawKey: rawKey,
			setupStore: func(m *mockStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "user-3", CreatedAt: now, ExpiresAt: &futureTime}
				m.identities["user-3"] = &Identity{ID: "user-3", Active: false}
			},
			wantErr: ErrInvalidKey,
		},
		{
			name:   "identity not found returns error",
			rawKey: rawKey,
			setupStore: func(m *mockStore) {
				m.keys[keyHash] = &APIKey{Key: keyHash, IdentityID: "missing-user", CreatedAt: now, ExpiresAt: &futureTime}
			},
			wantErr: errIdentityNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			tt.setupStore(store)

			svc := NewAPIKeyService(store)
			identity, err := svc.Validate(context.Background(), tt.rawKey)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
			if identity.ID != tt.wantID {
				t.Errorf("Validate() identity.ID = %v, want %v", identity.ID, tt.wantID)
			}
			if len(identity.Roles) != len(tt.wantRoles) {
				t.Fatalf("Validate() identity.Roles = %v, want %v", identity.Roles, tt.wantRoles)
			}
			for i, role := range tt.wantRoles {
				if identity.Roles[i] != role {
					t.Errorf("Validate() identity.Roles[%d] = %v, want %v", i, identity.Roles[i], role)
				}
			}
		})
	}
}

func TestAPIKeyService_Validate_ArgonHashFallback(t *testing.T) {
	rawKey := "argon-backed-key"
	hash, err := HashKeyArgon2id(rawKey)
	if err != nil {
		t.Fatalf("HashKeyArgon2id() error = %v", err)
	}

	store := newMockStore()
	store.keys[hash] = &APIKey{Key: hash, IdentityID: "user-4"}
	store.identities["user-4"] = &Identity{ID: "user-4", Active: true}

	svc := NewAPIKeyService(store)
	identity, err := svc.Validate(context.Background(), rawKey)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if identity.ID != "user-4" {
		t.Errorf("Validate() identity.ID = %v, want user-4", identity.ID)
	}
}

func TestHashKey(t *testing.T) {
	rawKey := "test-key"
	hash1 := HashKey(rawKey)
	hash2 := HashKey(rawKey)
	if hash1 != hash2 {
		t.Errorf("HashKey() not deterministic: %v != %v", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("HashKey() length = %d, want 64", len(hash1))
	}
	if hash3 := HashKey("different-key"); hash1 == hash3 {
		t.Error("HashKey() produced same hash for different keys")
	}
}

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		role  Role
		valid bool
	}{
		{RoleAdmin, true},
		{RoleUser, true},
		{RoleReadOnly, true},
		{Role("invalid"), false},
		{Role(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.IsValid(); got != tt.valid {
				t.Errorf("Role(%q).IsValid() = %v, want %v", tt.role, got, tt.valid)
			}
		})
	}
}

func TestIdentity_HasRole(t *testing.T) {
	identity := &Identity{ID: "test", Roles: []Role{RoleUser, RoleReadOnly}}
	if !identity.HasRole(RoleUser) {
		t.Error("HasRole(RoleUser) = false, want true")
	}
	if identity.HasRole(RoleAdmin) {
		t.Error("HasRole(RoleAdmin) = true, want false")
	}
}

func TestIdentity_HasAnyRole(t *testing.T) {
	identity := &Identity{ID: "test", Roles: []Role{RoleUser}}
	if !identity.HasAnyRole(RoleAdmin, RoleUser) {
		t.Error("HasAnyRole(RoleAdmin, RoleUser) = false, want true")
	}
	if identity.HasAnyRole(RoleAdmin, RoleReadOnly) {
		t.Error("HasAnyRole(RoleAdmin, RoleReadOnly) = true, want false")
	}
	if identity.HasAnyRole() {
		t.Error("HasAnyRole() with no args = true, want false")
	}
}

func TestAPIKey_IsExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-1 * time.Hour)
	future := now.Add(1 * time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{"nil expiry never expires", nil, false},
		{"past expiry is expired", &past, true},
		{"future expiry not expired", &future, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := &APIKey{ExpiresAt: tt.expiresAt}
			if got := key.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashKeyArgon2id(t *testing.T) {
	rawKey := "test-api-key-secure-12345"
	hash, err := HashKeyArgon2id(rawKey)
	if err != nil {
		t.Fatalf("HashKeyArgon2id() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("HashKeyArgon2id() = %q, want prefix $argon2id$", hash)
	}
	hash2, err := HashKeyArgon2id(rawKey)
	if err != nil {
		t.Fatalf("HashKeyArgon2id() second call error = %v", err)
	}
	if hash == hash2 {
		t.Error("HashKeyArgon2id() produced identical hashes - should use random salt")
	}
}

func TestDetectHashType(t *testing.T) {
	tests := []struct {
		name     string
		hash     string
		wantType string
	}{
		{"argon2id PHC format", "$argon2id$v=19$m=47104,t=1,p=1$abc123$xyz789", "argon2id"},
		{"sha256 prefixed", "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", "sha256"},
		{"legacy bare SHA-256 hex", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", "sha256"},
		{"unknown format - too short", "abc123", "unknown"},
		{"unknown format - wrong prefix", "$bcrypt$abc123", "unknown"},
		{"empty string", "", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectHashType(tt.hash); got != tt.wantType {
				t.Errorf("DetectHashType(%q) = %q, want %q", tt.hash, got, tt.wantType)
			}
		})
	}
}

func TestVerifyKey(t *testing.T) {
	rawKey := "test-api-key-verify-12345"

	argon2Hash, err := HashKeyArgon2id(rawKey)
	if err != nil {
		t.Fatalf("HashKeyArgon2id() setup error = %v", err)
	}
	sha256Hash := HashKey(rawKey)
	sha256Prefixed := "sha256:" + sha256Hash

	tests := []struct {
		name       string
		rawKey     string
		storedHash string
		wantMatch  bool
		wantErr    error
	}{
		{"argon2id hash - correct key", rawKey, argon2Hash, true, nil},
		{"argon2id hash - wrong key", "wrong-key", argon2Hash, false, nil},
		{"sha256 prefixed - correct key", rawKey, sha256Prefixed, true, nil},
		{"sha256 prefixed - wrong key", "wrong-key", sha256Prefixed, false, nil},
		{"legacy bare sha256 - correct key", rawKey, sha256Hash, true, nil},
		{"legacy bare sha256 - wrong key", "wrong-key", sha256Hash, false, nil},
		{"unknown hash type returns error", rawKey, "invalid-hash-format", false, ErrUnknownHashType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := VerifyKey(tt.rawKey, tt.storedHash)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("VerifyKey() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyKey() unexpected error = %v", err)
			}
			if match != tt.wantMatch {
				t.Errorf("VerifyKey() = %v, want %v", match, tt.wantMatch)
			}
		})
	}
}

func TestVerifyKey_MalformedArgonHashDoesNotPanic(t *testing.T) {
	match, err := VerifyKey("anything", "$argon2id$v=19$m=0,t=0,p=0$YWJj$eHl6")
	if match {
		t.Error("VerifyKey() = true for malformed hash, want false")
	}
	if err == nil {
		t.Error("VerifyKey() error = nil, want non-nil for malformed hash")
	}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name      string
		principal *Principal
		resource  string
		action    string
		want      bool
	}{
		{"nil principal denied", nil, "tools", "call", false},
		{"admin role bypasses claims", &Principal{Roles: []Role{RoleAdmin}}, "tools", "call", true},
		{"exact claim match", &Principal{Claims: []string{"tools:call"}}, "tools", "call", true},
		{"no matching claim", &Principal{Claims: []string{"resources:read"}}, "tools", "call", false},
		{"resource wildcard", &Principal{Claims: []string{"tools:*"}}, "tools", "call", true},
		{"action wildcard", &Principal{Claims: []string{"*:call"}}, "tools", "call", true},
		{"full wildcard", &Principal{Claims: []string{"*:*"}}, "anything", "goes", true},
		{"malformed claim ignored", &Principal{Claims: []string{"no-colon-here"}}, "tools", "call", false},
		{"user role without claim denied", &Principal{Roles: []Role{RoleUser}}, "tools", "call", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.principal, tt.resource, tt.action); got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}
