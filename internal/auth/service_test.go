package auth

import (
	"context"
	"testing"
	"time"
)

// mockKeyStore is a test double for KeyStore.
type mockKeyStore struct {
	keys      map[string]*APIKey // keyed by hash
	createErr error
	findErr   error
}

func newMockKeyStore() *mockKeyStore {
	return &mockKeyStore{keys: make(map[string]*APIKey)}
}

func (m *mockKeyStore) FindByHash(_ context.Context, keyHash string) (*APIKey, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.keys[keyHash], nil
}

func (m *mockKeyStore) Create(_ context.Context, key *APIKey) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.keys[key.KeyHash] = key
	return nil
}

func (m *mockKeyStore) Revoke(_ context.Context, id string) error {
	for _, key := range m.keys {
		if key.ID == id {
			key.Revoked = true
			now := time.Now()
			key.RevokedAt = &now
			return nil
		}
	}
	return ErrKeyNotFound
}

func TestService_CreateAndValidateKey(t *testing.T) {
	store := newMockKeyStore()
	svc := NewService(store, nil)

	plaintext, key, err := svc.CreateKey(context.Background(), "my-app")
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if !ValidateKeyFormat(plaintext) {
		t.Fatalf("plaintext %q does not look like a generated key", plaintext)
	}

	got, err := svc.ValidateKey(context.Background(), HashKey(plaintext))
	if err != nil {
		t.Fatalf("ValidateKey: %v", err)
	}
	if got == nil || got.ID != key.ID {
		t.Fatalf("expected to find key %s, got %+v", key.ID, got)
	}
}

func TestService_ValidateKey_UnknownReturnsNil(t *testing.T) {
	store := newMockKeyStore()
	svc := NewService(store, nil)

	got, err := svc.ValidateKey(context.Background(), HashKey("never-issued"))
	if err != nil {
		t.Fatalf("ValidateKey: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for an unknown key, got %+v", got)
	}
}

func TestService_RevokedKeyFailsValidation(t *testing.T) {
	store := newMockKeyStore()
	svc := NewService(store, nil)

	plaintext, key, err := svc.CreateKey(context.Background(), "my-app")
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if err := svc.RevokeKey(context.Background(), key.ID); err != nil {
		t.Fatalf("RevokeKey: %v", err)
	}

	got, err := svc.ValidateKey(context.Background(), HashKey(plaintext))
	if err != nil {
		t.Fatalf("ValidateKey: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a revoked key, got %+v", got)
	}
}

func TestService_CreateKey_EmptyNameRejected(t *testing.T) {
	store := newMockKeyStore()
	svc := NewService(store, nil)

	if _, _, err := svc.CreateKey(context.Background(), ""); err != ErrNameRequired {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}

func TestGenerateKey_ProducesValidFormat(t *testing.T) {
	plaintext, hash, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if !ValidateKeyFormat(plaintext) {
		t.Fatalf("generated plaintext %q fails its own format check", plaintext)
	}
	if hash != HashKey(plaintext) {
		t.Fatalf("hash mismatch: GenerateKey returned %q, HashKey(plaintext) = %q", hash, HashKey(plaintext))
	}
}
