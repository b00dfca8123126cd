package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by Service methods.
var (
	ErrKeyNotFound  = errors.New("auth: key not found or revoked")
	ErrNameRequired = errors.New("auth: key name is required")
)

// KeyStore is the persistence port Service depends on.
type KeyStore interface {
	FindByHash(ctx context.Context, keyHash string) (*APIKey, error)
	Create(ctx context.Context, key *APIKey) error
	Revoke(ctx context.Context, id string) error
}

// Service implements API key issuance, validation, and revocation.
type Service struct {
	store  KeyStore
	logger *slog.Logger
}

// NewService constructs a Service over store.
func NewService(store KeyStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger.With("component", "auth")}
}

// ValidateKey looks up the key by its SHA256 hash, returning the record if
// it exists and is not revoked, or nil if it is absent or revoked.
func (s *Service) ValidateKey(ctx context.Context, keyHash string) (*APIKey, error) {
	key, err := s.store.FindByHash(ctx, keyHash)
	if err != nil {
		return nil, fmt.Errorf("auth: validate key: %w", err)
	}
	if key == nil || key.Revoked {
		return nil, nil
	}
	return key, nil
}

// CreateKey generates and persists a new key, returning its plaintext (to
// be shown once) and the stored record.
func (s *Service) CreateKey(ctx context.Context, name string) (plaintext string, key *APIKey, err error) {
	if name == "" {
		return "", nil, ErrNameRequired
	}

	plaintext, hash, err := GenerateKey()
	if err != nil {
		return "", nil, err
	}

	key = &APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		KeyHash:   hash,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, key); err != nil {
		return "", nil, fmt.Errorf("auth: create key: %w", err)
	}

	s.logger.Info("api key created", "key_id", key.ID, "name", name)
	return plaintext, key, nil
}

// RevokeKey revokes the key identified by id.
func (s *Service) RevokeKey(ctx context.Context, id string) error {
	if err := s.store.Revoke(ctx, id); err != nil {
		return fmt.Errorf("auth: revoke key: %w", err)
	}
	s.logger.Info("api key revoked", "key_id", id)
	return nil
}
