package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/okdriver/backend/internal/auth"
	"github.com/okdriver/backend/internal/models"
	"github.com/okdriver/backend/internal/repository"
)

// apiKeyValidity is how long an issued key stays usable, in calendar years.
const apiKeyValidity = 1

// KeyInfo is the listing view of an API key. The secret itself is never
// part of it, only the display prefix.
type KeyInfo struct {
	ID         string     `json:"id"`
	KeyName    string     `json:"keyName"`
	KeyPrefix  string     `json:"keyPrefix"`
	IsActive   bool       `json:"isActive"`
	Revoked    bool       `json:"revoked"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}

// IssuedKey is returned once, at issuance, and is the only place the raw key appears.
type IssuedKey struct {
	KeyInfo
	APIKey string `json:"apiKey"`
}

func newKeyInfo(k *models.APIKey) KeyInfo {
	return KeyInfo{
		ID:         k.ID,
		KeyName:    k.KeyName,
		KeyPrefix:  k.KeyPrefix,
		IsActive:   k.IsActive,
		Revoked:    k.Revoked,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
	}
}

// APIKeyService issues, lists, revokes and authenticates API keys.
type APIKeyService struct {
	keys  APIKeyStore
	users UserStore
	log   *slog.Logger
	now   func() time.Time
}

// NewAPIKeyService creates a new API key service
func NewAPIKeyService(keys APIKeyStore, users UserStore, log *slog.Logger) *APIKeyService {
	return &APIKeyService{
		keys:  keys,
		users: users,
		log:   log.With(slog.String("component", "apikey")),
		now:   time.Now,
	}
}

// Issue generates a new key for userID. Only its hash is stored.
func (s *APIKeyService) Issue(ctx context.Context, userID, keyName string) (*IssuedKey, error) {
	keyName = strings.TrimSpace(keyName)
	if keyName == "" {
		return nil, ErrKeyNameRequired
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	raw, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}

	now := s.now()
	key := &models.APIKey{
		UserID:    user.ID,
		UserEmail: user.Email,
		KeyName:   keyName,
		KeyHash:   auth.HashAPIKey(raw),
		KeyPrefix: auth.DisplayPrefix(raw),
		IsActive:  true,
		CreatedAt: now,
		ExpiresAt: now.AddDate(apiKeyValidity, 0, 0),
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to store api key: %w", err)
	}

	s.log.Info("api key issued", "user_id", user.ID, "key_id", key.ID)
	return &IssuedKey{KeyInfo: newKeyInfo(key), APIKey: raw}, nil
}

// List returns every key of userID, newest first.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]KeyInfo, error) {
	keys, err := s.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	out := make([]KeyInfo, 0, len(keys))
	for i := range keys {
		out = append(out, newKeyInfo(&keys[i]))
	}
	return out, nil
}

// Revoke deactivates a key owned by userID. Revoking an already revoked key succeeds.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID string) error {
	err := s.keys.Revoke(ctx, userID, keyID)
	if errors.Is(err, repository.ErrAPIKeyNotFound) {
		return ErrAPIKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	s.log.Info("api key revoked", "user_id", userID, "key_id", keyID)
	return nil
}

// Authenticate resolves a presented raw key to its owner.
// It returns the auth package's key errors so the middleware can report them.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey string) (*models.User, error) {
	if err := auth.ValidateAPIKeyFormat(rawKey); err != nil {
		return nil, err
	}

	key, err := s.keys.GetByHash(ctx, auth.HashAPIKey(rawKey))
	if errors.Is(err, repository.ErrAPIKeyNotFound) {
		return nil, auth.ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}

	now := s.now()
	if !key.Usable(now) {
		return nil, auth.ErrAPIKeyRevoked
	}

	if err := s.keys.TouchLastUsed(ctx, key.ID, now); err != nil {
		s.log.Warn("failed to record api key usage", "key_id", key.ID, "error", err)
	}

	return &models.User{ID: key.UserID, Email: key.UserEmail}, nil
}
