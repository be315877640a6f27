package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/okdriver/backend/internal/database"
	"github.com/okdriver/backend/internal/models"
)

// ErrAPIKeyNotFound is returned when an API key does not exist or belongs to someone else
var ErrAPIKeyNotFound = errors.New("api key not found")

const apiKeyColumns = `id, user_id, user_email, key_name, key_hash, key_prefix, is_active, revoked, last_used_at, created_at, expires_at`

// APIKeyRepository handles API key database operations
type APIKeyRepository struct {
	db *database.DB
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *database.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create stores a new API key
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	if key.ID == "" {
		key.ID = uuid.New().String()
	}

	query := `
		INSERT INTO api_keys (id, user_id, user_email, key_name, key_hash, key_prefix, is_active, revoked, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		key.ID, key.UserID, key.UserEmail, key.KeyName, key.KeyHash, key.KeyPrefix,
		key.IsActive, key.Revoked, key.CreatedAt, key.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}

	return nil
}

// ListByUser returns all API keys for a user, newest first
func (r *APIKeyRepository) ListByUser(ctx context.Context, userID string) ([]models.APIKey, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []models.APIKey{}, nil
	}

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	keys := []models.APIKey{}
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, *key)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api keys: %w", err)
	}

	return keys, nil
}

// GetByHash looks up a key by the hash of its raw value
func (r *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`
	key, err := scanAPIKey(r.db.QueryRow(ctx, query, keyHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return key, nil
}

// Revoke deactivates a key owned by userID. Revoking twice is not an error.
func (r *APIKeyRepository) Revoke(ctx context.Context, userID, keyID string) error {
	if _, err := uuid.Parse(keyID); err != nil {
		return ErrAPIKeyNotFound
	}
	if _, err := uuid.Parse(userID); err != nil {
		return ErrAPIKeyNotFound
	}

	query := `UPDATE api_keys SET is_active = false, revoked = true WHERE id = $1 AND user_id = $2`
	rowsAffected, err := r.db.Exec(ctx, query, keyID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	if rowsAffected == 0 {
		return ErrAPIKeyNotFound
	}

	return nil
}

// TouchLastUsed records when a key was last used
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, keyID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, keyID, at)
	if err != nil {
		return fmt.Errorf("failed to update api key usage: %w", err)
	}
	return nil
}

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var key models.APIKey
	err := row.Scan(
		&key.ID, &key.UserID, &key.UserEmail, &key.KeyName, &key.KeyHash, &key.KeyPrefix,
		&key.IsActive, &key.Revoked, &key.LastUsedAt, &key.CreatedAt, &key.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
