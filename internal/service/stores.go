package service

import (
	"context"
	"time"

	"github.com/okdriver/backend/internal/models"
)

// PasswordHasher hashes and verifies credential passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) bool
}

// UserStore persists users. Lookups return repository.ErrUserNotFound when
// nothing matches and Create/Update return repository.ErrUserExists on a
// duplicate email or google id.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// APIKeyStore persists API keys. Revoke and GetByHash return
// repository.ErrAPIKeyNotFound when nothing matches.
type APIKeyStore interface {
	Create(ctx context.Context, key *models.APIKey) error
	ListByUser(ctx context.Context, userID string) ([]models.APIKey, error)
	GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	Revoke(ctx context.Context, userID, keyID string) error
	TouchLastUsed(ctx context.Context, keyID string, at time.Time) error
}

// PlanStore reads the plan catalog. GetByID returns repository.ErrPlanNotFound.
type PlanStore interface {
	GetByID(ctx context.Context, id string) (*models.Plan, error)
	ListActive(ctx context.Context) ([]models.Plan, error)
}

// SubscriptionStore persists subscriptions.
//
// ReplaceActive must expire the user's current ACTIVE rows and insert sub
// atomically, and must serialize concurrent calls for the same user; it
// returns repository.ErrUserNotFound for an unknown user.
type SubscriptionStore interface {
	GetCurrent(ctx context.Context, userID string, now time.Time) (*models.Subscription, error)
	ReplaceActive(ctx context.Context, sub *models.Subscription, now time.Time) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// SubscriptionCache caches GetActive answers under a per-user generation.
// Invalidate moves the user to a new generation, so answers stored under an
// older one are never returned again. Generation's second result is false
// when the cache is unusable. Get's second result reports whether the cache
// had an answer at all; a nil subscription is a valid answer.
type SubscriptionCache interface {
	Generation(ctx context.Context, userID string) (int64, bool)
	Get(ctx context.Context, userID string, gen int64) (*models.Subscription, bool)
	Set(ctx context.Context, userID string, gen int64, sub *models.Subscription)
	Invalidate(ctx context.Context, userID string)
}
