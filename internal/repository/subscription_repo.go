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

// SubscriptionRepository handles user API subscriptions
type SubscriptionRepository struct {
	db *database.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *database.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetCurrent returns the ACTIVE subscription with end_at >= now that expires last,
// with its plan embedded. It returns nil, nil when there is none.
func (r *SubscriptionRepository) GetCurrent(ctx context.Context, userID string, now time.Time) (*models.Subscription, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil
	}

	query := `
		SELECT s.id, s.user_id, s.plan_id, s.start_at, s.end_at, s.status, s.created_at,
		       p.id, p.name, p.price::float8, p.days_validity, p.is_active, p.created_at
		FROM user_api_subscriptions s
		JOIN api_plans p ON p.id = s.plan_id
		WHERE s.user_id = $1 AND s.status = $2 AND s.end_at >= $3
		ORDER BY s.end_at DESC
		LIMIT 1
	`
	var sub models.Subscription
	var plan models.Plan
	err := r.db.QueryRow(ctx, query, userID, models.SubscriptionActive, now).Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &sub.StartAt, &sub.EndAt, &sub.Status, &sub.CreatedAt,
		&plan.ID, &plan.Name, &plan.Price, &plan.DaysValidity, &plan.IsActive, &plan.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	sub.Plan = &plan
	return &sub, nil
}

// ReplaceActive expires every current ACTIVE subscription of sub.UserID and
// inserts sub, all in one transaction. The user row is locked first so
// concurrent purchases for the same user run one after the other.
func (r *SubscriptionRepository) ReplaceActive(ctx context.Context, sub *models.Subscription, now time.Time) error {
	if _, err := uuid.Parse(sub.UserID); err != nil {
		return ErrUserNotFound
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	sub.CreatedAt = now

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, sub.UserID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE user_api_subscriptions
			SET status = $2
			WHERE user_id = $1 AND status = $3 AND end_at >= $4`,
			sub.UserID, models.SubscriptionExpired, models.SubscriptionActive, now)
		if err != nil {
			return fmt.Errorf("failed to expire subscriptions: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO user_api_subscriptions (id, user_id, plan_id, start_at, end_at, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sub.ID, sub.UserID, sub.PlanID, sub.StartAt, sub.EndAt, sub.Status, sub.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}

		return nil
	})
}

// ExpireLapsed flips stored ACTIVE rows whose end date has passed to EXPIRED.
func (r *SubscriptionRepository) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	rowsAffected, err := r.db.Exec(ctx, `
		UPDATE user_api_subscriptions
		SET status = $1
		WHERE status = $2 AND end_at < $3`,
		models.SubscriptionExpired, models.SubscriptionActive, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire lapsed subscriptions: %w", err)
	}
	return rowsAffected, nil
}
