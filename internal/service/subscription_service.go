package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/okdriver/backend/internal/models"
	"github.com/okdriver/backend/internal/repository"
)

// SubscriptionService sells plans and answers which plan a user is on.
type SubscriptionService struct {
	plans PlanStore
	subs  SubscriptionStore
	cache SubscriptionCache
	log   *slog.Logger
	now   func() time.Time
}

// NewSubscriptionService creates a new subscription service. cache may be nil.
func NewSubscriptionService(plans PlanStore, subs SubscriptionStore, cache SubscriptionCache, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		plans: plans,
		subs:  subs,
		cache: cache,
		log:   log.With(slog.String("component", "subscription")),
		now:   time.Now,
	}
}

// GetActive returns the user's current subscription with its plan, or nil
// when there is none. Expiry is decided here against the clock, whatever the
// stored status says.
func (s *SubscriptionService) GetActive(ctx context.Context, userID string) (*models.Subscription, error) {
	now := s.now()

	// The generation is read before the database so that a purchase
	// committing in between makes this answer unreachable once cached.
	var gen int64
	cached := false
	if s.cache != nil {
		gen, cached = s.cache.Generation(ctx, userID)
	}

	if cached {
		// A lapsed cached row falls through and is overwritten below.
		if sub, ok := s.cache.Get(ctx, userID, gen); ok && (sub == nil || sub.IsCurrent(now)) {
			return sub, nil
		}
	}

	sub, err := s.subs.GetCurrent(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	if cached {
		s.cache.Set(ctx, userID, gen, sub)
	}
	return sub, nil
}

// Purchase replaces the user's current subscription with a new one for planID.
// The store guarantees at most one current ACTIVE row per user even under
// concurrent purchases.
func (s *SubscriptionService) Purchase(ctx context.Context, userID, planID string) (*models.Subscription, error) {
	userID = strings.TrimSpace(userID)
	planID = strings.TrimSpace(planID)
	if userID == "" || planID == "" {
		return nil, ErrPurchaseFieldsMissing
	}

	plan, err := s.plans.GetByID(ctx, planID)
	if errors.Is(err, repository.ErrPlanNotFound) {
		return nil, ErrPlanUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if !plan.Purchasable() {
		return nil, ErrPlanUnavailable
	}

	now := s.now()
	sub := models.NewSubscription(userID, plan, now)
	if err := s.subs.ReplaceActive(ctx, sub, now); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to store subscription: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}

	s.log.Info("plan purchased", "user_id", userID, "plan_id", plan.ID, "subscription_id", sub.ID, "end_at", sub.EndAt)
	return sub, nil
}

// ListPlans returns the purchasable catalog.
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]models.Plan, error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	out := make([]models.Plan, 0, len(plans))
	for _, p := range plans {
		if p.Purchasable() {
			out = append(out, p)
		}
	}
	return out, nil
}

// SweepExpired flips stored ACTIVE rows whose end date has passed to EXPIRED.
// Reads never depend on it; it keeps the stored status honest for reporting.
func (s *SubscriptionService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.subs.ExpireLapsed(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire lapsed subscriptions: %w", err)
	}
	if n > 0 {
		s.log.Info("expired lapsed subscriptions", "count", n)
	}
	return n, nil
}
