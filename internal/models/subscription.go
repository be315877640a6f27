package models

import "time"

// Subscription status values. ACTIVE -> EXPIRED is the only transition.
const (
	SubscriptionActive  = "ACTIVE"
	SubscriptionExpired = "EXPIRED"
)

// Plan is a purchasable API plan from the catalog.
type Plan struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Price        float64   `json:"price" db:"price"`
	DaysValidity int       `json:"days_validity" db:"days_validity"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Purchasable reports whether the plan can be bought.
// Plans with a non-positive validity would produce an already expired
// subscription, so they are treated like inactive ones.
func (p *Plan) Purchasable() bool {
	return p.IsActive && p.DaysValidity > 0
}

// Subscription links a user to a plan for a bounded period.
// A row with status ACTIVE whose EndAt has passed is expired: every read
// filters on EndAt, the stored status is only refreshed by the sweeper or
// by a new purchase.
type Subscription struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	PlanID    string    `json:"plan_id" db:"plan_id"`
	StartAt   time.Time `json:"start_at" db:"start_at"`
	EndAt     time.Time `json:"end_at" db:"end_at"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Plan      *Plan     `json:"plan,omitempty"`
}

// IsCurrent reports whether the subscription grants access at the given instant.
func (s *Subscription) IsCurrent(now time.Time) bool {
	return s.Status == SubscriptionActive && !s.EndAt.Before(now)
}

// NewSubscription builds an ACTIVE subscription for plan starting at start.
func NewSubscription(userID string, plan *Plan, start time.Time) *Subscription {
	return &Subscription{
		UserID:  userID,
		PlanID:  plan.ID,
		StartAt: start,
		EndAt:   start.AddDate(0, 0, plan.DaysValidity),
		Status:  SubscriptionActive,
		Plan:    plan,
	}
}
