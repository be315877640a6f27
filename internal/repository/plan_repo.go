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

// ErrPlanNotFound is returned when a plan does not exist
var ErrPlanNotFound = errors.New("plan not found")

const planColumns = `id, name, price::float8, days_validity, is_active, created_at`

// PlanRepository reads the API plan catalog
type PlanRepository struct {
	db *database.DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *database.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetByID returns a single plan
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPlanNotFound
	}

	var plan models.Plan
	err := r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM api_plans WHERE id = $1`, id).Scan(
		&plan.ID, &plan.Name, &plan.Price, &plan.DaysValidity, &plan.IsActive, &plan.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return &plan, nil
}

// ListActive returns purchasable plans ordered by price
func (r *PlanRepository) ListActive(ctx context.Context) ([]models.Plan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+planColumns+`
		FROM api_plans
		WHERE is_active = true
		ORDER BY price ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	plans := []models.Plan{}
	for rows.Next() {
		var plan models.Plan
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.Price, &plan.DaysValidity, &plan.IsActive, &plan.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}

	return plans, rows.Err()
}

// Create inserts a plan. The schema rejects negative prices and non-positive validity.
func (r *PlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO api_plans (id, name, price, days_validity, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		plan.ID, plan.Name, plan.Price, plan.DaysValidity, plan.IsActive, plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}
