package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/user/campuscore/internal/domain"
)

// SubscriptionRepository implements domain.SubscriptionRepository against
// the registry.
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

var _ domain.SubscriptionRepository = (*SubscriptionRepository)(nil)

func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) (int64, error) {
	query := `
        INSERT INTO subscriptions (school_id, plan_id, status, billing_cycle, amount, currency,
            current_period_start, current_period_end, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        RETURNING id
    `

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		sub.SchoolID,
		sub.PlanID,
		sub.Status,
		sub.BillingCycle,
		sub.Amount,
		sub.Currency,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create subscription: %w", err)
	}

	return id, nil
}

func (r *SubscriptionRepository) LatestBySchool(ctx context.Context, schoolID int64) (*domain.Subscription, error) {
	query := `
        SELECT id, school_id, plan_id, status, billing_cycle, amount, currency,
            current_period_start, current_period_end, canceled_at, created_at, updated_at
        FROM subscriptions
        WHERE school_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `

	var sub domain.Subscription
	err := r.db.QueryRowContext(ctx, query, schoolID).Scan(
		&sub.ID,
		&sub.SchoolID,
		&sub.PlanID,
		&sub.Status,
		&sub.BillingCycle,
		&sub.Amount,
		&sub.Currency,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CanceledAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("latest subscription: %w", err)
	}

	return &sub, nil
}
