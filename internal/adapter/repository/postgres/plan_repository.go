package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/user/campuscore/internal/domain"
)

// PlanRepository implements domain.PlanRepository against the registry.
type PlanRepository struct {
	db *sql.DB
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

var _ domain.PlanRepository = (*PlanRepository)(nil)

func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	query := `
        SELECT id, name, slug, price_monthly, price_yearly,
            student_limit, teacher_limit, storage_limit, features, is_active,
            created_at, updated_at
        FROM plans
        WHERE id = $1
    `

	var p domain.Plan
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.PriceMonthly,
		&p.PriceYearly,
		&p.StudentLimit,
		&p.TeacherLimit,
		&p.StorageLimit,
		pq.Array(&p.Features),
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}

	return &p, nil
}

func (r *PlanRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error) {
	query := `
        SELECT id, name, slug, price_monthly, price_yearly,
            student_limit, teacher_limit, storage_limit, features, is_active,
            created_at, updated_at
        FROM plans
    `
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY price_monthly ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := []*domain.Plan{}
	for rows.Next() {
		var p domain.Plan
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Slug,
			&p.PriceMonthly,
			&p.PriceYearly,
			&p.StudentLimit,
			&p.TeacherLimit,
			&p.StorageLimit,
			pq.Array(&p.Features),
			&p.IsActive,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	return plans, nil
}
