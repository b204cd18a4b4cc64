package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/user/campuscore/internal/domain"
)

const (
	slugConstraint = "schools_slug_key"

	pgUniqueViolation = "23505"
)

// SchoolRepository implements domain.SchoolRepository against the registry
// database.
type SchoolRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSchoolRepository creates a new registry school repository.
func NewSchoolRepository(db *sql.DB, logger *slog.Logger) *SchoolRepository {
	return &SchoolRepository{db: db, logger: logger}
}

var _ domain.SchoolRepository = (*SchoolRepository)(nil)

// Create inserts the school row. The slug unique constraint makes this the
// atomic reservation point: of two racing inserts with the same slug, one
// succeeds and the other observes a *domain.ConflictError.
func (r *SchoolRepository) Create(ctx context.Context, s *domain.School) (int64, error) {
	query := `
        INSERT INTO schools (uuid, name, slug, email, phone, address, city, state, country, status, created_at, updated_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, NOW(), NOW())
        RETURNING id
    `

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		s.UUID,
		s.Name,
		s.Slug,
		s.Email,
		s.Phone,
		s.Address,
		s.City,
		s.State,
		s.Country,
		s.Status,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation && pqErr.Constraint == slugConstraint {
			return 0, &domain.ConflictError{Constraint: "slug", Value: s.Slug}
		}
		return 0, fmt.Errorf("create school: %w", err)
	}

	return id, nil
}

func (r *SchoolRepository) GetByID(ctx context.Context, id int64) (*domain.School, error) {
	query := `
        SELECT id, uuid, name, slug,
            COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''),
            COALESCE(city, ''), COALESCE(state, ''), COALESCE(country, ''),
            status, trial_ends_at, COALESCE(database_name, ''), plan_id,
            created_at, updated_at
        FROM schools
        WHERE id = $1
    `

	var s domain.School
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.UUID,
		&s.Name,
		&s.Slug,
		&s.Email,
		&s.Phone,
		&s.Address,
		&s.City,
		&s.State,
		&s.Country,
		&s.Status,
		&s.TrialEndsAt,
		&s.DatabaseName,
		&s.PlanID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get school: %w", err)
	}

	return &s, nil
}

// AssignDatabaseName records the tenant database name. The predicate makes the
// write a once-only assignment that tolerates retries with the same name;
// attempting to assign a different name to a school that already has one is an
// invariant violation and fails.
func (r *SchoolRepository) AssignDatabaseName(ctx context.Context, id int64, name string) error {
	result, err := r.db.ExecContext(ctx, `
        UPDATE schools
        SET database_name = $2, updated_at = NOW()
        WHERE id = $1 AND (database_name IS NULL OR database_name = $2)
    `, id, name)
	if err != nil {
		return fmt.Errorf("assign database name: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign database name: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("assign database name: school %d already has a different database name", id)
	}

	return nil
}

func (r *SchoolRepository) UpdateStatus(ctx context.Context, id int64, status domain.SchoolStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE schools SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *SchoolRepository) BeginTrial(ctx context.Context, id int64, endsAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE schools SET status = $2, trial_ends_at = $3, updated_at = NOW() WHERE id = $1`,
		id, domain.StatusTrial, endsAt,
	)
	if err != nil {
		return fmt.Errorf("begin trial: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("begin trial: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *SchoolRepository) SetPlan(ctx context.Context, id int64, planID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE schools SET plan_id = $2, updated_at = NOW() WHERE id = $1`,
		id, planID,
	)
	if err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}

// overviewFrom joins each school with its plan and latest subscription. The
// lateral subqueries keep the aggregates per-row without a GROUP BY over the
// whole listing.
const overviewFrom = `
        FROM schools s
        LEFT JOIN plans p ON p.id = s.plan_id
        LEFT JOIN LATERAL (
            SELECT status, current_period_end
            FROM subscriptions
            WHERE school_id = s.id
            ORDER BY created_at DESC, id DESC
            LIMIT 1
        ) sub ON TRUE
        LEFT JOIN LATERAL (
            SELECT COUNT(*) AS paid_count, COALESCE(SUM(amount), 0) AS paid_total
            FROM invoices
            WHERE school_id = s.id AND status = 'paid'
        ) inv ON TRUE
`

// List returns overview rows ordered by creation time descending with id as a
// stable tiebreak, so offset pagination is deterministic.
func (r *SchoolRepository) List(ctx context.Context, filter domain.SchoolFilter, page domain.Page) ([]domain.SchoolOverview, int, error) {
	if page.Number <= 0 {
		page.Number = 1
	}
	if page.Size <= 0 {
		page.Size = 20
	}
	offset := (page.Number - 1) * page.Size

	where := []string{}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("s.status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.SubscriptionStatus != "" {
		where = append(where, fmt.Sprintf("sub.status = $%d", argIdx))
		args = append(args, filter.SubscriptionStatus)
		argIdx++
	}
	if filter.PlanID > 0 {
		where = append(where, fmt.Sprintf("s.plan_id = $%d", argIdx))
		args = append(args, filter.PlanID)
		argIdx++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf(
			"(s.name ILIKE $%d OR s.email ILIKE $%d OR s.phone ILIKE $%d OR s.city ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQuery := `SELECT COUNT(*)` + overviewFrom + whereClause
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT s.id, s.name, s.slug, s.status,
            COALESCE(p.name, ''), COALESCE(p.price_monthly, 0),
            COALESCE(sub.status, ''), sub.current_period_end,
            s.trial_ends_at,
            (SELECT COUNT(*) FROM school_admins a WHERE a.school_id = s.id AND a.is_active),
            inv.paid_count, inv.paid_total,
            s.created_at
        %s
        %s
        ORDER BY s.created_at DESC, s.id DESC
        LIMIT $%d OFFSET $%d
    `, overviewFrom, whereClause, argIdx, argIdx+1)

	args = append(args, page.Size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}
	defer rows.Close()

	overviews := []domain.SchoolOverview{}
	for rows.Next() {
		var o domain.SchoolOverview
		err := rows.Scan(
			&o.ID,
			&o.Name,
			&o.Slug,
			&o.Status,
			&o.PlanName,
			&o.PriceMonthly,
			&o.SubscriptionStatus,
			&o.CurrentPeriodEnd,
			&o.TrialEndsAt,
			&o.AdminCount,
			&o.PaidInvoiceCount,
			&o.TotalPaidAmount,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan school overview: %w", err)
		}
		overviews = append(overviews, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate schools: %w", err)
	}

	return overviews, total, nil
}

// SweepExpiredTrials is a single conditional bulk update. A school already
// transitioned by one sweep run no longer matches the predicate, so concurrent
// invocations are safe without any extra locking, and a school with an active
// subscription is never touched.
func (r *SchoolRepository) SweepExpiredTrials(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
        UPDATE schools s
        SET status = $1, updated_at = NOW()
        WHERE s.status = $2
          AND s.trial_ends_at IS NOT NULL
          AND s.trial_ends_at < $3
          AND NOT EXISTS (
              SELECT 1 FROM subscriptions sub
              WHERE sub.school_id = s.id AND sub.status = $4
          )
        RETURNING s.id
    `

	rows, err := r.db.QueryContext(ctx, query, domain.StatusSuspended, domain.StatusTrial, now, domain.SubActive)
	if err != nil {
		return nil, fmt.Errorf("sweep expired trials: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan swept school id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swept schools: %w", err)
	}

	return ids, nil
}
