package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/user/campuscore/internal/domain"
)

// InvoiceRepository implements domain.InvoiceRepository. Invoices are
// append-only; a paid invoice is never mutated again.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

var _ domain.InvoiceRepository = (*InvoiceRepository)(nil)

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) (int64, error) {
	status := inv.Status
	if status == "" {
		status = domain.InvoicePending
	}

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO invoices (school_id, amount, status, created_at) VALUES ($1, $2, $3, NOW()) RETURNING id`,
		inv.SchoolID, inv.Amount, status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create invoice: %w", err)
	}

	return id, nil
}

// MarkPaid transitions an invoice to paid. The status predicate keeps paid
// invoices immutable: marking twice affects zero rows the second time.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = $2, paid_at = $3 WHERE id = $1 AND status <> $2`,
		id, domain.InvoicePaid, paidAt,
	)
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *InvoiceRepository) ListBySchool(ctx context.Context, schoolID int64) ([]*domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, school_id, amount, status, paid_at, created_at FROM invoices WHERE school_id = $1 ORDER BY created_at DESC, id DESC`,
		schoolID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*domain.Invoice{}
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.SchoolID, &inv.Amount, &inv.Status, &inv.PaidAt, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}

	return invoices, nil
}
