package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/user/campuscore/internal/domain"
)

// SchoolAdminRepository implements domain.SchoolAdminRepository against the
// registry.
type SchoolAdminRepository struct {
	db *sql.DB
}

// NewSchoolAdminRepository creates a new school admin repository.
func NewSchoolAdminRepository(db *sql.DB) *SchoolAdminRepository {
	return &SchoolAdminRepository{db: db}
}

var _ domain.SchoolAdminRepository = (*SchoolAdminRepository)(nil)

// Link mirrors a tenant admin into the registry. ON CONFLICT DO NOTHING keeps
// the write idempotent across provisioning retries.
func (r *SchoolAdminRepository) Link(ctx context.Context, admin *domain.SchoolAdmin) error {
	role := admin.Role
	if role == "" {
		role = "admin"
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO school_admins (school_id, user_id, email, role, permissions, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
        ON CONFLICT (school_id, user_id) DO NOTHING
    `, admin.SchoolID, admin.UserID, admin.Email, role, pq.Array(admin.Permissions))
	if err != nil {
		return fmt.Errorf("link school admin: %w", err)
	}

	return nil
}

func (r *SchoolAdminRepository) CountBySchool(ctx context.Context, schoolID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM school_admins WHERE school_id = $1 AND is_active`,
		schoolID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count school admins: %w", err)
	}

	return count, nil
}
