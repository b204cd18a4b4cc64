package provisioner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lib/pq"
	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/pkg/util"
)

const pgDuplicateDatabase = "42P04"

// ConnectFunc opens a connection pool to a tenant database by name.
type ConnectFunc func(ctx context.Context, dbName string) (*sql.DB, error)

// Provisioner creates and seeds isolated tenant databases. Each step is
// idempotent, so a retry after a partial failure converges instead of erroring
// on work already done.
type Provisioner struct {
	maintenance *sql.DB // connection to the cluster used for CREATE DATABASE
	connect     ConnectFunc
	admins      domain.SchoolAdminRepository
	assetsRoot  string
	logger      *slog.Logger
}

// New creates a tenant database provisioner.
func New(maintenance *sql.DB, connect ConnectFunc, admins domain.SchoolAdminRepository, assetsRoot string, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		maintenance: maintenance,
		connect:     connect,
		admins:      admins,
		assetsRoot:  assetsRoot,
		logger:      logger,
	}
}

var _ domain.TenantProvisioner = (*Provisioner)(nil)

// Provision creates the tenant database, applies the baseline schema, seeds
// the primary admin, and mirrors the admin into the registry. The database
// name must already be assigned on the school row. Asset-namespace allocation
// and admin mirroring are non-fatal; their failures surface as warnings.
func (p *Provisioner) Provision(ctx context.Context, school *domain.School, admin domain.AdminDraft) (*domain.ProvisionOutcome, error) {
	if school.DatabaseName == "" {
		return nil, fmt.Errorf("school %d has no database name assigned", school.ID)
	}

	if err := p.ensureDatabase(ctx, school.DatabaseName); err != nil {
		return nil, err
	}

	tenantDB, err := p.connect(ctx, school.DatabaseName)
	if err != nil {
		return nil, &domain.ProvisioningInfraError{Op: "connect tenant database", Err: err}
	}
	defer tenantDB.Close()

	if err := tenantDB.PingContext(ctx); err != nil {
		return nil, &domain.ProvisioningInfraError{Op: "ping tenant database", Err: err}
	}

	if _, err := tenantDB.ExecContext(ctx, baselineSchema); err != nil {
		return nil, &domain.SchemaError{Database: school.DatabaseName, Err: err}
	}

	adminID, err := p.seedAdmin(ctx, tenantDB, admin)
	if err != nil {
		return nil, &domain.AdminSeedError{Database: school.DatabaseName, Err: err}
	}

	outcome := &domain.ProvisionOutcome{
		DatabaseName: school.DatabaseName,
		AdminUserID:  adminID,
	}

	if err := p.allocateAssetNamespace(school.Slug); err != nil {
		p.logger.Warn("asset namespace allocation failed, tenant remains usable",
			"school_id", school.ID, "error", err)
		outcome.Warnings = append(outcome.Warnings,
			(&domain.SideEffectError{Step: "asset namespace", Err: err}).Error())
	} else {
		outcome.StorageAllocated = true
	}

	link := &domain.SchoolAdmin{
		SchoolID: school.ID,
		UserID:   adminID,
		Email:    admin.Email,
		Role:     "admin",
	}
	if err := p.admins.Link(ctx, link); err != nil {
		p.logger.Warn("failed to mirror admin into registry",
			"school_id", school.ID, "error", err)
		outcome.Warnings = append(outcome.Warnings,
			(&domain.SideEffectError{Step: "admin link", Err: err}).Error())
	} else {
		outcome.AdminLinked = true
	}

	return outcome, nil
}

// ensureDatabase creates the tenant database. Postgres has no CREATE DATABASE
// IF NOT EXISTS, so idempotency comes from tolerating duplicate_database: a
// retry after a partial failure finds the database already created and moves
// on.
func (p *Provisioner) ensureDatabase(ctx context.Context, name string) error {
	_, err := p.maintenance.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgDuplicateDatabase {
			p.logger.Debug("tenant database already exists, skipping creation", "database", name)
			return nil
		}
		return &domain.ProvisioningInfraError{Op: "create database", Err: err}
	}

	p.logger.Info("created tenant database", "database", name)
	return nil
}

// seedAdmin inserts the primary administrator. The upsert keeps the step
// idempotent: a retry lands on the existing row and returns its id.
func (p *Provisioner) seedAdmin(ctx context.Context, tenantDB *sql.DB, admin domain.AdminDraft) (int64, error) {
	hash, err := util.HashPassword(admin.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	var id int64
	err = tenantDB.QueryRowContext(ctx, `
        INSERT INTO users (name, email, password_hash, phone, user_type, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), 'admin', TRUE, NOW(), NOW())
        ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
        RETURNING id
    `, admin.Name, admin.Email, hash, admin.Phone).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert admin user: %w", err)
	}

	return id, nil
}

func (p *Provisioner) allocateAssetNamespace(slug string) error {
	return os.MkdirAll(filepath.Join(p.assetsRoot, slug), 0o755)
}
