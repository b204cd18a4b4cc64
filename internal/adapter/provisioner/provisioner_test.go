package provisioner

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/campuscore/internal/domain"
)

type stubAdminLinker struct {
	linked  []*domain.SchoolAdmin
	linkErr error
}

func (s *stubAdminLinker) Link(ctx context.Context, link *domain.SchoolAdmin) error {
	if s.linkErr != nil {
		return s.linkErr
	}
	s.linked = append(s.linked, link)
	return nil
}

func (s *stubAdminLinker) CountBySchool(ctx context.Context, schoolID int64) (int, error) {
	return len(s.linked), nil
}

type fixture struct {
	provisioner *Provisioner
	maintenance sqlmock.Sqlmock
	tenant      sqlmock.Sqlmock
	admins      *stubAdminLinker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	maintenanceDB, maintenance, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { maintenanceDB.Close() })

	tenantDB, tenant, err := sqlmock.New()
	require.NoError(t, err)

	connect := func(ctx context.Context, dbName string) (*sql.DB, error) {
		return tenantDB, nil
	}

	admins := &stubAdminLinker{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		provisioner: New(maintenanceDB, connect, admins, t.TempDir(), logger),
		maintenance: maintenance,
		tenant:      tenant,
		admins:      admins,
	}
}

func school7() *domain.School {
	return &domain.School{ID: 7, Slug: "greenwood-high", DatabaseName: "school_7_db"}
}

var adminDraft = domain.AdminDraft{
	Name:     "Pat Jones",
	Email:    "pat@greenwood.edu",
	Password: "changeme123",
}

func expectTenantSetup(f *fixture, adminID int64) {
	f.tenant.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.tenant.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(adminID))
	f.tenant.ExpectClose()
}

func TestProvisioner_Provision(t *testing.T) {
	t.Run("Creates Database And Seeds Admin", func(t *testing.T) {
		f := newFixture(t)

		f.maintenance.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "school_7_db"`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		expectTenantSetup(f, 11)

		outcome, err := f.provisioner.Provision(context.Background(), school7(), adminDraft)
		require.NoError(t, err)

		assert.Equal(t, "school_7_db", outcome.DatabaseName)
		assert.Equal(t, int64(11), outcome.AdminUserID)
		assert.True(t, outcome.StorageAllocated)
		assert.True(t, outcome.AdminLinked)
		assert.Empty(t, outcome.Warnings)

		require.Len(t, f.admins.linked, 1)
		assert.Equal(t, int64(7), f.admins.linked[0].SchoolID)
		assert.Equal(t, int64(11), f.admins.linked[0].UserID)

		assert.NoError(t, f.maintenance.ExpectationsWereMet())
		assert.NoError(t, f.tenant.ExpectationsWereMet())
	})

	t.Run("Existing Database Is Not Recreated", func(t *testing.T) {
		f := newFixture(t)

		// A retry finds the database from the previous attempt and carries
		// on with the remaining steps instead of failing.
		f.maintenance.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "school_7_db"`)).
			WillReturnError(&pq.Error{Code: pgDuplicateDatabase})
		expectTenantSetup(f, 11)

		outcome, err := f.provisioner.Provision(context.Background(), school7(), adminDraft)
		require.NoError(t, err)
		assert.Equal(t, int64(11), outcome.AdminUserID)
		assert.NoError(t, f.maintenance.ExpectationsWereMet())
	})

	t.Run("Create Database Failure Is Infra", func(t *testing.T) {
		f := newFixture(t)

		f.maintenance.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "school_7_db"`)).
			WillReturnError(&pq.Error{Code: "53100", Message: "disk full"})

		_, err := f.provisioner.Provision(context.Background(), school7(), adminDraft)

		var infraErr *domain.ProvisioningInfraError
		require.ErrorAs(t, err, &infraErr)
		assert.Equal(t, "create database", infraErr.Op)
	})

	t.Run("Schema Failure", func(t *testing.T) {
		f := newFixture(t)

		f.maintenance.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "school_7_db"`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.tenant.ExpectExec("CREATE TABLE IF NOT EXISTS users").
			WillReturnError(errors.New("syntax error"))
		f.tenant.ExpectClose()

		_, err := f.provisioner.Provision(context.Background(), school7(), adminDraft)

		var schemaErr *domain.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, "school_7_db", schemaErr.Database)
	})

	t.Run("Admin Seed Failure", func(t *testing.T) {
		f := newFixture(t)

		f.maintenance.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "school_7_db"`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.tenant.ExpectExec("CREATE TABLE IF NOT EXISTS users").
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.tenant.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(errors.New("connection reset"))
		f.tenant.ExpectClose()

		_, err := f.provisioner.Provision(context.Background(), school7(), adminDraft)

		var seedErr *domain.AdminSeedError
		require.ErrorAs(t, err, &seedErr)
		assert.Equal(t, "school_7_db", seedErr.Database)
	})

	t.Run("Admin Link Failure Is A Warning", func(t *testing.T) {
		f := newFixture(t)
		f.admins.linkErr = errors.New("registry unavailable")

		f.maintenance.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "school_7_db"`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		expectTenantSetup(f, 11)

		outcome, err := f.provisioner.Provision(context.Background(), school7(), adminDraft)
		require.NoError(t, err)
		assert.False(t, outcome.AdminLinked)
		assert.NotEmpty(t, outcome.Warnings)
	})

	t.Run("Missing Database Name Rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.provisioner.Provision(context.Background(), &domain.School{ID: 7, Slug: "greenwood-high"}, adminDraft)
		assert.Error(t, err)
	})
}
