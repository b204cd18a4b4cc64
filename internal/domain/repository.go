package domain

import (
	"context"
	"time"
)

// Page is an offset-based pagination request.
type Page struct {
	Number int
	Size   int
}

// SchoolRepository is the registry's school catalog. Slug uniqueness is
// enforced by a storage-layer unique constraint; Create surfaces a violation
// as a *ConflictError so the caller can retry with a disambiguated slug.
type SchoolRepository interface {
	// Create inserts the school and returns its registry-assigned id. The
	// insert is the single atomic serialization point of provisioning.
	Create(ctx context.Context, s *School) (int64, error)

	GetByID(ctx context.Context, id int64) (*School, error)

	// AssignDatabaseName records the tenant database name exactly once.
	// Re-assigning the same name is a no-op so provisioning retries converge.
	AssignDatabaseName(ctx context.Context, id int64, name string) error

	UpdateStatus(ctx context.Context, id int64, status SchoolStatus) error

	// BeginTrial moves the school to trial with the given trial deadline.
	BeginTrial(ctx context.Context, id int64, endsAt time.Time) error

	SetPlan(ctx context.Context, id int64, planID int64) error

	// List returns overview rows ordered by creation time descending (id as
	// tiebreak) together with the unpaginated total.
	List(ctx context.Context, filter SchoolFilter, page Page) ([]SchoolOverview, int, error)

	// SweepExpiredTrials suspends, in a single conditional bulk update, every
	// trial school whose trial clock ran out and that has no active
	// subscription. It returns the ids of the schools it transitioned.
	SweepExpiredTrials(ctx context.Context, now time.Time) ([]int64, error)
}

// PlanRepository reads the plan catalog.
type PlanRepository interface {
	GetByID(ctx context.Context, id int64) (*Plan, error)
	List(ctx context.Context, activeOnly bool) ([]*Plan, error)
}

// SubscriptionRepository persists subscriptions in the registry.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) (int64, error)
	LatestBySchool(ctx context.Context, schoolID int64) (*Subscription, error)
}

// InvoiceRepository is the append-only invoice ledger.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) (int64, error)
	// MarkPaid transitions a pending invoice to paid. A paid invoice is never
	// mutated again.
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) error
	ListBySchool(ctx context.Context, schoolID int64) ([]*Invoice, error)
}

// SchoolAdminRepository mirrors tenant admins into the registry.
type SchoolAdminRepository interface {
	// Link records the admin; relinking the same school/user pair is a no-op.
	Link(ctx context.Context, admin *SchoolAdmin) error
	CountBySchool(ctx context.Context, schoolID int64) (int, error)
}

// ProvisionOutcome reports what the tenant database provisioner produced.
type ProvisionOutcome struct {
	DatabaseName     string
	AdminUserID      int64
	StorageAllocated bool
	AdminLinked      bool
	// Warnings carries non-fatal sub-step failures for operator visibility.
	Warnings []string
}

// TenantProvisioner creates and seeds an isolated tenant database. Every step
// is independently retryable and the whole operation is idempotent under
// retry.
type TenantProvisioner interface {
	Provision(ctx context.Context, school *School, admin AdminDraft) (*ProvisionOutcome, error)
}
