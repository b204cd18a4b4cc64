package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/user/campuscore/internal/adapter/metrics"
	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/identity"
)

// slugRetryLimit bounds how many disambiguated slugs are tried when racing
// creators collide on the same base slug.
const slugRetryLimit = 4

// ProvisionRequest is the validated onboarding input consumed from the UI
// boundary.
type ProvisionRequest struct {
	SchoolName  string `json:"school_name"`
	SchoolEmail string `json:"school_email"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`

	PlanID       int64  `json:"plan_id,omitempty"`
	BillingCycle string `json:"billing_cycle,omitempty"`

	AdminName     string `json:"admin_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
	AdminPhone    string `json:"admin_phone,omitempty"`
}

// ProvisionResponse reports the onboarding outcome. Success depends only on
// the registry row and the tenant database; Debug carries non-fatal sub-step
// outcomes for operator visibility and is never required to interpret the
// result.
type ProvisionResponse struct {
	Success    bool              `json:"success"`
	SchoolID   int64             `json:"school_id,omitempty"`
	SchoolSlug string            `json:"school_slug,omitempty"`
	SchoolURL  string            `json:"school_url,omitempty"`
	AdminEmail string            `json:"admin_email,omitempty"`
	Message    string            `json:"message"`
	Debug      map[string]string `json:"debug,omitempty"`
}

// ProvisionUseCase composes the identity allocator, registry, tenant database
// provisioner, and subscription ledger into the onboarding saga. There is no
// transaction spanning the registry and the tenant database; the registry row
// is the durable intent record and every later step is idempotent.
type ProvisionUseCase struct {
	schools     domain.SchoolRepository
	provisioner domain.TenantProvisioner
	ledger      *Ledger
	events      domain.EventPublisher
	logger      *slog.Logger
	metrics     *metrics.RegistryMetrics
	baseDomain  string
	trialDays   int
	now         func() time.Time
}

// NewProvisionUseCase creates the provisioning orchestrator.
func NewProvisionUseCase(
	schools domain.SchoolRepository,
	provisioner domain.TenantProvisioner,
	ledger *Ledger,
	events domain.EventPublisher,
	logger *slog.Logger,
	m *metrics.RegistryMetrics,
	baseDomain string,
	trialDays int,
) *ProvisionUseCase {
	return &ProvisionUseCase{
		schools:     schools,
		provisioner: provisioner,
		ledger:      ledger,
		events:      events,
		logger:      logger,
		metrics:     m,
		baseDomain:  baseDomain,
		trialDays:   trialDays,
		now:         time.Now,
	}
}

// Provision runs the onboarding workflow for one school.
func (uc *ProvisionUseCase) Provision(ctx context.Context, actor domain.ActorContext, req ProvisionRequest) (*ProvisionResponse, error) {
	start := uc.now()

	if err := validateRequest(req); err != nil {
		uc.countOutcome("validation_error")
		return nil, err
	}

	school := &domain.School{
		UUID:    identity.NewUUID(),
		Name:    strings.TrimSpace(req.SchoolName),
		Slug:    identity.Slugify(req.SchoolName),
		Email:   strings.TrimSpace(req.SchoolEmail),
		Phone:   req.Phone,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		Country: req.Country,
		Status:  domain.StatusPending,
	}

	id, err := uc.createWithSlugRetry(ctx, school)
	if err != nil {
		return nil, err
	}
	school.ID = id

	school.DatabaseName = identity.TenantDatabaseName(id)
	if err := uc.schools.AssignDatabaseName(ctx, id, school.DatabaseName); err != nil {
		uc.countOutcome("infra_error")
		return nil, err
	}

	debug := map[string]string{}

	outcome, err := uc.provisioner.Provision(ctx, school, domain.AdminDraft{
		Name:     req.AdminName,
		Email:    req.AdminEmail,
		Password: req.AdminPassword,
		Phone:    req.AdminPhone,
	})
	if err != nil {
		return uc.failProvisioning(ctx, actor, school, err)
	}

	debug["database"] = "created"
	debug["admin"] = "created"
	if outcome.AdminLinked {
		debug["admin_link"] = "created"
	} else {
		debug["admin_link"] = "failed"
	}
	if outcome.StorageAllocated {
		debug["storage"] = "allocated"
	} else {
		debug["storage"] = "failed"
	}
	for _, w := range outcome.Warnings {
		uc.logger.Warn("non-fatal provisioning warning", "school_id", id, "warning", w)
	}

	if req.PlanID > 0 {
		cycle := domain.BillingCycle(req.BillingCycle)
		if cycle == "" {
			cycle = domain.CycleMonthly
		}
		if _, err := uc.ledger.Attach(ctx, id, req.PlanID, cycle); err != nil {
			sideErr := &domain.SideEffectError{Step: "subscription", Err: err}
			uc.logger.Warn("subscription attach failed, tenant provisioned without one",
				"school_id", id, "error", sideErr)
			debug["subscription"] = "failed: " + err.Error()
		} else {
			debug["subscription"] = "created"
		}
	} else {
		debug["subscription"] = "skipped"
	}

	trialEndsAt := uc.now().UTC().AddDate(0, 0, uc.trialDays)
	if err := uc.schools.BeginTrial(ctx, id, trialEndsAt); err != nil {
		uc.countOutcome("infra_error")
		return nil, fmt.Errorf("begin trial: %w", err)
	}

	uc.publish(ctx, actor, school, domain.EventProvisioned, domain.StatusTrial)

	if uc.metrics != nil {
		uc.metrics.ProvisionSeconds.Observe(uc.now().Sub(start).Seconds())
	}
	uc.countOutcome("success")

	uc.logger.Info("school provisioned",
		"school_id", id,
		"slug", school.Slug,
		"database", school.DatabaseName,
		"actor_id", actor.ID,
	)

	return &ProvisionResponse{
		Success:    true,
		SchoolID:   id,
		SchoolSlug: school.Slug,
		SchoolURL:  fmt.Sprintf("https://%s.%s", school.Slug, uc.baseDomain),
		AdminEmail: req.AdminEmail,
		Message:    "school provisioned",
		Debug:      debug,
	}, nil
}

// Reprovision re-runs the tenant-database steps for a school whose earlier
// provisioning attempt did not complete. Every provisioner step is idempotent,
// so repeated calls converge on a fully provisioned tenant instead of erroring
// on work already done.
func (uc *ProvisionUseCase) Reprovision(ctx context.Context, actor domain.ActorContext, schoolID int64, admin domain.AdminDraft) (*ProvisionResponse, error) {
	school, err := uc.schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	if school.Status != domain.StatusPending && school.Status != domain.StatusProvisionFailed {
		return nil, &domain.ValidationError{Fields: map[string]string{
			"status": fmt.Sprintf("school is %s, only pending or provision_failed schools can be reprovisioned", school.Status),
		}}
	}

	if school.DatabaseName == "" {
		school.DatabaseName = identity.TenantDatabaseName(schoolID)
		if err := uc.schools.AssignDatabaseName(ctx, schoolID, school.DatabaseName); err != nil {
			uc.countOutcome("infra_error")
			return nil, err
		}
	}

	outcome, err := uc.provisioner.Provision(ctx, school, admin)
	if err != nil {
		return uc.failProvisioning(ctx, actor, school, err)
	}
	for _, w := range outcome.Warnings {
		uc.logger.Warn("non-fatal provisioning warning", "school_id", schoolID, "warning", w)
	}

	trialEndsAt := uc.now().UTC().AddDate(0, 0, uc.trialDays)
	if err := uc.schools.BeginTrial(ctx, schoolID, trialEndsAt); err != nil {
		uc.countOutcome("infra_error")
		return nil, fmt.Errorf("begin trial: %w", err)
	}

	uc.publish(ctx, actor, school, domain.EventProvisioned, domain.StatusTrial)
	uc.countOutcome("success")

	return &ProvisionResponse{
		Success:    true,
		SchoolID:   schoolID,
		SchoolSlug: school.Slug,
		SchoolURL:  fmt.Sprintf("https://%s.%s", school.Slug, uc.baseDomain),
		AdminEmail: admin.Email,
		Message:    "school provisioned",
	}, nil
}

// createWithSlugRetry inserts the school row, retrying with a disambiguated
// slug when the storage layer reports the unique constraint fired. Reacting to
// the actual conflict instead of a prior existence check closes the
// check-then-insert race.
func (uc *ProvisionUseCase) createWithSlugRetry(ctx context.Context, school *domain.School) (int64, error) {
	base := school.Slug
	for attempt := 0; attempt < slugRetryLimit; attempt++ {
		id, err := uc.schools.Create(ctx, school)
		if err == nil {
			return id, nil
		}

		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			uc.countOutcome("infra_error")
			return 0, err
		}

		school.Slug = identity.Disambiguate(base)
		uc.logger.Debug("slug conflict, retrying with disambiguated slug",
			"base", base, "slug", school.Slug)
	}

	uc.countOutcome("conflict")
	return 0, &domain.ConflictError{Constraint: "slug", Value: base}
}

// failProvisioning classifies a tenant-database failure and records a
// distinguishable state for it. Infrastructure and schema failures mark the
// school provision_failed so the orphaned row is never mistaken for a healthy
// tenant; an admin-seed failure leaves the row pending because the database is
// intact and a retry converges.
func (uc *ProvisionUseCase) failProvisioning(ctx context.Context, actor domain.ActorContext, school *domain.School, err error) (*ProvisionResponse, error) {
	var (
		infraErr  *domain.ProvisioningInfraError
		schemaErr *domain.SchemaError
		seedErr   *domain.AdminSeedError
	)

	switch {
	case errors.As(err, &seedErr):
		uc.countOutcome("infra_error")
		uc.logger.Error("admin seed failed, school left pending for retry",
			"school_id", school.ID, "error", err)
		return &ProvisionResponse{
			Success:  false,
			SchoolID: school.ID,
			Message:  "the school's administrator account could not be created; retry provisioning",
		}, err

	case errors.As(err, &schemaErr):
		uc.countOutcome("schema_error")
	case errors.As(err, &infraErr):
		uc.countOutcome("infra_error")
	default:
		uc.countOutcome("infra_error")
	}

	if updateErr := uc.schools.UpdateStatus(ctx, school.ID, domain.StatusProvisionFailed); updateErr != nil {
		uc.logger.Error("failed to mark school provision_failed",
			"school_id", school.ID, "error", updateErr)
	}
	uc.publish(ctx, actor, school, domain.EventProvisionFailed, domain.StatusProvisionFailed)

	uc.logger.Error("tenant database provisioning failed",
		"school_id", school.ID, "database", school.DatabaseName, "error", err)

	return &ProvisionResponse{
		Success:  false,
		SchoolID: school.ID,
		Message:  "the school's database could not be provisioned",
	}, err
}

func (uc *ProvisionUseCase) publish(ctx context.Context, actor domain.ActorContext, school *domain.School, typ domain.LifecycleEventType, status domain.SchoolStatus) {
	event := domain.LifecycleEvent{
		ID:         identity.NewUUID(),
		Type:       typ,
		SchoolID:   school.ID,
		SchoolUUID: school.UUID,
		Status:     status,
		ActorID:    actor.ID.String(),
		OccurredAt: uc.now().UTC(),
	}
	if err := uc.events.Publish(ctx, event); err != nil {
		uc.logger.Warn("failed to publish lifecycle event",
			"type", typ, "school_id", school.ID, "error", err)
	}
}

func (uc *ProvisionUseCase) countOutcome(outcome string) {
	if uc.metrics != nil {
		uc.metrics.ProvisionsTotal.WithLabelValues(outcome).Inc()
	}
}

// validateRequest checks every required field and reports all problems at
// once.
func validateRequest(req ProvisionRequest) error {
	fields := map[string]string{}

	if strings.TrimSpace(req.SchoolName) == "" {
		fields["school_name"] = "required"
	}
	if strings.TrimSpace(req.SchoolEmail) == "" {
		fields["school_email"] = "required"
	} else if _, err := mail.ParseAddress(req.SchoolEmail); err != nil {
		fields["school_email"] = "invalid email address"
	}
	if strings.TrimSpace(req.AdminName) == "" {
		fields["admin_name"] = "required"
	}
	if strings.TrimSpace(req.AdminEmail) == "" {
		fields["admin_email"] = "required"
	} else if _, err := mail.ParseAddress(req.AdminEmail); err != nil {
		fields["admin_email"] = "invalid email address"
	}
	if req.AdminPassword == "" {
		fields["admin_password"] = "required"
	} else if len(req.AdminPassword) < 8 {
		fields["admin_password"] = "must be at least 8 characters"
	}
	if req.BillingCycle != "" && !domain.ValidBillingCycle(domain.BillingCycle(req.BillingCycle)) {
		fields["billing_cycle"] = "must be monthly or yearly"
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
