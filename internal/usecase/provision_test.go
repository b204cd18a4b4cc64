package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/domain/mocks"
)

func validRequest() ProvisionRequest {
	return ProvisionRequest{
		SchoolName:    "Greenwood High",
		SchoolEmail:   "office@greenwood.edu",
		PlanID:        1,
		BillingCycle:  "monthly",
		AdminName:     "Jordan Reyes",
		AdminEmail:    "admin@greenwood.edu",
		AdminPassword: "correct-horse",
	}
}

type provisionFixture struct {
	uc      *ProvisionUseCase
	schools *mocks.MockSchoolRepository
	subs    *mocks.MockSubscriptionRepository
	prov    *mocks.MockProvisioner
	events  *mocks.MockEventPublisher
}

func newProvisionFixture() *provisionFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	schools := mocks.NewMockSchoolRepository()
	subs := &mocks.MockSubscriptionRepository{}
	plans := &mocks.MockPlanRepository{Plans: map[int64]*domain.Plan{
		1: {ID: 1, Name: "Standard", PriceMonthly: 1000, IsActive: true},
	}}
	prov := &mocks.MockProvisioner{}
	events := &mocks.MockEventPublisher{}
	ledger := NewLedger(plans, subs, &mocks.MockInvoiceRepository{}, schools, logger)

	uc := NewProvisionUseCase(schools, prov, ledger, events, logger, nil, "campuscore.app", 7)
	return &provisionFixture{uc: uc, schools: schools, subs: subs, prov: prov, events: events}
}

func TestProvisionUseCase_Provision(t *testing.T) {
	actor := domain.ActorContext{Role: "superadmin"}

	t.Run("End To End", func(t *testing.T) {
		f := newProvisionFixture()
		start := time.Now()

		resp, err := f.uc.Provision(context.Background(), actor, validRequest())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !resp.Success {
			t.Fatalf("expected success, got %+v", resp)
		}
		if resp.SchoolSlug != "greenwood-high" {
			t.Errorf("expected slug greenwood-high, got %q", resp.SchoolSlug)
		}
		if resp.SchoolURL != "https://greenwood-high.campuscore.app" {
			t.Errorf("unexpected school URL %q", resp.SchoolURL)
		}

		school, err := f.schools.GetByID(context.Background(), resp.SchoolID)
		if err != nil {
			t.Fatalf("school not found: %v", err)
		}
		if school.Status != domain.StatusTrial {
			t.Errorf("expected status trial, got %s", school.Status)
		}
		if school.TrialEndsAt == nil {
			t.Fatal("expected trial_ends_at to be set")
		}
		wantEnd := start.AddDate(0, 0, 7)
		if diff := school.TrialEndsAt.Sub(wantEnd); diff < -time.Minute || diff > time.Minute {
			t.Errorf("expected trial to end about %v, got %v", wantEnd, school.TrialEndsAt)
		}
		if school.DatabaseName != fmt.Sprintf("school_%d_db", resp.SchoolID) {
			t.Errorf("unexpected database name %q", school.DatabaseName)
		}

		if len(f.subs.Created) != 1 {
			t.Fatalf("expected 1 subscription, got %d", len(f.subs.Created))
		}
		sub := f.subs.Created[0]
		if sub.Status != domain.SubPending {
			t.Errorf("expected pending subscription, got %s", sub.Status)
		}
		if sub.Amount != 1000 {
			t.Errorf("expected amount 1000, got %d", sub.Amount)
		}
		if sub.BillingCycle != domain.CycleMonthly {
			t.Errorf("expected monthly cycle, got %s", sub.BillingCycle)
		}

		if len(f.events.Events) != 1 || f.events.Events[0].Type != domain.EventProvisioned {
			t.Errorf("expected a provisioned event, got %+v", f.events.Events)
		}
	})

	t.Run("Validation Reports Every Field", func(t *testing.T) {
		f := newProvisionFixture()

		_, err := f.uc.Provision(context.Background(), actor, ProvisionRequest{
			SchoolEmail:   "not-an-email",
			AdminPassword: "short",
		})

		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"school_name", "school_email", "admin_name", "admin_email", "admin_password"} {
			if _, ok := vErr.Fields[field]; !ok {
				t.Errorf("expected field %q in validation error, got %v", field, vErr.Fields)
			}
		}
		if len(f.schools.Schools) != 0 {
			t.Errorf("expected no school created, got %d", len(f.schools.Schools))
		}
	})

	t.Run("Slug Conflict Disambiguated", func(t *testing.T) {
		f := newProvisionFixture()

		first, err := f.uc.Provision(context.Background(), actor, validRequest())
		if err != nil {
			t.Fatalf("first provision failed: %v", err)
		}
		second, err := f.uc.Provision(context.Background(), actor, validRequest())
		if err != nil {
			t.Fatalf("second provision failed: %v", err)
		}

		if first.SchoolSlug != "greenwood-high" {
			t.Errorf("expected base slug for first school, got %q", first.SchoolSlug)
		}
		if second.SchoolSlug == first.SchoolSlug {
			t.Error("expected second slug to be disambiguated")
		}
		if !strings.HasPrefix(second.SchoolSlug, "greenwood") {
			t.Errorf("expected disambiguated slug to keep the base, got %q", second.SchoolSlug)
		}
	})

	t.Run("Concurrent Same Name Yields Distinct Slugs", func(t *testing.T) {
		f := newProvisionFixture()
		const n = 8

		var wg sync.WaitGroup
		slugs := make(chan string, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := f.uc.Provision(context.Background(), actor, validRequest())
				if err != nil {
					t.Errorf("concurrent provision failed: %v", err)
					return
				}
				slugs <- resp.SchoolSlug
			}()
		}
		wg.Wait()
		close(slugs)

		seen := map[string]bool{}
		for slug := range slugs {
			if seen[slug] {
				t.Errorf("duplicate slug %q", slug)
			}
			seen[slug] = true
		}
		if len(f.schools.Schools) != n {
			t.Errorf("expected %d schools, got %d", n, len(f.schools.Schools))
		}
	})

	t.Run("Infra Failure Marks Provision Failed", func(t *testing.T) {
		f := newProvisionFixture()
		f.prov.FailuresLeft = 1
		f.prov.Err = &domain.ProvisioningInfraError{Op: "create database", Err: errors.New("connection refused")}

		resp, err := f.uc.Provision(context.Background(), actor, validRequest())
		if err == nil {
			t.Fatal("expected an error")
		}
		if resp == nil || resp.Success {
			t.Fatalf("expected failure response, got %+v", resp)
		}

		school, getErr := f.schools.GetByID(context.Background(), resp.SchoolID)
		if getErr != nil {
			t.Fatalf("school not found: %v", getErr)
		}
		if school.Status != domain.StatusProvisionFailed {
			t.Errorf("expected provision_failed, got %s", school.Status)
		}
	})

	t.Run("Admin Seed Failure Leaves Pending Then Reprovision Converges", func(t *testing.T) {
		f := newProvisionFixture()
		f.prov.FailuresLeft = 1
		f.prov.Err = &domain.AdminSeedError{Database: "school_1_db", Err: errors.New("insert failed")}

		resp, err := f.uc.Provision(context.Background(), actor, validRequest())
		if err == nil {
			t.Fatal("expected an error")
		}

		school, getErr := f.schools.GetByID(context.Background(), resp.SchoolID)
		if getErr != nil {
			t.Fatalf("school not found: %v", getErr)
		}
		if school.Status != domain.StatusPending {
			t.Errorf("expected school left pending for retry, got %s", school.Status)
		}

		retry, err := f.uc.Reprovision(context.Background(), actor, resp.SchoolID, domain.AdminDraft{
			Name:     "Jordan Reyes",
			Email:    "admin@greenwood.edu",
			Password: "correct-horse",
		})
		if err != nil {
			t.Fatalf("reprovision failed: %v", err)
		}
		if !retry.Success {
			t.Fatalf("expected reprovision success, got %+v", retry)
		}

		school, _ = f.schools.GetByID(context.Background(), resp.SchoolID)
		if school.Status != domain.StatusTrial {
			t.Errorf("expected trial after reprovision, got %s", school.Status)
		}
		if len(f.schools.Schools) != 1 {
			t.Errorf("expected a single school row, got %d", len(f.schools.Schools))
		}
		if f.prov.Calls != 2 {
			t.Errorf("expected 2 provisioner calls, got %d", f.prov.Calls)
		}
	})

	t.Run("Subscription Failure Is Non Fatal", func(t *testing.T) {
		f := newProvisionFixture()
		f.subs.CreateErr = errors.New("registry write failed")

		resp, err := f.uc.Provision(context.Background(), actor, validRequest())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !resp.Success {
			t.Fatalf("expected success despite subscription failure, got %+v", resp)
		}
		if got := resp.Debug["subscription"]; !strings.HasPrefix(got, "failed") {
			t.Errorf("expected failed subscription in debug, got %q", got)
		}

		school, _ := f.schools.GetByID(context.Background(), resp.SchoolID)
		if school.Status != domain.StatusTrial {
			t.Errorf("expected trial, got %s", school.Status)
		}
	})

	t.Run("Reprovision Rejects Healthy School", func(t *testing.T) {
		f := newProvisionFixture()
		resp, err := f.uc.Provision(context.Background(), actor, validRequest())
		if err != nil {
			t.Fatalf("provision failed: %v", err)
		}

		_, err = f.uc.Reprovision(context.Background(), actor, resp.SchoolID, domain.AdminDraft{})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("expected ValidationError for trial school, got %v", err)
		}
	})
}
