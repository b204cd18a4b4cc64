package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/domain/mocks"
)

func testLedger(plans *mocks.MockPlanRepository, subs *mocks.MockSubscriptionRepository, schools *mocks.MockSchoolRepository) *Ledger {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLedger(plans, subs, &mocks.MockInvoiceRepository{}, schools, logger)
}

func TestLedger_Attach(t *testing.T) {
	plan := &domain.Plan{ID: 1, Name: "Standard", PriceMonthly: 1000, IsActive: true}

	t.Run("Monthly Amount Is Plan Price", func(t *testing.T) {
		schools := mocks.NewMockSchoolRepository()
		id, _ := schools.Create(context.Background(), &domain.School{Name: "A", Slug: "a"})
		subs := &mocks.MockSubscriptionRepository{}
		ledger := testLedger(&mocks.MockPlanRepository{Plans: map[int64]*domain.Plan{1: plan}}, subs, schools)

		sub, err := ledger.Attach(context.Background(), id, 1, domain.CycleMonthly)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sub.Amount != 1000 {
			t.Errorf("expected amount 1000, got %d", sub.Amount)
		}
		if sub.Status != domain.SubPending {
			t.Errorf("expected pending status, got %s", sub.Status)
		}
		if sub.BillingCycle != domain.CycleMonthly {
			t.Errorf("expected monthly cycle, got %s", sub.BillingCycle)
		}
	})

	t.Run("Yearly Amount Gets Fixed Discount", func(t *testing.T) {
		schools := mocks.NewMockSchoolRepository()
		id, _ := schools.Create(context.Background(), &domain.School{Name: "B", Slug: "b"})
		subs := &mocks.MockSubscriptionRepository{}
		ledger := testLedger(&mocks.MockPlanRepository{Plans: map[int64]*domain.Plan{1: plan}}, subs, schools)

		sub, err := ledger.Attach(context.Background(), id, 1, domain.CycleYearly)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		// 1000 * 12 * 0.85
		if sub.Amount != 10200 {
			t.Errorf("expected amount 10200, got %d", sub.Amount)
		}
	})

	t.Run("Period Is One Month Regardless Of Cycle", func(t *testing.T) {
		schools := mocks.NewMockSchoolRepository()
		id, _ := schools.Create(context.Background(), &domain.School{Name: "C", Slug: "c"})
		subs := &mocks.MockSubscriptionRepository{}
		ledger := testLedger(&mocks.MockPlanRepository{Plans: map[int64]*domain.Plan{1: plan}}, subs, schools)
		fixed := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
		ledger.now = func() time.Time { return fixed }

		sub, err := ledger.Attach(context.Background(), id, 1, domain.CycleYearly)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !sub.CurrentPeriodStart.Equal(fixed) {
			t.Errorf("expected period start %v, got %v", fixed, sub.CurrentPeriodStart)
		}
		wantEnd := fixed.AddDate(0, 1, 0)
		if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Equal(wantEnd) {
			t.Errorf("expected period end %v, got %v", wantEnd, sub.CurrentPeriodEnd)
		}
	})

	t.Run("Opening Invoice Recorded", func(t *testing.T) {
		schools := mocks.NewMockSchoolRepository()
		id, _ := schools.Create(context.Background(), &domain.School{Name: "F", Slug: "f"})
		invoices := &mocks.MockInvoiceRepository{}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		ledger := NewLedger(&mocks.MockPlanRepository{Plans: map[int64]*domain.Plan{1: plan}},
			&mocks.MockSubscriptionRepository{}, invoices, schools, logger)

		sub, err := ledger.Attach(context.Background(), id, 1, domain.CycleYearly)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		listed, _ := ledger.Invoices(context.Background(), id)
		if len(listed) != 1 {
			t.Fatalf("expected 1 opening invoice, got %d", len(listed))
		}
		if listed[0].Amount != sub.Amount {
			t.Errorf("expected invoice amount %d, got %d", sub.Amount, listed[0].Amount)
		}
		if listed[0].Status != domain.InvoicePending {
			t.Errorf("expected pending invoice, got %s", listed[0].Status)
		}

		if err := ledger.RecordPayment(context.Background(), listed[0].ID); err != nil {
			t.Fatalf("expected payment to record, got %v", err)
		}
		if err := ledger.RecordPayment(context.Background(), listed[0].ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected replayed payment to report not found, got %v", err)
		}
	})

	t.Run("Inactive Plan Rejected", func(t *testing.T) {
		delisted := &domain.Plan{ID: 2, Name: "Legacy", PriceMonthly: 500, IsActive: false}
		schools := mocks.NewMockSchoolRepository()
		id, _ := schools.Create(context.Background(), &domain.School{Name: "D", Slug: "d"})
		subs := &mocks.MockSubscriptionRepository{}
		ledger := testLedger(&mocks.MockPlanRepository{Plans: map[int64]*domain.Plan{2: delisted}}, subs, schools)

		_, err := ledger.Attach(context.Background(), id, 2, domain.CycleMonthly)
		if !errors.Is(err, domain.ErrPlanInactive) {
			t.Errorf("expected ErrPlanInactive, got %v", err)
		}
		if len(subs.Created) != 0 {
			t.Errorf("expected no subscription created, got %d", len(subs.Created))
		}
	})

	t.Run("Unknown Plan", func(t *testing.T) {
		schools := mocks.NewMockSchoolRepository()
		id, _ := schools.Create(context.Background(), &domain.School{Name: "E", Slug: "e"})
		ledger := testLedger(&mocks.MockPlanRepository{Plans: map[int64]*domain.Plan{}}, &mocks.MockSubscriptionRepository{}, schools)

		_, err := ledger.Attach(context.Background(), id, 99, domain.CycleMonthly)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Invalid Cycle Rejected", func(t *testing.T) {
		schools := mocks.NewMockSchoolRepository()
		ledger := testLedger(&mocks.MockPlanRepository{Plans: map[int64]*domain.Plan{1: plan}}, &mocks.MockSubscriptionRepository{}, schools)

		_, err := ledger.Attach(context.Background(), 1, 1, "weekly")
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestSubscriptionAmount(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		cycle domain.BillingCycle
		want  int64
	}{
		{"Monthly", 1000, domain.CycleMonthly, 1000},
		{"Yearly Discounted", 1000, domain.CycleYearly, 10200},
		{"Yearly Rounds Down", 999, domain.CycleYearly, 10189}, // 999*12*85/100 truncated
		{"Free Plan", 0, domain.CycleYearly, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubscriptionAmount(tt.price, tt.cycle); got != tt.want {
				t.Errorf("SubscriptionAmount(%d, %s) = %d, want %d", tt.price, tt.cycle, got, tt.want)
			}
		})
	}
}
