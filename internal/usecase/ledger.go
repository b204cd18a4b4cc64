package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/campuscore/internal/domain"
)

// yearlyDiscountPercent is applied to twelve months of the monthly price when
// a subscription is attached on the yearly cycle.
const yearlyDiscountPercent = 15

const defaultCurrency = "USD"

// Ledger attaches subscriptions to schools and computes their monetary facts.
type Ledger struct {
	plans    domain.PlanRepository
	subs     domain.SubscriptionRepository
	invoices domain.InvoiceRepository
	schools  domain.SchoolRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewLedger creates a subscription ledger.
func NewLedger(plans domain.PlanRepository, subs domain.SubscriptionRepository, invoices domain.InvoiceRepository, schools domain.SchoolRepository, logger *slog.Logger) *Ledger {
	return &Ledger{
		plans:    plans,
		subs:     subs,
		invoices: invoices,
		schools:  schools,
		logger:   logger,
		now:      time.Now,
	}
}

// Attach creates a pending subscription for the school on the given plan.
// Activation is a billing-confirmation step that happens elsewhere; the ledger
// only records the intent and the amount.
//
// The period end is start+1 month regardless of billing cycle; renewal logic
// recomputes the true period length on each billing event.
func (l *Ledger) Attach(ctx context.Context, schoolID, planID int64, cycle domain.BillingCycle) (*domain.Subscription, error) {
	if !domain.ValidBillingCycle(cycle) {
		return nil, &domain.ValidationError{Fields: map[string]string{
			"billing_cycle": "must be monthly or yearly",
		}}
	}

	plan, err := l.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}

	now := l.now().UTC()
	periodEnd := now.AddDate(0, 1, 0)

	sub := &domain.Subscription{
		SchoolID:           schoolID,
		PlanID:             plan.ID,
		Status:             domain.SubPending,
		BillingCycle:       cycle,
		Amount:             SubscriptionAmount(plan.PriceMonthly, cycle),
		Currency:           defaultCurrency,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   &periodEnd,
	}

	id, err := l.subs.Create(ctx, sub)
	if err != nil {
		return nil, err
	}
	sub.ID = id

	if err := l.schools.SetPlan(ctx, schoolID, plan.ID); err != nil {
		// The subscription row carries the plan reference; the denormalized
		// school column catches up on the next administrative write.
		l.logger.Warn("failed to set plan on school row", "school_id", schoolID, "error", err)
	}

	// The opening invoice records what the first billing event will charge.
	invoice := &domain.Invoice{
		SchoolID: schoolID,
		Amount:   sub.Amount,
		Status:   domain.InvoicePending,
	}
	if _, err := l.invoices.Create(ctx, invoice); err != nil {
		l.logger.Warn("failed to record opening invoice", "school_id", schoolID, "error", err)
	}

	l.logger.Info("attached subscription",
		"school_id", schoolID,
		"plan_id", plan.ID,
		"billing_cycle", cycle,
		"amount", sub.Amount,
	)

	return sub, nil
}

// RecordPayment marks an invoice paid. The storage layer never mutates a paid
// invoice, so a replayed confirmation surfaces as not found instead of
// rewriting the payment time.
func (l *Ledger) RecordPayment(ctx context.Context, invoiceID int64) error {
	if err := l.invoices.MarkPaid(ctx, invoiceID, l.now().UTC()); err != nil {
		return err
	}
	l.logger.Info("invoice paid", "invoice_id", invoiceID)
	return nil
}

// Invoices lists a school's billing history, newest first.
func (l *Ledger) Invoices(ctx context.Context, schoolID int64) ([]*domain.Invoice, error) {
	return l.invoices.ListBySchool(ctx, schoolID)
}

// SubscriptionAmount computes the charge for a plan's monthly price under a
// billing cycle, in minor units. Yearly billing prepays twelve months at a
// fixed discount.
func SubscriptionAmount(priceMonthly int64, cycle domain.BillingCycle) int64 {
	if cycle == domain.CycleYearly {
		return priceMonthly * 12 * (100 - yearlyDiscountPercent) / 100
	}
	return priceMonthly
}
