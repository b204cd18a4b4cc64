package domain

import "time"

// SubscriptionStatus is the billing state of a subscription.
type SubscriptionStatus string

const (
	SubPending  SubscriptionStatus = "pending"
	SubActive   SubscriptionStatus = "active"
	SubPastDue  SubscriptionStatus = "past_due"
	SubCanceled SubscriptionStatus = "canceled"
)

// BillingCycle is how often a subscription renews.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// ValidBillingCycle reports whether c is a known billing cycle.
func ValidBillingCycle(c BillingCycle) bool {
	return c == CycleMonthly || c == CycleYearly
}

// Subscription attaches a plan and billing cycle to a school. At most one
// active subscription exists per school. Amount is in minor units (cents).
type Subscription struct {
	ID                 int64              `json:"id"`
	SchoolID           int64              `json:"school_id"`
	PlanID             int64              `json:"plan_id"`
	Status             SubscriptionStatus `json:"status"`
	BillingCycle       BillingCycle       `json:"billing_cycle"`
	Amount             int64              `json:"amount"`
	Currency           string             `json:"currency"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// RenewalState classifies how urgently a subscription needs renewal.
type RenewalState string

const (
	RenewalTrialEnded           RenewalState = "trial_ended_suspended"
	RenewalInactive             RenewalState = "inactive"
	RenewalCancelled            RenewalState = "cancelled"
	RenewalPastDue              RenewalState = "past_due"
	RenewalInactiveSubscription RenewalState = "inactive_subscription"
	RenewalNoEndDate            RenewalState = "no_end_date"
	RenewalExpired              RenewalState = "expired"
	RenewalSoon                 RenewalState = "renewing_soon"
	RenewalNextMonth            RenewalState = "next_month"
	RenewalHealthy              RenewalState = "healthy"
)

// RenewalStatus is the derived, display-facing renewal classification.
type RenewalStatus struct {
	State RenewalState `json:"state"`
	// SchoolStatus is set when State is RenewalInactive, naming the lifecycle
	// state that made the school inactive.
	SchoolStatus SchoolStatus `json:"school_status,omitempty"`
	// DaysUntilRenewal is whole calendar days until current_period_end; it can
	// be negative and is only meaningful for the date-driven states.
	DaysUntilRenewal int `json:"days_until_renewal,omitempty"`
}
