package domain

import (
	"time"
)

// SchoolStatus is the lifecycle state of a tenant.
type SchoolStatus string

const (
	StatusPending   SchoolStatus = "pending"
	StatusTrial     SchoolStatus = "trial"
	StatusActive    SchoolStatus = "active"
	StatusSuspended SchoolStatus = "suspended"
	StatusCancelled SchoolStatus = "cancelled"

	// StatusProvisionFailed marks a registry row whose tenant database could not
	// be created. It keeps half-provisioned tenants distinguishable from healthy
	// ones; cleanup is a manual administrative action.
	StatusProvisionFailed SchoolStatus = "provision_failed"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s SchoolStatus) bool {
	switch s {
	case StatusPending, StatusTrial, StatusActive, StatusSuspended, StatusCancelled, StatusProvisionFailed:
		return true
	}
	return false
}

// School is one onboarded tenant in the registry.
type School struct {
	ID           int64        `json:"id"`
	UUID         string       `json:"uuid"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone,omitempty"`
	Address      string       `json:"address,omitempty"`
	City         string       `json:"city,omitempty"`
	State        string       `json:"state,omitempty"`
	Country      string       `json:"country,omitempty"`
	Status       SchoolStatus `json:"status"`
	TrialEndsAt  *time.Time   `json:"trial_ends_at,omitempty"`
	DatabaseName string       `json:"database_name,omitempty"`
	PlanID       *int64       `json:"plan_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SchoolOverview is the joined row consumed by dashboards: the school with its
// plan and latest subscription, plus admin and invoice aggregates.
type SchoolOverview struct {
	ID                 int64        `json:"id"`
	Name               string       `json:"name"`
	Slug               string       `json:"slug"`
	Status             SchoolStatus `json:"status"`
	PlanName           string       `json:"plan_name,omitempty"`
	PriceMonthly       int64        `json:"price_monthly,omitempty"`
	SubscriptionStatus string       `json:"subscription_status,omitempty"`
	CurrentPeriodEnd   *time.Time   `json:"current_period_end,omitempty"`
	TrialEndsAt        *time.Time   `json:"trial_ends_at,omitempty"`
	AdminCount         int          `json:"admin_count"`
	PaidInvoiceCount   int          `json:"paid_invoice_count"`
	TotalPaidAmount    int64        `json:"total_paid_amount"`
	CreatedAt          time.Time    `json:"created_at"`

	// Renewal is derived, never stored.
	Renewal *RenewalStatus `json:"renewal,omitempty"`
}

// SchoolFilter narrows a registry listing.
type SchoolFilter struct {
	Status             SchoolStatus
	SubscriptionStatus SubscriptionStatus
	PlanID             int64
	Search             string // free-text over name and contact fields
}
