package domain

import "time"

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceFailed  InvoiceStatus = "failed"
)

// Invoice is an append-only billing record. Once paid it is never mutated.
// Amounts are recorded, not charged.
type Invoice struct {
	ID        int64         `json:"id"`
	SchoolID  int64         `json:"school_id"`
	Amount    int64         `json:"amount"`
	Status    InvoiceStatus `json:"status"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
