package domain

import "time"

// Plan is a subscription plan. Monetary amounts are in minor units (cents).
// A plan referenced by an active subscription is immutable apart from the
// IsActive relisting toggle; price changes apply to new subscriptions only.
type Plan struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	PriceMonthly int64     `json:"price_monthly"`
	PriceYearly  int64     `json:"price_yearly"`
	StudentLimit int       `json:"student_limit"`
	TeacherLimit int       `json:"teacher_limit"`
	StorageLimit int64     `json:"storage_limit"`
	Features     []string  `json:"features"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
