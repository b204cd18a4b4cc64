package domain

import "time"

// SchoolAdmin links an administrator user inside a tenant database back to the
// registry. Exactly one primary admin is created at provisioning time.
type SchoolAdmin struct {
	ID          int64     `json:"id"`
	SchoolID    int64     `json:"school_id"`
	UserID      int64     `json:"user_id"` // id inside the tenant's own database
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// AdminDraft is the validated input for seeding a tenant's primary admin.
type AdminDraft struct {
	Name     string
	Email    string
	Password string
	Phone    string
}
