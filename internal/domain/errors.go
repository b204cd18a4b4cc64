package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrPlanInactive is returned when attaching a subscription to a plan that
	// has been delisted.
	ErrPlanInactive = errors.New("plan is not active")
)

// ValidationError reports every missing or malformed input field, not just the
// first. The caller recovers by resubmitting.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// ConflictError is a named uniqueness-constraint violation surfaced by the
// storage layer. Recoverable via disambiguation.
type ConflictError struct {
	Constraint string
	Value      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %q already exists", e.Constraint, e.Value)
}

// ProvisioningInfraError is an infrastructure-level failure (database creation,
// connectivity) that is retryable with backoff.
type ProvisioningInfraError struct {
	Op  string
	Err error
}

func (e *ProvisioningInfraError) Error() string {
	return fmt.Sprintf("provisioning infrastructure failure during %s: %v", e.Op, e.Err)
}

func (e *ProvisioningInfraError) Unwrap() error { return e.Err }

// SchemaError is fatal: the tenant database exists but its baseline schema
// could not be applied. Requires operator intervention.
type SchemaError struct {
	Database string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema application failed for %s: %v", e.Database, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// AdminSeedError is recoverable: the tenant database exists but has no admin
// yet, so the tenant must not be activated until a retry succeeds.
type AdminSeedError struct {
	Database string
	Err      error
}

func (e *AdminSeedError) Error() string {
	return fmt.Sprintf("admin seed failed for %s: %v", e.Database, e.Err)
}

func (e *AdminSeedError) Unwrap() error { return e.Err }

// SideEffectError is a non-fatal sub-step failure (logo storage, admin-record
// mirroring, subscription creation). Logged and surfaced for operators,
// provisioning still reports success.
type SideEffectError struct {
	Step string
	Err  error
}

func (e *SideEffectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *SideEffectError) Unwrap() error { return e.Err }
