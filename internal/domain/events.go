package domain

import (
	"context"
	"time"
)

// LifecycleEventType names a tenant lifecycle transition.
type LifecycleEventType string

const (
	EventProvisioned     LifecycleEventType = "school.provisioned"
	EventProvisionFailed LifecycleEventType = "school.provision_failed"
	EventSuspended       LifecycleEventType = "school.suspended"
	EventStatusChanged   LifecycleEventType = "school.status_changed"
)

// LifecycleEvent is published to the event stream on every tenant state
// transition so downstream collaborators can react without polling the
// registry.
type LifecycleEvent struct {
	ID         string             `json:"event_id"`
	Type       LifecycleEventType `json:"type"`
	SchoolID   int64              `json:"school_id"`
	SchoolUUID string             `json:"school_uuid,omitempty"`
	Status     SchoolStatus       `json:"status"`
	ActorID    string             `json:"actor_id,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// EventPublisher publishes lifecycle events. Failures are never fatal to the
// operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
}
