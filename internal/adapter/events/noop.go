package events

import (
	"context"

	"github.com/user/campuscore/internal/domain"
)

// NoopPublisher discards lifecycle events. Used when no broker is configured.
type NoopPublisher struct{}

var _ domain.EventPublisher = (*NoopPublisher)(nil)

func (NoopPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	return nil
}
