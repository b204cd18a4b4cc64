package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/user/campuscore/internal/adapter/events/spool"
	"github.com/user/campuscore/internal/domain"
)

// SpoolingPublisher wraps a broker publisher with a local journal. When the
// broker is unreachable the event lands in the spool instead of being lost,
// and the drain loop re-delivers it once the broker recovers. Per-tenant
// ordering is only preserved within a delivery path, which lifecycle consumers
// tolerate because every event carries its occurrence time.
type SpoolingPublisher struct {
	primary domain.EventPublisher
	spool   *spool.Spool
	logger  *slog.Logger

	// mu serializes spool appends against drains so an event spooled while a
	// drain is finishing cannot be truncated away undelivered.
	mu sync.Mutex
}

// NewSpoolingPublisher creates a publisher that falls back to the spool.
func NewSpoolingPublisher(primary domain.EventPublisher, s *spool.Spool, logger *slog.Logger) *SpoolingPublisher {
	return &SpoolingPublisher{primary: primary, spool: s, logger: logger}
}

var _ domain.EventPublisher = (*SpoolingPublisher)(nil)

// Publish attempts broker delivery and spools on failure. The error is only
// returned when the event could be neither delivered nor spooled.
func (p *SpoolingPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	err := p.primary.Publish(ctx, event)
	if err == nil {
		return nil
	}

	p.logger.Warn("broker publish failed, spooling event",
		"type", event.Type, "school_id", event.SchoolID, "error", err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if spoolErr := p.spool.Append(ctx, event); spoolErr != nil {
		p.logger.Error("failed to spool lifecycle event",
			"type", event.Type, "school_id", event.SchoolID, "error", spoolErr)
		return err
	}
	return nil
}

// Drain replays every spooled event through the broker and truncates the spool
// when all of them went out.
func (p *SpoolingPublisher) Drain(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	empty, err := p.spool.Empty()
	if err != nil {
		return err
	}
	if empty {
		return nil
	}

	delivered := 0
	err = p.spool.Replay(ctx, func(event domain.LifecycleEvent) error {
		if err := p.primary.Publish(ctx, event); err != nil {
			return err
		}
		delivered++
		return nil
	})
	if err != nil {
		p.logger.Warn("spool drain stopped, broker still unavailable",
			"delivered", delivered, "error", err)
		return err
	}

	p.logger.Info("spool drained", "delivered", delivered)
	return p.spool.Truncate(ctx)
}

// StartDrainLoop retries Drain on an interval until the context is cancelled.
func (p *SpoolingPublisher) StartDrainLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Drain(ctx); err != nil {
				continue
			}
		}
	}
}
