package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/campuscore/internal/adapter/metrics"
	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/identity"
)

// Sweeper transitions tenants whose trial clock ran out without a paid
// conversion. The transition itself is one conditional bulk update in the
// registry, so concurrent sweeps and repeated runs are harmless: an already
// suspended school simply no longer matches the predicate.
type Sweeper struct {
	schools domain.SchoolRepository
	events  domain.EventPublisher
	logger  *slog.Logger
	metrics *metrics.RegistryMetrics
}

// NewSweeper creates a lifecycle sweeper.
func NewSweeper(schools domain.SchoolRepository, events domain.EventPublisher, logger *slog.Logger, m *metrics.RegistryMetrics) *Sweeper {
	return &Sweeper{
		schools: schools,
		events:  events,
		logger:  logger,
		metrics: m,
	}
}

// Sweep suspends every expired, unconverted trial as of now and returns how
// many schools it transitioned.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.schools.SweepExpiredTrials(ctx, now)
	if err != nil {
		s.logger.Error("lifecycle sweep failed", "error", err)
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.SweepRunsTotal.Inc()
		s.metrics.SweepSuspended.Add(float64(len(ids)))
	}

	for _, id := range ids {
		event := domain.LifecycleEvent{
			ID:         identity.NewUUID(),
			Type:       domain.EventSuspended,
			SchoolID:   id,
			Status:     domain.StatusSuspended,
			ActorID:    domain.System.ID.String(),
			OccurredAt: now.UTC(),
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish suspension event", "school_id", id, "error", err)
		}
	}

	if len(ids) > 0 {
		s.logger.Info("suspended expired trials", "count", len(ids))
	}

	return len(ids), nil
}

// Run executes Sweep on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("lifecycle sweeper started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("lifecycle sweeper stopped")
			return
		case now := <-ticker.C:
			if _, err := s.Sweep(ctx, now); err != nil {
				// Already logged; the next tick retries.
				continue
			}
		}
	}
}
