package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/identity"
)

// adminTransitions are the lifecycle states an administrator may set directly.
// pending and trial are owned by the provisioning workflow, provision_failed
// by the orchestrator's compensation path.
var adminTransitions = map[domain.SchoolStatus]bool{
	domain.StatusActive:    true,
	domain.StatusSuspended: true,
	domain.StatusCancelled: true,
}

// SchoolService exposes registry reads and administrative mutations.
type SchoolService struct {
	schools domain.SchoolRepository
	subs    domain.SubscriptionRepository
	events  domain.EventPublisher
	logger  *slog.Logger
	now     func() time.Time
}

// NewSchoolService creates a registry service.
func NewSchoolService(schools domain.SchoolRepository, subs domain.SubscriptionRepository, events domain.EventPublisher, logger *slog.Logger) *SchoolService {
	return &SchoolService{
		schools: schools,
		subs:    subs,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *SchoolService) Get(ctx context.Context, id int64) (*domain.School, error) {
	return s.schools.GetByID(ctx, id)
}

// List returns overview rows with the derived renewal classification attached
// to each.
func (s *SchoolService) List(ctx context.Context, filter domain.SchoolFilter, page domain.Page) ([]domain.SchoolOverview, int, error) {
	overviews, total, err := s.schools.List(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	for i := range overviews {
		o := &overviews[i]
		var sub *domain.Subscription
		if o.SubscriptionStatus != "" {
			sub = &domain.Subscription{
				Status:           domain.SubscriptionStatus(o.SubscriptionStatus),
				CurrentPeriodEnd: o.CurrentPeriodEnd,
			}
		}
		renewal := DeriveRenewalStatus(o.Status, o.TrialEndsAt, sub, now)
		o.Renewal = &renewal
	}

	return overviews, total, nil
}

// UpdateStatus applies an administrative lifecycle transition.
func (s *SchoolService) UpdateStatus(ctx context.Context, actor domain.ActorContext, id int64, status domain.SchoolStatus) error {
	if !adminTransitions[status] {
		return &domain.ValidationError{Fields: map[string]string{
			"status": "must be active, suspended, or cancelled",
		}}
	}

	school, err := s.schools.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.schools.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	event := domain.LifecycleEvent{
		ID:         identity.NewUUID(),
		Type:       domain.EventStatusChanged,
		SchoolID:   id,
		SchoolUUID: school.UUID,
		Status:     status,
		ActorID:    actor.ID.String(),
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish status change event", "school_id", id, "error", err)
	}

	s.logger.Info("school status updated",
		"school_id", id,
		"from", school.Status,
		"to", status,
		"actor_id", actor.ID,
	)

	return nil
}
