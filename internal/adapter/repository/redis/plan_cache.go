package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/campuscore/internal/adapter/metrics"
	"github.com/user/campuscore/internal/domain"
)

// PlanCache is a read-through cache in front of a plan repository. Plans
// change rarely and are read on every subscription attach, so a short TTL cuts
// most registry round trips. Cache failures fall back to the source; they are
// never surfaced to callers.
type PlanCache struct {
	source  domain.PlanRepository
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.RegistryMetrics
}

// NewPlanCache creates a plan cache backed by Redis.
func NewPlanCache(source domain.PlanRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger, m *metrics.RegistryMetrics) *PlanCache {
	return &PlanCache{
		source:  source,
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

var _ domain.PlanRepository = (*PlanCache)(nil)

func planKey(id int64) string {
	return fmt.Sprintf("campuscore:plan:%d", id)
}

func (c *PlanCache) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	raw, err := c.client.Get(ctx, planKey(id)).Bytes()
	if err == nil {
		var plan domain.Plan
		if err := json.Unmarshal(raw, &plan); err == nil {
			if c.metrics != nil {
				c.metrics.PlanCacheHits.Inc()
			}
			return &plan, nil
		}
		// Corrupt entry, fall through to the source.
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("plan cache read failed, falling back to registry", "plan_id", id, "error", err)
	}

	if c.metrics != nil {
		c.metrics.PlanCacheMisses.Inc()
	}

	plan, err := c.source.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(plan); err == nil {
		if err := c.client.Set(ctx, planKey(id), raw, c.ttl).Err(); err != nil {
			c.logger.Warn("plan cache write failed", "plan_id", id, "error", err)
		}
	}

	return plan, nil
}

// List always reads from the source; listings are admin-facing and rare.
func (c *PlanCache) List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error) {
	return c.source.List(ctx, activeOnly)
}
