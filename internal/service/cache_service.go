package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fleet-service-api/internal/models"
	appErrors "github.com/noah-isme/fleet-service-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ScheduleCache caches technician schedule reads. Entries are keyed by
// technician and range and are dropped whenever that technician's blocks change.
type ScheduleCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewScheduleCache constructs a cache. A nil repo disables caching.
func NewScheduleCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *ScheduleCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger}
}

// Enabled indicates whether caching is active.
func (c *ScheduleCache) Enabled() bool {
	return c != nil && c.repo != nil
}

func scheduleKey(technicianID string, from, to time.Time) string {
	return fmt.Sprintf("schedule:%s:%d:%d", technicianID, unixOrZero(from), unixOrZero(to))
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// Get returns the cached blocks and whether the lookup hit.
func (c *ScheduleCache) Get(ctx context.Context, technicianID string, from, to time.Time) ([]models.ScheduleBlock, bool) {
	if !c.Enabled() {
		return nil, false
	}
	var blocks []models.ScheduleBlock
	err := c.repo.Get(ctx, scheduleKey(technicianID, from, to), &blocks)
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("schedule cache get failed", zap.String("technician_id", technicianID), zap.Error(err))
		}
		c.metrics.RecordCacheLookup(false)
		return nil, false
	}
	c.metrics.RecordCacheLookup(true)
	return blocks, true
}

// Put stores blocks for the technician and range. Failures are logged only.
func (c *ScheduleCache) Put(ctx context.Context, technicianID string, from, to time.Time, blocks []models.ScheduleBlock) {
	if !c.Enabled() {
		return
	}
	if err := c.repo.Set(ctx, scheduleKey(technicianID, from, to), blocks, c.ttl); err != nil {
		c.logger.Warn("schedule cache set failed", zap.String("technician_id", technicianID), zap.Error(err))
	}
}

// Invalidate drops every cached range of the given technicians.
func (c *ScheduleCache) Invalidate(ctx context.Context, technicianIDs ...string) {
	if !c.Enabled() {
		return
	}
	seen := make(map[string]struct{}, len(technicianIDs))
	for _, id := range technicianIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := c.repo.DeleteByPattern(ctx, fmt.Sprintf("schedule:%s:*", id)); err != nil {
			c.logger.Warn("schedule cache invalidate failed", zap.String("technician_id", id), zap.Error(err))
		}
	}
}
