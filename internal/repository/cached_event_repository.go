package repository

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	"github.com/prohmpiriya/eventic-admission/pkg/redis"
)

const (
	eventDetailKeyPrefix = "event:admission:"

	defaultEventCacheTTL = time.Minute
)

// CachedEventRepository caches event policy snapshots in Redis. Delegation
// lookups always go to the wrapped repository.
type CachedEventRepository struct {
	repo  EventRepository
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedEventRepository creates a new CachedEventRepository
func NewCachedEventRepository(repo EventRepository, cache *redis.Client, ttl time.Duration) *CachedEventRepository {
	if ttl <= 0 {
		ttl = defaultEventCacheTTL
	}
	return &CachedEventRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// GetByID retrieves an event by ID with caching
func (r *CachedEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	cacheKey := eventDetailKeyPrefix + id
	cached, err := r.cache.Get(ctx, cacheKey).Result()
	if err == nil && cached != "" {
		var event domain.Event
		if err := json.Unmarshal([]byte(cached), &event); err == nil {
			return &event, nil
		}
	}

	event, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(event); err == nil {
		if err := r.cache.Set(ctx, cacheKey, data, r.ttl).Err(); err != nil {
			logger.Get().Warn("failed to cache event", zap.String("event_id", id), zap.Error(err))
		}
	}
	return event, nil
}

// Invalidate drops the cached snapshot of an event
func (r *CachedEventRepository) Invalidate(ctx context.Context, id string) error {
	return r.cache.Del(ctx, eventDetailKeyPrefix+id).Err()
}

func (r *CachedEventRepository) IsDelegate(ctx context.Context, eventID, userID string) (bool, error) {
	return r.repo.IsDelegate(ctx, eventID, userID)
}

func (r *CachedEventRepository) ListDelegates(ctx context.Context, eventID string) ([]*domain.Delegate, error) {
	return r.repo.ListDelegates(ctx, eventID)
}

func (r *CachedEventRepository) AddDelegate(ctx context.Context, d *domain.Delegate) error {
	return r.repo.AddDelegate(ctx, d)
}

func (r *CachedEventRepository) RemoveDelegate(ctx context.Context, eventID, userID string) error {
	return r.repo.RemoveDelegate(ctx, eventID, userID)
}

// Ensure CachedEventRepository implements EventRepository
var _ EventRepository = (*CachedEventRepository)(nil)
