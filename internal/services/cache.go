package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix    = "cache:"
	// DepartmentListKey holds the cached department listing
	DepartmentListKey = "departments:list"
	DefaultCacheTTL   = 10 * time.Minute
)

// JSONCache stores JSON documents by key. Get reports a miss with found == false.
type JSONCache interface {
	Get(ctx context.Context, key string, dest any) (found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKeyPrefix+key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, CacheKeyPrefix+key).Err()
}

// CachedDepartments serves the department listing from cache and drops the
// cached copy on every write. Cache failures fall through to the store.
type CachedDepartments struct {
	store.DepartmentStore
	cache JSONCache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedDepartments(next store.DepartmentStore, cache JSONCache, ttl time.Duration, log *zap.Logger) *CachedDepartments {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedDepartments{DepartmentStore: next, cache: cache, ttl: ttl, log: log}
}

func (c *CachedDepartments) List(ctx context.Context) ([]models.Department, error) {
	var cached []models.Department
	found, err := c.cache.Get(ctx, DepartmentListKey, &cached)
	if err != nil {
		c.log.Warn("department cache read failed", zap.Error(err))
	}
	if found && err == nil {
		return cached, nil
	}

	depts, err := c.DepartmentStore.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, DepartmentListKey, depts, c.ttl); err != nil {
		c.log.Warn("department cache write failed", zap.Error(err))
	}
	return depts, nil
}

func (c *CachedDepartments) invalidate(ctx context.Context) {
	if err := c.cache.Delete(ctx, DepartmentListKey); err != nil {
		c.log.Warn("department cache invalidation failed", zap.Error(err))
	}
}

func (c *CachedDepartments) Create(ctx context.Context, d *models.Department) error {
	defer c.invalidate(ctx)
	return c.DepartmentStore.Create(ctx, d)
}

func (c *CachedDepartments) Update(ctx context.Context, d *models.Department) error {
	defer c.invalidate(ctx)
	return c.DepartmentStore.Update(ctx, d)
}

func (c *CachedDepartments) Delete(ctx context.Context, id string) error {
	defer c.invalidate(ctx)
	return c.DepartmentStore.Delete(ctx, id)
}

func (c *CachedDepartments) Upsert(ctx context.Context, d *models.Department) (bool, error) {
	defer c.invalidate(ctx)
	return c.DepartmentStore.Upsert(ctx, d)
}
