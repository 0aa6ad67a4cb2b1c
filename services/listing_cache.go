package services

import (
	"context"
	"encoding/json"

	"melodia/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// The Redis key for the cached public user listing
const userListingCacheKey = "cache:all_users"

// ListingCache is a cache-aside layer over the public user listing. Redis
// problems degrade to the database path and are only logged.
type ListingCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewListingCache returns nil when no Redis client is configured, which
// disables caching entirely.
func NewListingCache(rdb *redis.Client, logger *zap.Logger) *ListingCache {
	if rdb == nil {
		return nil
	}
	return &ListingCache{rdb: rdb, logger: logger}
}

func (c *ListingCache) GetUsers(ctx context.Context) ([]models.User, bool) {
	data, err := c.rdb.Get(ctx, userListingCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("listing cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		c.logger.Warn("listing cache entry corrupt, dropping it", zap.Error(err))
		c.Invalidate(ctx)
		return nil, false
	}
	return users, true
}

func (c *ListingCache) SetUsers(ctx context.Context, users []models.User) {
	data, err := json.Marshal(users)
	if err != nil {
		c.logger.Warn("failed to marshal user listing for cache", zap.Error(err))
		return
	}
	// No TTL: every user-mutating write invalidates the entry.
	if err := c.rdb.Set(ctx, userListingCacheKey, data, 0).Err(); err != nil {
		c.logger.Warn("listing cache write failed", zap.Error(err))
	}
}

func (c *ListingCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, userListingCacheKey).Err(); err != nil {
		c.logger.Warn("listing cache invalidation failed", zap.Error(err))
	}
}
