package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"spark.backend/internal/domain/entities"
	"spark.backend/internal/infrastructure/metrics"
	"spark.backend/pkg/logger"
	"spark.backend/pkg/redis"
)

const (
	balanceKeyPrefix    = "wallet:balances:"
	generationKeyPrefix = "wallet:balances:gen:"
	cacheName           = "balances"

	// generationTTL must outlive any single balance read
	generationTTL = 24 * time.Hour
)

// RedisBalanceCache caches per-user balances in Redis.
// Failures are logged and treated as misses; the database stays authoritative.
// Every invalidation bumps a per-user generation and Set only writes while the
// generation it was handed is still current, so a read that raced a mutation
// cannot repopulate the entry with pre-mutation balances.
type RedisBalanceCache struct {
	ttl     time.Duration
	metrics metrics.Collector
}

// NewRedisBalanceCache creates a balance cache backed by the shared Redis client
func NewRedisBalanceCache(ttl time.Duration, collector metrics.Collector) *RedisBalanceCache {
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &RedisBalanceCache{ttl: ttl, metrics: collector}
}

func balanceKey(userID uuid.UUID) string {
	return balanceKeyPrefix + userID.String()
}

func generationKey(userID uuid.UUID) string {
	return generationKeyPrefix + userID.String()
}

// Get returns cached balances and whether they were found.
// On a miss the returned generation must be passed to Set after reading the database;
// a negative generation means the cache is unavailable.
func (c *RedisBalanceCache) Get(ctx context.Context, userID uuid.UUID) ([]entities.WalletBalance, int64, bool) {
	if redis.GetClient() == nil || c.ttl <= 0 {
		return nil, -1, false
	}

	gen, err := redis.GetCounter(ctx, generationKey(userID))
	if err != nil {
		logger.Warn(ctx, "Balance cache read failed", zap.Error(err))
		c.metrics.RecordCacheMiss(cacheName)
		return nil, -1, false
	}

	raw, err := redis.Get(ctx, balanceKey(userID))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx, "Balance cache read failed", zap.Error(err))
		}
		c.metrics.RecordCacheMiss(cacheName)
		return nil, gen, false
	}

	var balances []entities.WalletBalance
	if err := json.Unmarshal([]byte(raw), &balances); err != nil {
		logger.Warn(ctx, "Balance cache entry corrupt", zap.Error(err))
		c.metrics.RecordCacheMiss(cacheName)
		return nil, gen, false
	}
	c.metrics.RecordCacheHit(cacheName)
	return balances, gen, true
}

// Set stores balances for the configured TTL unless the user was invalidated after generation was read
func (c *RedisBalanceCache) Set(ctx context.Context, userID uuid.UUID, generation int64, balances []entities.WalletBalance) {
	if redis.GetClient() == nil || c.ttl <= 0 || generation < 0 {
		return
	}
	payload, err := json.Marshal(balances)
	if err != nil {
		return
	}
	stored, err := redis.SetIfCounter(ctx, generationKey(userID), generation, balanceKey(userID), payload, c.ttl)
	if err != nil {
		logger.Warn(ctx, "Balance cache write failed", zap.Error(err))
		return
	}
	if !stored {
		logger.Debug(ctx, "Balance cache write skipped after invalidation", zap.Stringer("user_id", userID))
	}
}

// Invalidate drops cached balances of the given users and bumps their generations
func (c *RedisBalanceCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if redis.GetClient() == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	gens := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, balanceKey(id))
		gens = append(gens, generationKey(id))
	}
	if err := redis.BumpAndDel(ctx, gens, generationTTL, keys...); err != nil {
		logger.Warn(ctx, "Balance cache invalidation failed", zap.Error(err))
	}
}
