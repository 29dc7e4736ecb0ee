package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flameapp/flame-backend/internal/config"
)

// RedisCache wraps the shared Redis client plus the key conventions used by
// the chat and presence layers.
type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

// KeyForUnreadTotal is the cached sum of unread counters across all of a
// user's conversations, used for the badge count.
func (c *RedisCache) KeyForUnreadTotal(userID uint64) string {
	return fmt.Sprintf("unread:total:%d", userID)
}

// KeyForPresence marks a user as connected; carries a TTL so crashed server
// processes don't leave users online forever.
func (c *RedisCache) KeyForPresence(userID uint64) string {
	return fmt.Sprintf("presence:%d", userID)
}

// SetOnline records presence with a TTL; refreshed while the socket lives.
func (c *RedisCache) SetOnline(ctx context.Context, userID uint64, ttl time.Duration) error {
	return c.Client.Set(ctx, c.KeyForPresence(userID), "1", ttl).Err()
}

// SetOffline drops the presence key.
func (c *RedisCache) SetOffline(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, c.KeyForPresence(userID)).Err()
}

// IsOnline checks the presence key.
func (c *RedisCache) IsOnline(ctx context.Context, userID uint64) (bool, error) {
	_, err := c.Client.Get(ctx, c.KeyForPresence(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUnreadTotal reads the cached unread badge count; redis.Nil is a miss.
func (c *RedisCache) GetUnreadTotal(ctx context.Context, userID uint64) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForUnreadTotal(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SetUnreadTotal refreshes the cached unread badge count with a 1h TTL.
func (c *RedisCache) SetUnreadTotal(ctx context.Context, userID uint64, total int64) error {
	return c.Client.Set(ctx, c.KeyForUnreadTotal(userID), total, time.Hour).Err()
}

// InvalidateUnreadTotal drops the cached badge count after any unread change.
func (c *RedisCache) InvalidateUnreadTotal(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, c.KeyForUnreadTotal(userID)).Err()
}
