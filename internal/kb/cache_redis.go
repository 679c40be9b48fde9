package kb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safakhou/helpbot/config"
	"github.com/safakhou/helpbot/internal/helpers"
)

const redisKeyPrefix = "helpbot:kb:article:"

// RedisCache stores article content in Redis, letting multiple bot
// replicas share one cache. TTL 0 stores without expiry; capacity is
// whatever the Redis instance's own eviction policy allows.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, url string) (ArticleContent, bool, error) {
	raw, err := c.client.Get(ctx, redisKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ArticleContent{}, false, nil
	}
	if err != nil {
		return ArticleContent{}, false, fmt.Errorf("redis get: %w", err)
	}
	var content ArticleContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return ArticleContent{}, false, fmt.Errorf("decoding cached article: %w", err)
	}
	return content, true, nil
}

func (c *RedisCache) Put(ctx context.Context, url string, content ArticleContent) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encoding article: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(url), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func redisKey(url string) string {
	if fp, err := helpers.URLFingerprint(url); err == nil {
		return redisKeyPrefix + fp
	}
	return redisKeyPrefix + url
}

// RedisConn opens and pings a Redis connection from config.
func RedisConn(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		DialTimeout: cfg.Timeout,
		Password:    cfg.Password,
		DB:          cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis at %s:%s: %w", cfg.Host, cfg.Port, err)
	}
	return client, nil
}
