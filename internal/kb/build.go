package kb

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/safakhou/helpbot/config"
	"github.com/safakhou/helpbot/internal/telemetry"
)

// BuildSearcher assembles the parser, crawler, cache and searcher from
// config. The returned redis client is non-nil only for the redis cache
// backend; the caller may reuse it (the warm scheduler does, for its
// cross-replica lock).
func BuildSearcher(ctx context.Context, cfg *config.Config, logger *log.Logger, metrics *telemetry.Metrics) (*Searcher, *redis.Client, error) {
	crawler, err := NewCrawler(cfg.KB, NewHTMLParser(cfg.KB.PathSegment), logger)
	if err != nil {
		return nil, nil, err
	}

	var cache ContentCache
	var client *redis.Client
	switch cfg.Cache.Backend {
	case "redis":
		client, err = RedisConn(ctx, cfg.Storage.Redis)
		if err != nil {
			return nil, nil, err
		}
		cache = NewRedisCache(client, cfg.Cache.TTL)
	default:
		cache = NewMemoryCache(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	}

	return NewSearcher(crawler, cache, cfg.KB, logger, metrics), client, nil
}
