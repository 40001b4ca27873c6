package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/outboundiq/personalize-backend/internal/logger"
)

// ContentCache is the optional Redis fast path in front of the durable
// website_crawls table. Entries are best-effort; a miss here falls through
// to storage.
type ContentCache interface {
	Get(ctx context.Context, url string) (*CachedContent, error)
	Set(ctx context.Context, url string, content *CachedContent) error
	Close() error
}

type CachedContent struct {
	CrawlData json.RawMessage `json:"crawl_data"`
	WordCount int             `json:"word_count"`
}

type contentCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

const keyPrefix = "website_cache:"

func NewContentCache(log *logger.Logger) (ContentCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &contentCache{
		log: log.With("client", "RedisContentCache"),
		rdb: rdb,
		ttl: 24 * time.Hour,
	}, nil
}

func (c *contentCache) Get(ctx context.Context, url string) (*CachedContent, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+url).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out CachedContent
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *contentCache) Set(ctx context.Context, url string, content *CachedContent) error {
	if content == nil {
		return nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+url, raw, c.ttl).Err()
}

func (c *contentCache) Close() error {
	return c.rdb.Close()
}
