package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/outboundiq/personalize-backend/internal/clients/redis"
	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/repos"
	"github.com/outboundiq/personalize-backend/internal/types"
)

// CacheService fronts the durable website_crawls table with an optional
// Redis fast path. Storage errors are logged and reported as cache misses so
// a flaky store degrades to extra crawls, never to a failed export.
type CacheService interface {
	CheckCache(ctx context.Context, url string) (*CachedCrawl, bool)
	SaveToCache(ctx context.Context, url string, crawlData []string, wordCount int) error
}

// CachedCrawl is the subset of a crawl record the pipeline needs to skip the
// provider call.
type CachedCrawl struct {
	CrawlData []string
	WordCount int
}

type cacheService struct {
	log   *logger.Logger
	crawl repos.WebsiteCrawlRepo
	fast  redis.ContentCache // nil when Redis is not configured
}

func NewCacheService(crawlRepo repos.WebsiteCrawlRepo, fast redis.ContentCache, baseLog *logger.Logger) CacheService {
	return &cacheService{
		log:   baseLog.With("service", "CacheService"),
		crawl: crawlRepo,
		fast:  fast,
	}
}

func (s *cacheService) CheckCache(ctx context.Context, url string) (*CachedCrawl, bool) {
	if s.fast != nil {
		if hit, err := s.fast.Get(ctx, url); err != nil {
			s.log.Warn("Redis cache lookup failed, falling back to storage", "url", url, "error", err)
		} else if hit != nil {
			var pages []string
			if err := json.Unmarshal(hit.CrawlData, &pages); err == nil && len(pages) > 0 {
				return &CachedCrawl{CrawlData: pages, WordCount: hit.WordCount}, true
			}
		}
	}

	row, err := s.crawl.GetByURL(ctx, nil, url)
	if err != nil {
		s.log.Error("Error checking cache", "url", url, "error", err)
		return nil, false
	}
	if row == nil || len(row.CrawlData) == 0 {
		return nil, false
	}
	var pages []string
	if err := json.Unmarshal(row.CrawlData, &pages); err != nil || len(pages) == 0 {
		return nil, false
	}
	return &CachedCrawl{CrawlData: pages, WordCount: row.WordCount}, true
}

func (s *cacheService) SaveToCache(ctx context.Context, url string, crawlData []string, wordCount int) error {
	raw, err := json.Marshal(crawlData)
	if err != nil {
		return err
	}

	// Merge onto the existing row; summary and favicon written by other
	// writers must survive a re-crawl.
	existing, err := s.crawl.GetByURL(ctx, nil, url)
	if err != nil {
		s.log.Error("Error reading existing crawl record", "url", url, "error", err)
	}
	if existing != nil {
		err = s.crawl.UpdateFields(ctx, nil, url, map[string]interface{}{
			"crawl_data": datatypes.JSON(raw),
			"word_count": wordCount,
			"is_loading": false,
		})
	} else {
		err = s.crawl.Upsert(ctx, nil, &types.WebsiteCrawl{
			URL:       url,
			CrawlData: datatypes.JSON(raw),
			WordCount: wordCount,
			IsLoading: false,
			CreatedAt: time.Now(),
		})
	}
	if err != nil {
		return err
	}

	if s.fast != nil {
		if err := s.fast.Set(ctx, url, &redis.CachedContent{CrawlData: raw, WordCount: wordCount}); err != nil {
			s.log.Warn("Redis cache write failed", "url", url, "error", err)
		}
	}
	return nil
}

// CalculateWordCount serializes the content to text and counts
// whitespace-delimited tokens. Deterministic for a given content value.
func CalculateWordCount(crawlData []string) int {
	raw, err := json.Marshal(crawlData)
	if err != nil {
		return 0
	}
	return len(strings.Fields(string(raw)))
}
