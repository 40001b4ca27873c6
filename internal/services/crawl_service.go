package services

import (
	"context"

	"github.com/outboundiq/personalize-backend/internal/clients/firecrawl"
	"github.com/outboundiq/personalize-backend/internal/logger"
)

// CrawlResult is the outcome of one website fetch, cached or fresh.
type CrawlResult struct {
	URL       string
	CrawlData []string
	WordCount int
	Cached    bool
}

// CrawlService fetches and cleans page content for a URL. Cache hits bypass
// the rate limiter entirely; only fresh provider calls consume a slot.
type CrawlService interface {
	CrawlWebsite(ctx context.Context, url string) (*CrawlResult, error)
}

type crawlService struct {
	log     *logger.Logger
	client  firecrawl.Client
	cache   CacheService
	limiter *RateLimiter
}

func NewCrawlService(client firecrawl.Client, cache CacheService, limiter *RateLimiter, baseLog *logger.Logger) CrawlService {
	return &crawlService{
		log:     baseLog.With("service", "CrawlService"),
		client:  client,
		cache:   cache,
		limiter: limiter,
	}
}

func (s *crawlService) CrawlWebsite(ctx context.Context, url string) (*CrawlResult, error) {
	normalized := NormalizeURL(url)
	if normalized == "" {
		return nil, &CrawlError{URL: url, Message: "invalid url"}
	}

	if cached, ok := s.cache.CheckCache(ctx, normalized); ok {
		s.log.Debug("Cache hit", "url", normalized)
		return &CrawlResult{
			URL:       normalized,
			CrawlData: cached.CrawlData,
			WordCount: cached.WordCount,
			Cached:    true,
		}, nil
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	s.log.Info("Making crawl request", "url", normalized)
	resp, err := s.client.CrawlURL(ctx, normalized, firecrawl.DefaultCrawlOptions())
	if err != nil {
		return nil, &CrawlError{URL: normalized, Message: err.Error()}
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "failed to crawl website"
		}
		return nil, &CrawlError{URL: normalized, Message: msg}
	}

	pages := make([]string, 0, len(resp.Data))
	for _, page := range resp.Data {
		raw := page.Markdown
		if raw == "" {
			raw = page.HTML
		}
		if raw == "" {
			continue
		}
		pages = append(pages, raw)
	}
	cleaned := CleanPages(pages)
	wordCount := CalculateWordCount(cleaned)

	if err := s.cache.SaveToCache(ctx, normalized, cleaned, wordCount); err != nil {
		s.log.Error("Error saving crawl to cache", "url", normalized, "error", err)
	}

	return &CrawlResult{
		URL:       normalized,
		CrawlData: cleaned,
		WordCount: wordCount,
		Cached:    false,
	}, nil
}
