package app

import (
	"fmt"

	"github.com/outboundiq/personalize-backend/internal/clients/firecrawl"
	"github.com/outboundiq/personalize-backend/internal/clients/openai"
	"github.com/outboundiq/personalize-backend/internal/clients/redis"
	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/services"
)

type Services struct {
	RateLimiter          *services.RateLimiter
	Cache                services.CacheService
	Crawl                services.CrawlService
	AI                   services.AIService
	PersonalizationStore services.PersonalizationStore
	Credits              services.CreditService
	Websites             services.WebsiteService
	Exports              services.ExportService
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	firecrawlClient, err := firecrawl.NewClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init firecrawl client: %w", err)
	}
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init openai client: %w", err)
	}

	// Redis is an optional fast path; without REDIS_ADDR the cache runs on
	// storage alone.
	var fastCache redis.ContentCache
	if fc, err := redis.NewContentCache(log); err != nil {
		log.Warn("Redis content cache unavailable, using storage only", "error", err)
	} else {
		fastCache = fc
	}

	limiter := services.NewRateLimiter(cfg.RateLimitMaxRequests, cfg.RateLimitWindow, log)
	cache := services.NewCacheService(reposet.WebsiteCrawl, fastCache, log)
	crawl := services.NewCrawlService(firecrawlClient, cache, limiter, log)
	ai := services.NewAIService(openaiClient, limiter, log)
	store := services.NewPersonalizationStore(reposet.PersonalizationCache, log)
	credits := services.NewCreditService(reposet.User, reposet.CreditTransaction, log)
	websites := services.NewWebsiteService(crawl, ai, cache, reposet.WebsiteCrawl, store, limiter, log)
	exports := services.NewExportService(reposet.FileUpload, reposet.ExportJob, reposet.WebsiteCrawl, websites, store, credits, log)

	return Services{
		RateLimiter:          limiter,
		Cache:                cache,
		Crawl:                crawl,
		AI:                   ai,
		PersonalizationStore: store,
		Credits:              credits,
		Websites:             websites,
		Exports:              exports,
	}, nil
}
