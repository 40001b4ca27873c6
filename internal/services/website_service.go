package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/repos"
)

// SiteResult is the per-URL unit of pipeline state. A site moves through
// pending -> cached-served | crawling -> summarizing -> stored, or lands in
// failed with Err set; a failed site never aborts the batch it rode in.
type SiteResult struct {
	URL       string
	CrawlData []string
	Summary   string
	Cached    bool
	Err       error
}

// Valid reports whether the site produced content a personalization can use.
func (r *SiteResult) Valid() bool {
	return r != nil && r.Err == nil && len(r.CrawlData) > 0 && r.URL != ""
}

// WebsiteService runs the crawl+summarize and personalization passes over a
// URL set, in fixed-size batches bounded by the shared rate limiter budget.
type WebsiteService interface {
	ProcessWebsites(ctx context.Context, urls []string, limit int, updateSummary bool, progress func(done int)) []*SiteResult
	ProcessPersonalizations(ctx context.Context, userID uuid.UUID, sites []*SiteResult, templates []string, progress func(done int))
	GeneratePersonalization(ctx context.Context, userID uuid.UUID, sites []*SiteResult, templateName string, customPrompt string) map[string]error
	LoadSites(ctx context.Context, urls []string) []*SiteResult
}

type websiteService struct {
	log     *logger.Logger
	crawler CrawlService
	ai      AIService
	cache   CacheService
	crawls  repos.WebsiteCrawlRepo
	store   PersonalizationStore
	limiter *RateLimiter
}

func NewWebsiteService(
	crawler CrawlService,
	ai AIService,
	cache CacheService,
	crawlRepo repos.WebsiteCrawlRepo,
	store PersonalizationStore,
	limiter *RateLimiter,
	baseLog *logger.Logger,
) WebsiteService {
	return &websiteService{
		log:     baseLog.With("service", "WebsiteService"),
		crawler: crawler,
		ai:      ai,
		cache:   cache,
		crawls:  crawlRepo,
		store:   store,
		limiter: limiter,
	}
}

func faviconURL(url string) string {
	return fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=128", url)
}

// businessName is the bare host used for the {business_name} placeholder.
func businessName(url string) string {
	host := strings.TrimPrefix(NormalizeURL(url), "https://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	return host
}

// ProcessWebsites crawls and summarizes each URL. Within a batch all URLs run
// concurrently; batch size equals the limiter budget, so a full batch of
// fresh crawls drains one window and the next batch blocks on the limiter
// until the window resets. Cache hits bypass the limiter entirely.
func (s *websiteService) ProcessWebsites(ctx context.Context, urls []string, limit int, updateSummary bool, progress func(done int)) []*SiteResult {
	if len(urls) == 0 {
		return nil
	}
	queue := urls
	if limit > 0 && limit < len(queue) {
		queue = queue[:limit]
	}

	batchSize := s.limiter.Budget()
	results := make([]*SiteResult, 0, len(queue))

	for i := 0; i < len(queue); i += batchSize {
		end := i + batchSize
		if end > len(queue) {
			end = len(queue)
		}
		batch := queue[i:end]
		batchResults := make([]*SiteResult, len(batch))

		var g errgroup.Group
		for bi, url := range batch {
			g.Go(func() error {
				batchResults[bi] = s.processOne(ctx, url, updateSummary)
				return nil
			})
		}
		_ = g.Wait()

		results = append(results, batchResults...)
		if progress != nil {
			progress(len(results))
		}
	}

	return results
}

// processOne resolves a single URL to summarized content. A provider
// rate-limit rejection with a parseable retry-after is honored once; any
// other failure is terminal for the URL.
func (s *websiteService) processOne(ctx context.Context, url string, updateSummary bool) *SiteResult {
	result := s.crawlAndSummarize(ctx, url, updateSummary)
	if result.Err == nil {
		return result
	}
	if wait, ok := RetryAfter(result.Err); ok {
		s.log.Warn("Provider rate limit hit, requeueing once", "url", url, "wait", wait.String())
		if err := sleepCtx(ctx, wait); err != nil {
			return result
		}
		return s.crawlAndSummarize(ctx, url, updateSummary)
	}
	return result
}

func (s *websiteService) crawlAndSummarize(ctx context.Context, url string, updateSummary bool) *SiteResult {
	normalized := NormalizeURL(url)

	// Serve straight from the durable record when content and summary are
	// both present; that path makes zero external calls.
	if row, err := s.crawls.GetByURL(ctx, nil, normalized); err == nil && row != nil && len(row.CrawlData) > 0 {
		cached, ok := s.cache.CheckCache(ctx, normalized)
		if ok {
			if row.IsLoading || row.Summary == "" || updateSummary {
				return s.summarizeAndStore(ctx, normalized, cached.CrawlData, true)
			}
			return &SiteResult{URL: normalized, CrawlData: cached.CrawlData, Summary: row.Summary, Cached: true}
		}
	}

	crawled, err := s.crawler.CrawlWebsite(ctx, url)
	if err != nil {
		s.log.Error("Error processing website", "url", url, "error", err)
		return &SiteResult{URL: normalized, Err: err}
	}
	return s.summarizeAndStore(ctx, crawled.URL, crawled.CrawlData, crawled.Cached)
}

func (s *websiteService) summarizeAndStore(ctx context.Context, url string, crawlData []string, cached bool) *SiteResult {
	summary, err := s.ai.AnalyzeWebsite(ctx, crawlData, "summary", "", businessName(url))
	if err != nil {
		s.log.Error("Error summarizing website", "url", url, "error", err)
		return &SiteResult{URL: url, CrawlData: crawlData, Cached: cached, Err: err}
	}

	if err := s.crawls.UpdateFields(ctx, nil, url, map[string]interface{}{
		"summary":    summary,
		"favicon":    faviconURL(url),
		"is_loading": false,
	}); err != nil {
		s.log.Error("Error storing summary", "url", url, "error", err)
	}

	return &SiteResult{URL: url, CrawlData: crawlData, Summary: summary, Cached: cached}
}

// ProcessPersonalizations generates every selected template for each valid
// site. Template generations for one URL run concurrently; their results are
// collected and merged in a single store write per URL, so the per-key merge
// serialization holds. URLs are batched like the crawl pass.
func (s *websiteService) ProcessPersonalizations(ctx context.Context, userID uuid.UUID, sites []*SiteResult, templates []string, progress func(done int)) {
	if len(templates) == 0 {
		return
	}
	valid := make([]*SiteResult, 0, len(sites))
	for _, site := range sites {
		if site.Valid() {
			valid = append(valid, site)
		}
	}

	batchSize := s.limiter.Budget()
	done := 0

	for i := 0; i < len(valid); i += batchSize {
		end := i + batchSize
		if end > len(valid) {
			end = len(valid)
		}
		batch := valid[i:end]

		var g errgroup.Group
		for _, site := range batch {
			g.Go(func() error {
				s.personalizeSite(ctx, userID, site, templates)
				return nil
			})
		}
		_ = g.Wait()

		done += len(batch)
		if progress != nil {
			progress(done)
		}
	}
}

func (s *websiteService) personalizeSite(ctx context.Context, userID uuid.UUID, site *SiteResult, templates []string) {
	type genOutcome struct {
		template string
		text     string
		err      error
	}
	outcomes := make([]genOutcome, len(templates))

	var g errgroup.Group
	for ti, template := range templates {
		g.Go(func() error {
			text, err := s.ai.AnalyzeWebsite(ctx, site.CrawlData, template, "", businessName(site.URL))
			outcomes[ti] = genOutcome{template: template, text: text, err: err}
			return nil
		})
	}
	_ = g.Wait()

	updates := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			s.log.Error("Error generating personalization", "url", site.URL, "template", o.template, "error", o.err)
			updates[o.template+"_error"] = o.err.Error()
			continue
		}
		updates[o.template] = o.text
	}

	if _, err := s.store.MergePersonalizations(ctx, userID, site.URL, updates); err != nil {
		s.log.Error("Error merging personalizations", "url", site.URL, "error", err)
	}
}

// LoadSites materializes SiteResults from existing crawl records, for
// callers that already crawled and only want generation.
func (s *websiteService) LoadSites(ctx context.Context, urls []string) []*SiteResult {
	out := make([]*SiteResult, 0, len(urls))
	for _, url := range urls {
		normalized := NormalizeURL(url)
		cached, ok := s.cache.CheckCache(ctx, normalized)
		if !ok {
			out = append(out, &SiteResult{URL: normalized, Err: &CrawlError{URL: normalized, Message: "no crawl record"}})
			continue
		}
		out = append(out, &SiteResult{URL: normalized, CrawlData: cached.CrawlData, Cached: true})
	}
	return out
}

// GeneratePersonalization runs one template across the supplied sites,
// merging each result as it lands. Returns the per-URL failures.
func (s *websiteService) GeneratePersonalization(ctx context.Context, userID uuid.UUID, sites []*SiteResult, templateName string, customPrompt string) map[string]error {
	failures := make(map[string]error)
	var mu sync.Mutex

	var g errgroup.Group
	for _, site := range sites {
		if !site.Valid() {
			continue
		}
		g.Go(func() error {
			text, err := s.ai.AnalyzeWebsite(ctx, site.CrawlData, templateName, customPrompt, businessName(site.URL))
			if err != nil {
				s.log.Error("Error generating personalization", "url", site.URL, "template", templateName, "error", err)
				_, _ = s.store.MergePersonalizations(ctx, userID, site.URL, map[string]string{
					templateName + "_error": err.Error(),
				})
				mu.Lock()
				failures[site.URL] = err
				mu.Unlock()
				return nil
			}
			_, _ = s.store.MergePersonalizations(ctx, userID, site.URL, map[string]string{
				templateName: text,
			})
			return nil
		})
	}
	_ = g.Wait()
	return failures
}
