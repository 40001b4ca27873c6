package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/outboundiq/personalize-backend/internal/logger"
)

// Client wraps the crawl provider's synchronous crawl endpoint. One call
// fetches up to MaxPages pages at depth 1 under the configured path filters.
type Client interface {
	CrawlURL(ctx context.Context, url string, opts CrawlOptions) (*CrawlResponse, error)
}

type CrawlOptions struct {
	Limit        int      `json:"limit"`
	MaxDepth     int      `json:"maxDepth"`
	Formats      []string `json:"formats"`
	IncludePaths []string `json:"includePaths"`
	ExcludePaths []string `json:"excludePaths"`
}

// DefaultCrawlOptions bounds a crawl to the root page plus blog-style
// subpaths, skipping taxonomy and pagination pages that carry no copy.
func DefaultCrawlOptions() CrawlOptions {
	return CrawlOptions{
		Limit:    3,
		MaxDepth: 1,
		Formats:  []string{"markdown", "html"},
		IncludePaths: []string{
			"^$",
			"/blog/*",
			"/posts/*",
			"/articles/*",
		},
		ExcludePaths: []string{
			"/category/*",
			"/tag/*",
			"/author/*",
			"/page/*",
			"/archive/*",
		},
	}
}

// CrawlPage is one crawled page keyed by requested format.
type CrawlPage struct {
	Markdown string `json:"markdown,omitempty"`
	HTML     string `json:"html,omitempty"`
}

type CrawlResponse struct {
	Success bool        `json:"success"`
	Data    []CrawlPage `json:"data"`
	Error   string      `json:"error,omitempty"`
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := os.Getenv("FIRECRAWL_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing FIRECRAWL_API_KEY")
	}

	baseURL := os.Getenv("FIRECRAWL_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}

	timeoutSec := 120
	if v := os.Getenv("FIRECRAWL_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &client{
		log:        log.With("client", "FirecrawlClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

type crawlRequest struct {
	URL string `json:"url"`
	CrawlOptions
}

func (c *client) CrawlURL(ctx context.Context, url string, opts CrawlOptions) (*CrawlResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(crawlRequest{URL: url, CrawlOptions: opts}); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/crawl", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	var out CrawlResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("firecrawl decode error: %w; raw=%s", err, string(raw))
	}

	// Provider errors, rate-limit rejections included, arrive as a message in
	// the body. Pass them through so the caller can read retry-after hints.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error == "" {
			out.Error = fmt.Sprintf("firecrawl http %d: %s", resp.StatusCode, string(raw))
		}
		out.Success = false
	}
	return &out, nil
}
