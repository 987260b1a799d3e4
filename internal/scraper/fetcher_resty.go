package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// FetcherConfig controls HTTP client behavior shared by all fetchers.
type FetcherConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func (c *FetcherConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "frontier/1.0"
	}
}

// RestyFetcher performs plain HTTP GETs through a pooled resty client.
type RestyFetcher struct {
	client *resty.Client
}

// NewRestyFetcher builds a RestyFetcher.
func NewRestyFetcher(cfg FetcherConfig) *RestyFetcher {
	cfg.applyDefaults()
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)
	return &RestyFetcher{client: client}
}

// Fetch executes a single GET. Non-2xx responses are returned to the
// caller with their status code, not as errors.
func (f *RestyFetcher) Fetch(ctx context.Context, url string) (crawl.Response, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return crawl.Response{}, fmt.Errorf("get %s: %w", url, err)
	}
	return crawl.Response{
		URL:        url,
		StatusCode: resp.StatusCode(),
		Headers:    resp.Header(),
		Body:       resp.Body(),
		Duration:   resp.Time(),
	}, nil
}
