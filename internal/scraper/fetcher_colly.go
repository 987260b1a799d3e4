package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// CollyFetcher executes GETs through a Colly collector, reusing its
// transport pooling. Each fetch runs on a clone of the base collector so
// concurrent fetches never share callback state.
type CollyFetcher struct {
	cfg  FetcherConfig
	base *colly.Collector
}

// NewCollyFetcher builds a CollyFetcher.
func NewCollyFetcher(cfg FetcherConfig) *CollyFetcher {
	cfg.applyDefaults()
	c := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	// Robots handling is owned by the scraper's operator, not the core.
	c.IgnoreRobotsTxt = true
	// Non-2xx statuses must reach OnResponse instead of becoming errors.
	c.ParseHTTPErrorResponse = true
	c.SetRequestTimeout(cfg.Timeout)
	return &CollyFetcher{cfg: cfg, base: c}
}

// Fetch executes a single GET. Responses with non-success status codes
// are returned with their status; only transport failures are errors.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) (crawl.Response, error) {
	if err := ctx.Err(); err != nil {
		return crawl.Response{}, err
	}

	var (
		result   crawl.Response
		fetchErr error
	)
	start := time.Now()

	collector := f.base.Clone()
	collector.OnResponse(func(r *colly.Response) {
		result = toResponse(url, r, start)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			// The server answered; surface the status to the caller.
			result = toResponse(url, r, start)
			return
		}
		fetchErr = err
	})

	if err := collector.Visit(url); err != nil {
		return crawl.Response{}, fmt.Errorf("visit %s: %w", url, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return crawl.Response{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	return result, nil
}

func toResponse(url string, r *colly.Response, start time.Time) crawl.Response {
	headers := http.Header{}
	if r.Headers != nil {
		headers = r.Headers.Clone()
	}
	return crawl.Response{
		URL:        url,
		StatusCode: r.StatusCode,
		Headers:    headers,
		Body:       r.Body,
		Duration:   time.Since(start),
	}
}
