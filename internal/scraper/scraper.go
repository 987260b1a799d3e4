// Package scraper provides download strategies for the crawl engine.
// A scraper turns one item into an HTTP response and supplies the
// post-processing callbacks run after each successful download.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// Fetcher executes a single HTTP GET. Timeouts and transport concerns
// live behind this boundary.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (crawl.Response, error)
}

// saveCallback persists the response through the coordinator. It is a
// callback rather than built into the worker because some crawls only
// discover IDs and never save anything.
func saveCallback(ctx context.Context, co crawl.Coordinator, item crawl.Item, resp crawl.Response) error {
	return co.Save(ctx, item, resp)
}

// extract applies the pattern to the body and collects every match. When
// the pattern has a capture group the first group is taken, mirroring
// how ID patterns are usually written.
func extract(re *regexp.Regexp, body []byte) crawl.Set {
	found := crawl.NewSet()
	for _, m := range re.FindAllSubmatch(body, -1) {
		if len(m) > 1 {
			found.Add(string(m[1]))
		} else {
			found.Add(string(m[0]))
		}
	}
	return found
}

// LinkScraper treats items as absolute URLs and feeds every pattern
// match in the body back into the frontier.
type LinkScraper struct {
	fetcher Fetcher
	re      *regexp.Regexp
}

// NewLinkScraper compiles the link pattern.
func NewLinkScraper(fetcher Fetcher, linkPattern string) (*LinkScraper, error) {
	re, err := regexp.Compile(linkPattern)
	if err != nil {
		return nil, fmt.Errorf("compile link pattern: %w", err)
	}
	return &LinkScraper{fetcher: fetcher, re: re}, nil
}

// Download fetches the item as a URL.
func (s *LinkScraper) Download(ctx context.Context, item crawl.Item) (crawl.Response, error) {
	return s.fetcher.Fetch(ctx, item)
}

// Callbacks discovers new links, then saves the response.
func (s *LinkScraper) Callbacks() []crawl.Callback {
	return []crawl.Callback{s.discover, saveCallback}
}

func (s *LinkScraper) discover(ctx context.Context, co crawl.Coordinator, _ crawl.Item, resp crawl.Response) error {
	return co.AddNewItems(ctx, extract(s.re, resp.Body))
}

// IDScraper treats items as opaque IDs formatted into a URL template and
// feeds every ID matched in the body back into the frontier.
type IDScraper struct {
	fetcher Fetcher
	urlFmt  string
	re      *regexp.Regexp
}

// NewIDScraper compiles the ID pattern. urlFmt must contain one %s verb
// receiving the item.
func NewIDScraper(fetcher Fetcher, urlFmt, idPattern string) (*IDScraper, error) {
	re, err := regexp.Compile(idPattern)
	if err != nil {
		return nil, fmt.Errorf("compile id pattern: %w", err)
	}
	return &IDScraper{fetcher: fetcher, urlFmt: urlFmt, re: re}, nil
}

// Download fetches the templated URL for the item.
func (s *IDScraper) Download(ctx context.Context, item crawl.Item) (crawl.Response, error) {
	return s.fetcher.Fetch(ctx, fmt.Sprintf(s.urlFmt, item))
}

// Callbacks discovers new IDs, then saves the response.
func (s *IDScraper) Callbacks() []crawl.Callback {
	return []crawl.Callback{s.discover, saveCallback}
}

func (s *IDScraper) discover(ctx context.Context, co crawl.Coordinator, _ crawl.Item, resp crawl.Response) error {
	return co.AddNewItems(ctx, extract(s.re, resp.Body))
}

// Null always succeeds with an empty response and runs no callbacks.
// Useful for draining a frontier in tests and dry runs.
type Null struct{}

// Download returns an empty 200 response.
func (Null) Download(context.Context, crawl.Item) (crawl.Response, error) {
	return crawl.Response{StatusCode: http.StatusOK}, nil
}

// Callbacks returns none.
func (Null) Callbacks() []crawl.Callback { return nil }
