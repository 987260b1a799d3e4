package worker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frontier-crawler/frontier/internal/crawl"
	memorytracker "github.com/frontier-crawler/frontier/internal/tracker/memory"
)

// fakeCoordinator backs the coordinator surface with a real in-memory
// tracker and records saves.
type fakeCoordinator struct {
	tracker *memorytracker.Tracker
	batch   int

	mu    sync.Mutex
	saved map[crawl.Item]int
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{
		tracker: memorytracker.New(),
		batch:   100,
		saved:   make(map[crawl.Item]int),
	}
}

func (c *fakeCoordinator) AddNewItems(ctx context.Context, items crawl.Set) error {
	return c.tracker.AddItems(ctx, items)
}

func (c *fakeCoordinator) Save(_ context.Context, item crawl.Item, _ crawl.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved[item]++
	return nil
}

func (c *fakeCoordinator) CheckoutWork(ctx context.Context, workerID int64) (crawl.Set, error) {
	return c.tracker.CheckoutWork(ctx, workerID, c.batch)
}

func (c *fakeCoordinator) MarkWorkFinished(ctx context.Context, workerID int64, work crawl.Set) error {
	return c.tracker.MarkWorkFinished(ctx, workerID, work)
}

func (c *fakeCoordinator) HasWork(ctx context.Context) (bool, error) {
	done, err := c.tracker.CrawlDone(ctx)
	return !done, err
}

func (c *fakeCoordinator) CrawlDone(ctx context.Context) (bool, error) {
	return c.tracker.CrawlDone(ctx)
}

func (c *fakeCoordinator) savedCounts() map[crawl.Item]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[crawl.Item]int, len(c.saved))
	for item, n := range c.saved {
		out[item] = n
	}
	return out
}

// fakeScraper returns canned statuses/errors per item and counts fetches.
type fakeScraper struct {
	mu        sync.Mutex
	fetched   map[crawl.Item]int
	failures  map[crawl.Item]error
	statuses  map[crawl.Item]int
	callbacks []crawl.Callback
}

func newFakeScraper(callbacks ...crawl.Callback) *fakeScraper {
	return &fakeScraper{
		fetched:   make(map[crawl.Item]int),
		failures:  make(map[crawl.Item]error),
		statuses:  make(map[crawl.Item]int),
		callbacks: callbacks,
	}
}

func (s *fakeScraper) Download(_ context.Context, item crawl.Item) (crawl.Response, error) {
	s.mu.Lock()
	s.fetched[item]++
	s.mu.Unlock()

	if err := s.failures[item]; err != nil {
		return crawl.Response{}, err
	}
	status := s.statuses[item]
	if status == 0 {
		status = http.StatusOK
	}
	return crawl.Response{URL: item, StatusCode: status, Body: []byte("body of " + item)}, nil
}

func (s *fakeScraper) Callbacks() []crawl.Callback { return s.callbacks }

func (s *fakeScraper) fetchCounts() map[crawl.Item]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[crawl.Item]int, len(s.fetched))
	for item, n := range s.fetched {
		out[item] = n
	}
	return out
}

func saveCallback(ctx context.Context, co crawl.Coordinator, item crawl.Item, resp crawl.Response) error {
	return co.Save(ctx, item, resp)
}

func testConfig() Config {
	return Config{PollInterval: 5 * time.Millisecond, FetchConcurrency: 4}
}

func TestWorkerDrainsFrontier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	co := newFakeCoordinator()
	require.NoError(t, co.tracker.AddItems(ctx, crawl.NewSet("1", "2", "3")))
	scraper := newFakeScraper(saveCallback)

	w := New(1, co, scraper, testConfig(), zap.NewNop())
	require.NoError(t, w.Run(ctx))

	require.Equal(t, map[crawl.Item]int{"1": 1, "2": 1, "3": 1}, co.savedCounts())

	done, err := co.CrawlDone(ctx)
	require.NoError(t, err)
	require.True(t, done)

	work, err := co.CheckoutWork(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, work.Len())
}

func TestWorkerDropsFailedDownloads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	co := newFakeCoordinator()
	require.NoError(t, co.tracker.AddItems(ctx, crawl.NewSet("good", "conn-err", "server-err")))
	scraper := newFakeScraper(saveCallback)
	scraper.failures["conn-err"] = errors.New("connection refused")
	scraper.statuses["server-err"] = http.StatusInternalServerError

	w := New(1, co, scraper, testConfig(), zap.NewNop())
	require.NoError(t, w.Run(ctx))

	// Failed items are dropped from the cycle but the batch still
	// finishes, so the crawl terminates.
	require.Equal(t, map[crawl.Item]int{"good": 1}, co.savedCounts())
	done, err := co.CrawlDone(ctx)
	require.NoError(t, err)
	require.True(t, done)
}

func TestWorkerCallbackErrorsDoNotAbortBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	co := newFakeCoordinator()
	require.NoError(t, co.tracker.AddItems(ctx, crawl.NewSet("a", "b")))

	failing := func(context.Context, crawl.Coordinator, crawl.Item, crawl.Response) error {
		return errors.New("postprocessing exploded")
	}
	scraper := newFakeScraper(failing, saveCallback)

	w := New(1, co, scraper, testConfig(), zap.NewNop())
	require.NoError(t, w.Run(ctx))

	// The sibling save callback still ran for every item.
	require.Equal(t, map[crawl.Item]int{"a": 1, "b": 1}, co.savedCounts())
	done, err := co.CrawlDone(ctx)
	require.NoError(t, err)
	require.True(t, done)
}

func TestWorkerProcessesItemsDiscoveredMidCrawl(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	co := newFakeCoordinator()
	require.NoError(t, co.tracker.AddItems(ctx, crawl.NewSet("a")))

	discover := func(ctx context.Context, co crawl.Coordinator, item crawl.Item, _ crawl.Response) error {
		if item == "a" {
			return co.AddNewItems(ctx, crawl.NewSet("b"))
		}
		return nil
	}
	scraper := newFakeScraper(discover, saveCallback)

	w := New(1, co, scraper, testConfig(), zap.NewNop())
	require.NoError(t, w.Run(ctx))

	require.Equal(t, map[crawl.Item]int{"a": 1, "b": 1}, scraper.fetchCounts())
	require.Equal(t, map[crawl.Item]int{"a": 1, "b": 1}, co.savedCounts())
}

func TestWorkerWaitsForOtherWorkersInsteadOfExiting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	co := newFakeCoordinator()
	require.NoError(t, co.tracker.AddItems(ctx, crawl.NewSet("held")))

	// Another worker holds the only item, so this worker sees an empty
	// checkout while the crawl is not done.
	otherID, err := co.tracker.AllocateWorkerID(ctx)
	require.NoError(t, err)
	held, err := co.tracker.CheckoutWork(ctx, otherID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, held.Len())

	scraper := newFakeScraper(saveCallback)
	w := New(2, co, scraper, testConfig(), zap.NewNop())

	finished := make(chan error, 1)
	go func() { finished <- w.Run(ctx) }()

	select {
	case err := <-finished:
		t.Fatalf("worker exited while another worker held items: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, co.tracker.MarkWorkFinished(ctx, otherID, held))

	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after the crawl drained")
	}

	require.Empty(t, scraper.fetchCounts())
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	co := newFakeCoordinator()
	require.NoError(t, co.tracker.AddItems(context.Background(), crawl.NewSet("held")))

	otherID, err := co.tracker.AllocateWorkerID(context.Background())
	require.NoError(t, err)
	_, err = co.tracker.CheckoutWork(context.Background(), otherID, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	w := New(2, co, newFakeScraper(), Config{PollInterval: time.Hour}, zap.NewNop())

	finished := make(chan error, 1)
	go func() { finished <- w.Run(ctx) }()

	cancel()

	select {
	case err := <-finished:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}
