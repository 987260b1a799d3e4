package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// newTestTracker connects to the Redis named by FRONTIER_TEST_REDIS
// under a unique crawl name, or skips the test when unset.
func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	addr := os.Getenv("FRONTIER_TEST_REDIS")
	if addr == "" {
		t.Skip("FRONTIER_TEST_REDIS not set; skipping redis integration test")
	}

	name := fmt.Sprintf("frontier_test_%d", time.Now().UnixNano())
	tracker, err := New(Config{Addr: addr, Crawl: name}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tracker.Clear(ctx))
	t.Cleanup(func() {
		_ = tracker.Clear(ctx)
		_ = tracker.Shutdown(ctx)
	})
	return tracker
}

func TestKeyNamespacing(t *testing.T) {
	t.Parallel()

	tracker := &Tracker{crawl: "yt"}
	require.Equal(t, "yt_all_items", tracker.itemsKey())
	require.Equal(t, "yt_unexplored", tracker.unexploredKey())
	require.Equal(t, "yt_worker_id", tracker.workerIDKey())
	require.Equal(t, "yt_temp_id", tracker.tempIDKey())
	require.Equal(t, "yt_checked_out_7", tracker.checkedOutKey(7))
}

func TestAddItemsIsIdempotentAgainstStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker := newTestTracker(t)

	require.NoError(t, tracker.AddItems(ctx, crawl.NewSet("x", "y")))
	require.NoError(t, tracker.AddItems(ctx, crawl.NewSet("x", "z")))

	workerID, err := tracker.AllocateWorkerID(ctx)
	require.NoError(t, err)
	work, err := tracker.CheckoutWork(ctx, workerID, 10)
	require.NoError(t, err)
	require.Equal(t, crawl.NewSet("x", "y", "z"), work)
}

func TestCheckoutAndFinishLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker := newTestTracker(t)

	require.NoError(t, tracker.AddItems(ctx, crawl.NewSet("a", "b", "c")))

	workerID, err := tracker.AllocateWorkerID(ctx)
	require.NoError(t, err)

	work, err := tracker.CheckoutWork(ctx, workerID, 2)
	require.NoError(t, err)
	require.Equal(t, 2, work.Len())

	done, err := tracker.CrawlDone(ctx)
	require.NoError(t, err)
	require.False(t, done, "one item unexplored, two in flight")

	require.NoError(t, tracker.MarkWorkFinished(ctx, workerID, work))

	rest, err := tracker.CheckoutWork(ctx, workerID, 10)
	require.NoError(t, err)
	require.Equal(t, 1, rest.Len())
	require.NoError(t, tracker.MarkWorkFinished(ctx, workerID, rest))

	done, err = tracker.CrawlDone(ctx)
	require.NoError(t, err)
	require.True(t, done)
}

func TestRediscoveredExploredItemStaysExplored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker := newTestTracker(t)

	require.NoError(t, tracker.AddItems(ctx, crawl.NewSet("a")))
	workerID, err := tracker.AllocateWorkerID(ctx)
	require.NoError(t, err)

	work, err := tracker.CheckoutWork(ctx, workerID, 1)
	require.NoError(t, err)
	require.NoError(t, tracker.MarkWorkFinished(ctx, workerID, work))

	require.NoError(t, tracker.AddItems(ctx, crawl.NewSet("a")))

	work, err = tracker.CheckoutWork(ctx, workerID, 1)
	require.NoError(t, err)
	require.Equal(t, 0, work.Len())
}

func TestMarkExploredSupportsResume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker := newTestTracker(t)

	require.NoError(t, tracker.AddItems(ctx, crawl.NewSet("a", "b", "c")))
	require.NoError(t, tracker.MarkExplored(ctx, crawl.NewSet("a")))

	workerID, err := tracker.AllocateWorkerID(ctx)
	require.NoError(t, err)
	work, err := tracker.CheckoutWork(ctx, workerID, 10)
	require.NoError(t, err)
	require.Equal(t, crawl.NewSet("b", "c"), work)
}

func TestWorkerIDsAreMonotonic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker := newTestTracker(t)

	first, err := tracker.AllocateWorkerID(ctx)
	require.NoError(t, err)
	second, err := tracker.AllocateWorkerID(ctx)
	require.NoError(t, err)
	require.Greater(t, second, first)
}

func TestClearResetsCrawlState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tracker := newTestTracker(t)

	require.NoError(t, tracker.AddItems(ctx, crawl.NewSet("a")))
	workerID, err := tracker.AllocateWorkerID(ctx)
	require.NoError(t, err)
	_, err = tracker.CheckoutWork(ctx, workerID, 1)
	require.NoError(t, err)

	require.NoError(t, tracker.Clear(ctx))

	done, err := tracker.CrawlDone(ctx)
	require.NoError(t, err)
	require.True(t, done)

	id, err := tracker.AllocateWorkerID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), id, "counter reset by clear")
}
