package crawl

import (
	"context"
)

// Tracker owns the authoritative frontier state for one crawl: the set of
// all known items, the subset still unexplored, and the per-worker
// checked-out batches. Every mutating operation is atomic with respect to
// the others; after each completed operation the unexplored set and all
// per-worker sets are pairwise disjoint.
type Tracker interface {
	// AddItems inserts every item not already known into both the known
	// and the unexplored sets. Rediscovering a known item never re-queues
	// it, even if it has already been explored.
	AddItems(ctx context.Context, items Set) error

	// MarkExplored removes items from the unexplored set. Used at seed
	// time to skip items explored by a previous run.
	MarkExplored(ctx context.Context, items Set) error

	// AllocateWorkerID returns a fresh, never-reused worker identifier.
	AllocateWorkerID(ctx context.Context) (int64, error)

	// CheckoutWork atomically moves up to n items from the unexplored set
	// into the worker's assigned set and returns a copy of everything
	// currently assigned to that worker, including any unfinished
	// remainder from earlier checkouts. May return fewer than n items, or
	// an empty set.
	CheckoutWork(ctx context.Context, workerID int64, n int) (Set, error)

	// MarkWorkFinished removes work from the worker's assigned set.
	// work must be a subset of what is currently assigned to the worker;
	// a violation is a caller bug and panics.
	MarkWorkFinished(ctx context.Context, workerID int64, work Set) error

	// CrawlDone reports whether the unexplored set and every worker's
	// assigned set are empty. This is a point-in-time snapshot; callers
	// that see "no work, not done" should back off and recheck.
	CrawlDone(ctx context.Context) (bool, error)

	// Shutdown releases held resources. Shared-store trackers keep their
	// persisted state so an interrupted crawl can resume.
	Shutdown(ctx context.Context) error
}

// Coordinator is the narrow surface the Manager exposes to workers and
// post-processing callbacks. Workers and callbacks never touch the
// Tracker or Saver directly.
type Coordinator interface {
	AddNewItems(ctx context.Context, items Set) error
	Save(ctx context.Context, item Item, resp Response) error
	CheckoutWork(ctx context.Context, workerID int64) (Set, error)
	MarkWorkFinished(ctx context.Context, workerID int64, work Set) error
	HasWork(ctx context.Context) (bool, error)
	CrawlDone(ctx context.Context) (bool, error)
}

// Callback is one post-processing step run after a successful download.
// Callbacks may discover new items or persist the response through the
// Coordinator. Callback errors are logged and never abort siblings.
type Callback func(ctx context.Context, co Coordinator, item Item, resp Response) error

// Scraper downloads one item and supplies the post-processing callbacks
// to run after every successful, status-200 download.
type Scraper interface {
	Download(ctx context.Context, item Item) (Response, error)
	Callbacks() []Callback
}

// Saver persists a fetched response under its item identifier. Save must
// be safe to call concurrently for distinct items.
type Saver interface {
	Save(ctx context.Context, item Item, resp Response) error
	Close() error
}
