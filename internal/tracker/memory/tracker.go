// Package memory provides an in-process Tracker for single-host crawls.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// Tracker keeps the frontier in local sets guarded by a single mutex.
type Tracker struct {
	mu           sync.Mutex
	allItems     crawl.Set
	unexplored   crawl.Set
	assigned     map[int64]crawl.Set
	lastWorkerID int64
}

// New creates an empty in-memory Tracker.
func New() *Tracker {
	return &Tracker{
		allItems:   crawl.NewSet(),
		unexplored: crawl.NewSet(),
		assigned:   make(map[int64]crawl.Set),
	}
}

// AddItems queues every genuinely new item. Items already known stay
// wherever they are, so a previously explored item that is rediscovered
// is not re-queued.
func (t *Tracker) AddItems(_ context.Context, items crawl.Set) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	newItems := items.Diff(t.allItems)
	t.allItems.Union(newItems)
	t.unexplored.Union(newItems)
	return nil
}

// MarkExplored removes items from the unexplored set.
func (t *Tracker) MarkExplored(_ context.Context, items crawl.Set) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for item := range items {
		delete(t.unexplored, item)
	}
	return nil
}

// AllocateWorkerID returns the next worker identifier. IDs are never reused.
func (t *Tracker) AllocateWorkerID(_ context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastWorkerID++
	return t.lastWorkerID, nil
}

// CheckoutWork moves up to n unexplored items into the worker's assigned
// set and returns a copy of everything assigned to that worker.
func (t *Tracker) CheckoutWork(_ context.Context, workerID int64, n int) (crawl.Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	work := t.assigned[workerID]
	if work == nil {
		work = crawl.NewSet()
		t.assigned[workerID] = work
	}
	for item := range t.unexplored {
		if n <= 0 {
			break
		}
		delete(t.unexplored, item)
		work.Add(item)
		n--
	}
	return work.Copy(), nil
}

// MarkWorkFinished removes work from the worker's assigned set. Passing
// items that are not checked out to the worker is a caller bug.
func (t *Tracker) MarkWorkFinished(_ context.Context, workerID int64, work crawl.Set) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	assigned := t.assigned[workerID]
	if !work.SubsetOf(assigned) {
		panic(fmt.Sprintf("tracker: worker %d finishing work it was never assigned", workerID))
	}
	for item := range work {
		delete(assigned, item)
	}
	return nil
}

// CrawlDone reports whether the frontier and every assigned set are empty.
func (t *Tracker) CrawlDone(_ context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.unexplored.Len() > 0 {
		return false, nil
	}
	for _, work := range t.assigned {
		if work.Len() > 0 {
			return false, nil
		}
	}
	return true, nil
}

// Shutdown clears all state.
func (t *Tracker) Shutdown(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.allItems = crawl.NewSet()
	t.unexplored = crawl.NewSet()
	t.assigned = make(map[int64]crawl.Set)
	t.lastWorkerID = 0
	return nil
}
