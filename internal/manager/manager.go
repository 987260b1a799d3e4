// Package manager wires a tracker, scraper and saver together under a
// named crawl and drives a worker pool to completion.
package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/frontier-crawler/frontier/internal/crawl"
	"github.com/frontier-crawler/frontier/internal/events"
	"github.com/frontier-crawler/frontier/internal/metrics"
	"github.com/frontier-crawler/frontier/internal/worker"
)

// Config controls Manager behavior.
type Config struct {
	// Name identifies the crawl. Shared-store trackers namespace all
	// persisted keys under it.
	Name string
	// NumWorkers is the size of the worker pool.
	NumWorkers int
	// BatchSize is the maximum number of items checked out per request.
	BatchSize int
	// Worker configures each worker's loop.
	Worker worker.Config
}

// Manager is the composition root for one crawl. It owns the crawl name,
// seeds the tracker, runs the worker pool to completion, and shuts the
// tracker and saver down afterwards. Workers, scrapers and savers reach
// the tracker only through the Manager's Coordinator surface.
type Manager struct {
	cfg       Config
	runID     string
	tracker   crawl.Tracker
	scraper   crawl.Scraper
	saver     crawl.Saver
	publisher events.Publisher
	logger    *zap.Logger
}

// New constructs a Manager. A nil publisher disables event publishing.
func New(
	cfg Config,
	tracker crawl.Tracker,
	scraper crawl.Scraper,
	saver crawl.Saver,
	publisher events.Publisher,
	logger *zap.Logger,
) *Manager {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Manager{
		cfg:       cfg,
		runID:     uuid.NewString(),
		tracker:   tracker,
		scraper:   scraper,
		saver:     saver,
		publisher: publisher,
		logger:    logger.With(zap.String("crawl", cfg.Name)),
	}
}

// RunID identifies this run of the crawl in logs and events.
func (m *Manager) RunID() string {
	return m.runID
}

// Seed loads previously-known and previously-explored items into the
// tracker so an interrupted crawl resumes without re-fetching.
func (m *Manager) Seed(ctx context.Context, known, explored []crawl.Item) error {
	if err := m.AddNewItems(ctx, crawl.NewSet(known...)); err != nil {
		return fmt.Errorf("seed known items: %w", err)
	}
	if err := m.tracker.MarkExplored(ctx, crawl.NewSet(explored...)); err != nil {
		return fmt.Errorf("seed explored items: %w", err)
	}
	m.logger.Info("seeded crawl",
		zap.Int("known", len(known)),
		zap.Int("explored", len(explored)),
	)
	return nil
}

// Crawl runs the worker pool until the frontier drains and all in-flight
// batches finish, then shuts down the tracker and saver in that order.
func (m *Manager) Crawl(ctx context.Context) error {
	m.publishEvent(ctx, "crawl_started")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m.cfg.NumWorkers; i++ {
		workerID, err := m.tracker.AllocateWorkerID(ctx)
		if err != nil {
			return fmt.Errorf("allocate worker id: %w", err)
		}
		w := worker.New(workerID, m, m.scraper, m.cfg.Worker, m.logger)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	runErr := g.Wait()
	if runErr != nil {
		m.logger.Error("crawl aborted", zap.Error(runErr))
	} else {
		m.logger.Info("crawl done")
	}

	if err := m.tracker.Shutdown(ctx); err != nil {
		m.logger.Warn("tracker shutdown failed", zap.Error(err))
	}
	if err := m.saver.Close(); err != nil {
		m.logger.Warn("saver close failed", zap.Error(err))
	}

	m.publishEvent(ctx, "crawl_finished")
	return runErr
}

// AddNewItems feeds discovered items into the frontier. Already-known
// items are ignored, so callbacks may rediscover freely.
func (m *Manager) AddNewItems(ctx context.Context, items crawl.Set) error {
	metrics.ItemsDiscovered.Add(float64(items.Len()))
	return m.tracker.AddItems(ctx, items)
}

// Save persists a fetched response through the configured saver.
func (m *Manager) Save(ctx context.Context, item crawl.Item, resp crawl.Response) error {
	return m.saver.Save(ctx, item, resp)
}

// CheckoutWork checks out up to the configured batch size for the worker.
// The returned set may hold fewer items than the batch size, or none.
func (m *Manager) CheckoutWork(ctx context.Context, workerID int64) (crawl.Set, error) {
	return m.tracker.CheckoutWork(ctx, workerID, m.cfg.BatchSize)
}

// MarkWorkFinished reports a worker's batch back to the tracker.
func (m *Manager) MarkWorkFinished(ctx context.Context, workerID int64, work crawl.Set) error {
	return m.tracker.MarkWorkFinished(ctx, workerID, work)
}

// HasWork reports whether any unexplored or in-flight items remain.
func (m *Manager) HasWork(ctx context.Context) (bool, error) {
	done, err := m.tracker.CrawlDone(ctx)
	if err != nil {
		return false, err
	}
	return !done, nil
}

// CrawlDone reports whether the crawl has fully terminated.
func (m *Manager) CrawlDone(ctx context.Context) (bool, error) {
	return m.tracker.CrawlDone(ctx)
}

func (m *Manager) publishEvent(ctx context.Context, event string) {
	payload := map[string]any{
		"crawl":     m.cfg.Name,
		"run_id":    m.runID,
		"event":     event,
		"workers":   m.cfg.NumWorkers,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := m.publisher.Publish(ctx, payload); err != nil {
		m.logger.Warn("event publish failed", zap.String("event", event), zap.Error(err))
	}
}
