// Package worker implements the crawl execution loop.
package worker

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/frontier-crawler/frontier/internal/crawl"
	"github.com/frontier-crawler/frontier/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	// PollInterval is how long the worker sleeps after an empty checkout
	// before rechecking. Other workers may still be mid-flight and about
	// to refill the frontier, so an empty checkout alone never means done.
	PollInterval time.Duration
	// FetchConcurrency bounds concurrent downloads within one worker.
	FetchConcurrency int
}

// Worker repeatedly checks out a batch of items, downloads each one,
// fans out post-processing callbacks per successful download, and
// reports the batch finished.
type Worker struct {
	id      int64
	co      crawl.Coordinator
	scraper crawl.Scraper
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Worker.
func New(id int64, co crawl.Coordinator, scraper crawl.Scraper, cfg Config, logger *zap.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 8
	}
	return &Worker{
		id:      id,
		co:      co,
		scraper: scraper,
		cfg:     cfg,
		logger:  logger.With(zap.Int64("worker_id", id)),
	}
}

// Run blocks until the crawl is fully finished or the context ends.
// The worker exits cleanly only once no unexplored items remain and
// every worker's assigned set has drained.
func (w *Worker) Run(ctx context.Context) error {
	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	for {
		done, err := w.co.CrawlDone(ctx)
		if err != nil {
			return err
		}
		if done {
			w.logger.Debug("crawl done, worker exiting")
			return nil
		}

		work, err := w.co.CheckoutWork(ctx, w.id)
		if err != nil {
			return err
		}

		if work.Len() == 0 {
			// No work right now, but the crawl isn't done: another worker
			// is still holding items and may discover more. Back off and
			// recheck rather than exiting.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.cfg.PollInterval):
			}
			continue
		}

		w.logger.Debug("checked out batch", zap.Int("items", work.Len()))
		w.processWork(ctx, work)

		// Report the original checkout, failed fetches included: an item
		// is done-with-this-attempt regardless of outcome since there is
		// no retry path.
		if err := w.co.MarkWorkFinished(ctx, w.id, work); err != nil {
			return err
		}
		metrics.BatchesFinished.Inc()
	}
}

// processWork downloads every item in the batch and runs all scraper
// callbacks for each successful download. Downloads run under a bounded
// concurrency limit and never wait on an earlier item's callbacks; all
// callbacks for the batch are awaited before returning.
func (w *Worker) processWork(ctx context.Context, work crawl.Set) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, w.cfg.FetchConcurrency)

	for item := range work {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(item crawl.Item) {
			defer wg.Done()

			resp, err := w.scraper.Download(ctx, item)
			<-sem

			metrics.Fetches.Inc()
			if err != nil {
				metrics.FetchErrors.Inc()
				w.logger.Info("download failed, dropping item", zap.String("item", item), zap.Error(err))
				return
			}
			if resp.StatusCode != http.StatusOK {
				metrics.FetchErrors.Inc()
				w.logger.Info("unexpected status, dropping item",
					zap.String("item", item),
					zap.Int("status", resp.StatusCode),
				)
				return
			}

			for _, cb := range w.scraper.Callbacks() {
				wg.Add(1)
				go func(cb crawl.Callback) {
					defer wg.Done()
					if err := cb(ctx, w.co, item, resp); err != nil {
						metrics.CallbackErrors.Inc()
						w.logger.Info("postprocessing failed", zap.String("item", item), zap.Error(err))
					}
				}(cb)
			}
		}(item)
	}

	wg.Wait()
}
