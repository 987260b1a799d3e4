package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frontier-crawler/frontier/internal/config"
	"github.com/frontier-crawler/frontier/internal/crawl"
	"github.com/frontier-crawler/frontier/internal/events"
	eventspubsub "github.com/frontier-crawler/frontier/internal/events/pubsub"
	"github.com/frontier-crawler/frontier/internal/logging"
	"github.com/frontier-crawler/frontier/internal/manager"
	"github.com/frontier-crawler/frontier/internal/metrics"
	"github.com/frontier-crawler/frontier/internal/saver"
	"github.com/frontier-crawler/frontier/internal/scraper"
	memorytracker "github.com/frontier-crawler/frontier/internal/tracker/memory"
	redistracker "github.com/frontier-crawler/frontier/internal/tracker/redis"
	"github.com/frontier-crawler/frontier/internal/worker"
)

// newCrawlCmd creates the 'crawl' subcommand, which seeds the frontier
// and runs the worker pool to completion.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs a crawl to exhaustion",
		Long: `Seeds the frontier from the configured item lists, spawns the worker
pool, and blocks until every item has been explored and all in-flight
batches have drained.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go serveMetrics(cfg.Metrics.Port, logger)

	tracker, err := buildTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	scr, err := buildScraper(cfg)
	if err != nil {
		return err
	}
	sv, err := buildSaver(ctx, cfg)
	if err != nil {
		return err
	}
	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			logger.Warn("publisher close failed", zap.Error(cerr))
		}
	}()

	mgr := manager.New(
		manager.Config{
			Name:       cfg.Crawl.Name,
			NumWorkers: cfg.Crawl.Workers,
			BatchSize:  cfg.Crawl.BatchSize,
			Worker: worker.Config{
				PollInterval:     cfg.Crawl.PollInterval(),
				FetchConcurrency: cfg.Crawl.FetchConcurrency,
			},
		},
		tracker,
		scr,
		sv,
		publisher,
		logger,
	)

	known, explored, err := loadSeeds(cfg.Crawl)
	if err != nil {
		return err
	}
	if err := mgr.Seed(ctx, known, explored); err != nil {
		return err
	}

	return mgr.Crawl(ctx)
}

func buildTracker(ctx context.Context, cfg config.Config, logger *zap.Logger) (crawl.Tracker, error) {
	switch cfg.Tracker.Backend {
	case "redis":
		tracker, err := redistracker.New(redistracker.Config{
			Addr:  cfg.Tracker.RedisAddr,
			Crawl: cfg.Crawl.Name,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init redis tracker: %w", err)
		}
		if cfg.Tracker.FreshStart {
			if err := tracker.Clear(ctx); err != nil {
				return nil, fmt.Errorf("clear crawl state: %w", err)
			}
		}
		return tracker, nil
	default:
		return memorytracker.New(), nil
	}
}

func buildScraper(cfg config.Config) (crawl.Scraper, error) {
	fetcherCfg := scraper.FetcherConfig{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.Timeout(),
	}

	var fetcher scraper.Fetcher
	switch cfg.Scraper.Fetcher {
	case "colly":
		fetcher = scraper.NewCollyFetcher(fetcherCfg)
	default:
		fetcher = scraper.NewRestyFetcher(fetcherCfg)
	}

	switch cfg.Scraper.Kind {
	case "null":
		return scraper.Null{}, nil
	case "ids":
		return scraper.NewIDScraper(fetcher, cfg.Scraper.URLFmt, cfg.Scraper.Pattern)
	default:
		return scraper.NewLinkScraper(fetcher, cfg.Scraper.Pattern)
	}
}

func buildSaver(ctx context.Context, cfg config.Config) (crawl.Saver, error) {
	switch cfg.Saver.Kind {
	case "file":
		return saver.NewFile(saver.FileConfig{
			BaseDir: cfg.Saver.BaseDir,
			PathFmt: cfg.Saver.PathFmt,
		})
	case "tar":
		return saver.NewTar(saver.TarConfig{
			Path:    cfg.Saver.TarPath,
			PathFmt: cfg.Saver.PathFmt,
		})
	case "redis":
		return saver.NewRedis(saver.RedisConfig{
			Addr:  cfg.Saver.RedisAddr,
			Crawl: cfg.Crawl.Name,
		})
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		return saver.NewGCS(client, saver.GCSConfig{
			Bucket: cfg.Saver.GCSBucket,
			Prefix: cfg.Saver.GCSPrefix,
			Crawl:  cfg.Crawl.Name,
		})
	default:
		return saver.Null{}, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	if cfg.Events.Backend != "pubsub" {
		return events.Noop{}, nil
	}
	publisher, err := eventspubsub.New(ctx, eventspubsub.Config{
		ProjectID: cfg.Events.ProjectID,
		TopicID:   cfg.Events.TopicID,
	})
	if err != nil {
		return nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	return publisher, nil
}

// loadSeeds combines inline seeds with line-per-item seed files.
func loadSeeds(cfg config.CrawlConfig) (known, explored []crawl.Item, err error) {
	known = append(known, cfg.Seeds...)

	fromFile, err := readLines(cfg.KnownFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read known items: %w", err)
	}
	known = append(known, fromFile...)

	explored, err = readLines(cfg.ExploredFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read explored items: %w", err)
	}
	return known, explored, nil
}

func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func serveMetrics(port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("serving metrics", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
