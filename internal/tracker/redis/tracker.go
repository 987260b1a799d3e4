// Package redis provides a shared-store Tracker backed by Redis sets,
// allowing a crawl to span multiple processes or hosts.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// batchSize bounds the number of members sent in one SADD/SREM so large
// discoveries do not exceed backend limits on command size.
const batchSize = 1000

// Config captures the parameters required to connect the tracker.
type Config struct {
	// Addr is the host:port of the Redis server.
	Addr string `mapstructure:"addr"`
	// Crawl namespaces every key so multiple crawls can share one server.
	Crawl string
}

// Tracker stores the frontier in Redis sets under crawl-scoped keys:
// <crawl>_all_items, <crawl>_unexplored, <crawl>_worker_id and one
// <crawl>_checked_out_<id> set per worker.
type Tracker struct {
	client *redis.Client
	crawl  string
	logger *zap.Logger
}

// New connects a Tracker for the named crawl.
func New(cfg Config, logger *zap.Logger) (*Tracker, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.Crawl == "" {
		return nil, fmt.Errorf("crawl name is required")
	}
	return &Tracker{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr}),
		crawl:  cfg.Crawl,
		logger: logger,
	}, nil
}

// NewFromClient wraps an existing client, mainly for tests.
func NewFromClient(client *redis.Client, crawlName string, logger *zap.Logger) *Tracker {
	return &Tracker{client: client, crawl: crawlName, logger: logger}
}

func (t *Tracker) keyname(elem string) string {
	return fmt.Sprintf("%s_%s", t.crawl, elem)
}

func (t *Tracker) itemsKey() string      { return t.keyname("all_items") }
func (t *Tracker) unexploredKey() string { return t.keyname("unexplored") }
func (t *Tracker) workerIDKey() string   { return t.keyname("worker_id") }
func (t *Tracker) tempIDKey() string     { return t.keyname("temp_id") }

func (t *Tracker) checkedOutKey(workerID int64) string {
	return t.keyname(fmt.Sprintf("checked_out_%d", workerID))
}

// Clear deletes all persisted state for this crawl and resets counters.
// Called on a fresh start; a resumed crawl skips it.
func (t *Tracker) Clear(ctx context.Context) error {
	t.logger.Info("clearing crawl state", zap.String("crawl", t.crawl))

	if err := t.client.Del(ctx, t.itemsKey(), t.unexploredKey()).Err(); err != nil {
		return fmt.Errorf("clear item sets: %w", err)
	}
	if err := t.client.Set(ctx, t.workerIDKey(), 0, 0).Err(); err != nil {
		return fmt.Errorf("reset worker id counter: %w", err)
	}
	if err := t.client.Set(ctx, t.tempIDKey(), 0, 0).Err(); err != nil {
		return fmt.Errorf("reset temp id counter: %w", err)
	}

	iter := t.client.Scan(ctx, 0, t.keyname("checked_out_*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := t.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("clear checked out set %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan checked out sets: %w", err)
	}
	return nil
}

// AddItems stages the incoming items into a temporary set, subtracts the
// known set to find the genuinely new ones, then unions those into both
// the known and unexplored sets. Staging keeps rediscovered explored
// items out of the frontier even for very large additions.
func (t *Tracker) AddItems(ctx context.Context, items crawl.Set) error {
	if items.Len() == 0 {
		return nil
	}

	tempID, err := t.client.Incr(ctx, t.tempIDKey()).Result()
	if err != nil {
		return fmt.Errorf("allocate temp set id: %w", err)
	}
	tempKey := t.keyname(fmt.Sprintf("temp_%d", tempID))

	for _, chunk := range items.Chunks(batchSize) {
		if err := t.client.SAdd(ctx, tempKey, toMembers(chunk)...).Err(); err != nil {
			return fmt.Errorf("stage items: %w", err)
		}
	}

	if err := t.client.SDiffStore(ctx, tempKey, tempKey, t.itemsKey()).Err(); err != nil {
		return fmt.Errorf("diff staged items: %w", err)
	}
	if err := t.client.SUnionStore(ctx, t.itemsKey(), t.itemsKey(), tempKey).Err(); err != nil {
		return fmt.Errorf("merge into known items: %w", err)
	}
	if err := t.client.SUnionStore(ctx, t.unexploredKey(), t.unexploredKey(), tempKey).Err(); err != nil {
		return fmt.Errorf("merge into unexplored items: %w", err)
	}

	if err := t.client.Del(ctx, tempKey).Err(); err != nil {
		return fmt.Errorf("drop temp set: %w", err)
	}
	return nil
}

// MarkExplored removes items from the unexplored set.
func (t *Tracker) MarkExplored(ctx context.Context, items crawl.Set) error {
	for _, chunk := range items.Chunks(batchSize) {
		if err := t.client.SRem(ctx, t.unexploredKey(), toMembers(chunk)...).Err(); err != nil {
			return fmt.Errorf("mark explored: %w", err)
		}
	}
	return nil
}

// AllocateWorkerID increments the shared worker counter.
func (t *Tracker) AllocateWorkerID(ctx context.Context) (int64, error) {
	id, err := t.client.Incr(ctx, t.workerIDKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate worker id: %w", err)
	}
	return id, nil
}

// CheckoutWork samples up to n unexplored items and moves each into the
// worker's checked-out set. SMOVE is atomic per item, so concurrent
// checkouts never hand the same item to two workers.
func (t *Tracker) CheckoutWork(ctx context.Context, workerID int64, n int) (crawl.Set, error) {
	workKey := t.checkedOutKey(workerID)

	candidates, err := t.client.SRandMemberN(ctx, t.unexploredKey(), int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("sample unexplored items: %w", err)
	}
	for _, item := range candidates {
		if err := t.client.SMove(ctx, t.unexploredKey(), workKey, item).Err(); err != nil {
			return nil, fmt.Errorf("move item to worker set: %w", err)
		}
	}

	assigned, err := t.client.SMembers(ctx, workKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read worker set: %w", err)
	}
	return crawl.NewSet(assigned...), nil
}

// MarkWorkFinished removes work from the worker's checked-out set after
// asserting it was actually assigned there.
func (t *Tracker) MarkWorkFinished(ctx context.Context, workerID int64, work crawl.Set) error {
	workKey := t.checkedOutKey(workerID)

	assigned, err := t.client.SMembers(ctx, workKey).Result()
	if err != nil {
		return fmt.Errorf("read worker set: %w", err)
	}
	if !work.SubsetOf(crawl.NewSet(assigned...)) {
		panic(fmt.Sprintf("tracker: worker %d finishing work it was never assigned", workerID))
	}

	for _, chunk := range work.Chunks(batchSize) {
		if err := t.client.SRem(ctx, workKey, toMembers(chunk)...).Err(); err != nil {
			return fmt.Errorf("finish work: %w", err)
		}
	}
	return nil
}

// CrawlDone reports true only when the unexplored set and every worker's
// checked-out set are empty.
func (t *Tracker) CrawlDone(ctx context.Context) (bool, error) {
	unexplored, err := t.client.SCard(ctx, t.unexploredKey()).Result()
	if err != nil {
		return false, fmt.Errorf("count unexplored: %w", err)
	}
	if unexplored > 0 {
		return false, nil
	}

	iter := t.client.Scan(ctx, 0, t.keyname("checked_out_*"), 0).Iterator()
	for iter.Next(ctx) {
		checkedOut, err := t.client.SCard(ctx, iter.Val()).Result()
		if err != nil {
			return false, fmt.Errorf("count checked out: %w", err)
		}
		if checkedOut > 0 {
			return false, nil
		}
	}
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("scan checked out sets: %w", err)
	}
	return true, nil
}

// Shutdown closes the connection. Persisted state is kept so the crawl
// can resume later.
func (t *Tracker) Shutdown(context.Context) error {
	return t.client.Close()
}

func toMembers(items []crawl.Item) []interface{} {
	members := make([]interface{}, len(items))
	for i, item := range items {
		members[i] = item
	}
	return members
}
