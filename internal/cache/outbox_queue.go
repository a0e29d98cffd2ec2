package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// OutboxQueue stores pending writes to the Store Gateway until they are
// acknowledged. Entries of one aggregate are replayed in creation order: Claim
// only hands out an entry when no older entry of the same aggregate remains,
// failed ones included. Claimed entries are leased so concurrent drains do not
// replay them twice.
type OutboxQueue interface {
	Enqueue(ctx context.Context, entry *models.OutboxEntry) error
	Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.OutboxEntry, error)
	Ack(ctx context.Context, id string) error
	Reschedule(ctx context.Context, entry *models.OutboxEntry) error
	MarkFailed(ctx context.Context, entry *models.OutboxEntry) error
	Requeue(ctx context.Context, id string, now time.Time) (*models.OutboxEntry, error)
	Get(ctx context.Context, id string) (*models.OutboxEntry, error)
	List(ctx context.Context) ([]models.OutboxEntry, error)
	Stats(ctx context.Context) (pending, failed int, err error)
}

const (
	outboxEntriesKey   = "outbox:entries"
	outboxDueKey       = "outbox:due"
	outboxFailedKey    = "outbox:failed"
	outboxAggregateKey = "outbox:aggof"
	outboxAggPrefix    = "outbox:agg:"

	// claimScanLimit bounds how many due ids one claim inspects.
	claimScanLimit = 1000
)

// claimScript leases up to ARGV[2] due ids whose entry heads its aggregate
// queue by pushing their score to ARGV[3]. Due ids blocked behind an older
// entry are skipped page by page, at most ARGV[5] ids per call.
var claimScript = redis.NewScript(`
local limit = tonumber(ARGV[2])
local maxScan = tonumber(ARGV[5])
local page = math.max(limit, 64)
local claimed = {}
local heads = {}
local offset = 0
while #claimed < limit and offset < maxScan do
	local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', offset, page)
	if #ids == 0 then
		break
	end
	for _, id in ipairs(ids) do
		local agg = redis.call('HGET', KEYS[2], id)
		local head = id
		if agg then
			head = heads[agg]
			if head == nil then
				head = redis.call('ZRANGE', ARGV[4] .. agg, 0, 0)[1] or id
				heads[agg] = head
			end
		end
		if head == id then
			table.insert(claimed, id)
			if #claimed >= limit then
				break
			end
		end
	end
	offset = offset + #ids
end
for _, id in ipairs(claimed) do
	redis.call('ZADD', KEYS[1], ARGV[3], id)
end
return claimed
`)

func aggregateKey(aggregateID string) string {
	return outboxAggPrefix + aggregateID
}

// RedisOutboxQueue keeps entries in a hash, due ids in a sorted set scored by
// next attempt time (unix ms) and failed ids in a set.
type RedisOutboxQueue struct {
	redis *RedisClient
}

func NewRedisOutboxQueue(redis *RedisClient) *RedisOutboxQueue {
	return &RedisOutboxQueue{redis: redis}
}

func (q *RedisOutboxQueue) Enqueue(ctx context.Context, entry *models.OutboxEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal outbox entry failed: %w", err)
	}
	_, err = q.redis.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, outboxEntriesKey, entry.ID, data)
		p.HSet(ctx, outboxAggregateKey, entry.ID, entry.AggregateID)
		p.ZAdd(ctx, aggregateKey(entry.AggregateID), redis.Z{Score: float64(entry.CreatedAt.UnixMicro()), Member: entry.ID})
		p.ZAdd(ctx, outboxDueKey, redis.Z{Score: float64(entry.NextAttemptAt.UnixMilli()), Member: entry.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue outbox entry failed: %w", err)
	}
	return nil
}

func (q *RedisOutboxQueue) Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.OutboxEntry, error) {
	ids, err := claimScript.Run(ctx, q.redis.client, []string{outboxDueKey, outboxAggregateKey},
		now.UnixMilli(), limit, now.Add(lease).UnixMilli(), outboxAggPrefix, claimScanLimit).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claim outbox entries failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vals, err := q.redis.client.HMGet(ctx, outboxEntriesKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load outbox entries failed: %w", err)
	}

	entries := make([]models.OutboxEntry, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Orphaned id with no body.
			q.redis.client.ZRem(ctx, outboxDueKey, ids[i])
			continue
		}
		var e models.OutboxEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("unmarshal outbox entry %s failed: %w", ids[i], err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (q *RedisOutboxQueue) Ack(ctx context.Context, id string) error {
	agg, err := q.redis.client.HGet(ctx, outboxAggregateKey, id).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	_, err = q.redis.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, outboxEntriesKey, id)
		p.HDel(ctx, outboxAggregateKey, id)
		if agg != "" {
			p.ZRem(ctx, aggregateKey(agg), id)
		}
		p.ZRem(ctx, outboxDueKey, id)
		p.SRem(ctx, outboxFailedKey, id)
		return nil
	})
	return err
}

func (q *RedisOutboxQueue) Reschedule(ctx context.Context, entry *models.OutboxEntry) error {
	return q.Enqueue(ctx, entry)
}

func (q *RedisOutboxQueue) MarkFailed(ctx context.Context, entry *models.OutboxEntry) error {
	entry.Status = models.OutboxFailed
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal outbox entry failed: %w", err)
	}
	_, err = q.redis.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, outboxEntriesKey, entry.ID, data)
		p.ZRem(ctx, outboxDueKey, entry.ID)
		p.SAdd(ctx, outboxFailedKey, entry.ID)
		return nil
	})
	return err
}

func (q *RedisOutboxQueue) Requeue(ctx context.Context, id string, now time.Time) (*models.OutboxEntry, error) {
	entry, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.OutboxFailed {
		return nil, utils.ErrSyncEntryNotFailed
	}
	entry.Status = models.OutboxPending
	entry.Attempts = 0
	entry.NextAttemptAt = now

	if err := q.redis.client.SRem(ctx, outboxFailedKey, id).Err(); err != nil {
		return nil, err
	}
	if err := q.Enqueue(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (q *RedisOutboxQueue) Get(ctx context.Context, id string) (*models.OutboxEntry, error) {
	s, err := q.redis.client.HGet(ctx, outboxEntriesKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, utils.ErrOutboxNotFound
	}
	if err != nil {
		return nil, err
	}
	var e models.OutboxEntry
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return nil, fmt.Errorf("unmarshal outbox entry failed: %w", err)
	}
	return &e, nil
}

func (q *RedisOutboxQueue) List(ctx context.Context) ([]models.OutboxEntry, error) {
	all, err := q.redis.client.HGetAll(ctx, outboxEntriesKey).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]models.OutboxEntry, 0, len(all))
	for _, s := range all {
		var e models.OutboxEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("unmarshal outbox entry failed: %w", err)
		}
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries, nil
}

func (q *RedisOutboxQueue) Stats(ctx context.Context) (int, int, error) {
	pending, err := q.redis.client.ZCard(ctx, outboxDueKey).Result()
	if err != nil {
		return 0, 0, err
	}
	failed, err := q.redis.client.SCard(ctx, outboxFailedKey).Result()
	if err != nil {
		return 0, 0, err
	}
	return int(pending), int(failed), nil
}

func sortEntries(entries []models.OutboxEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return olderEntry(&entries[i], &entries[j])
	})
}

func olderEntry(a, b *models.OutboxEntry) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// MemoryOutboxQueue is the in-process OutboxQueue used offline and in tests.
type MemoryOutboxQueue struct {
	mu      sync.Mutex
	entries map[string]*models.OutboxEntry
	leased  map[string]time.Time
}

func NewMemoryOutboxQueue() *MemoryOutboxQueue {
	return &MemoryOutboxQueue{
		entries: make(map[string]*models.OutboxEntry),
		leased:  make(map[string]time.Time),
	}
}

func (q *MemoryOutboxQueue) Enqueue(_ context.Context, entry *models.OutboxEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := *entry
	q.entries[e.ID] = &e
	delete(q.leased, e.ID)
	return nil
}

func (q *MemoryOutboxQueue) Claim(_ context.Context, now time.Time, limit int, lease time.Duration) ([]models.OutboxEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heads := make(map[string]*models.OutboxEntry)
	for _, e := range q.entries {
		h, ok := heads[e.AggregateID]
		if !ok || olderEntry(e, h) {
			heads[e.AggregateID] = e
		}
	}

	var due []models.OutboxEntry
	for id, e := range q.entries {
		if e.Status != models.OutboxPending || e.NextAttemptAt.After(now) {
			continue
		}
		if heads[e.AggregateID].ID != id {
			continue
		}
		if until, ok := q.leased[id]; ok && until.After(now) {
			continue
		}
		due = append(due, *e)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for _, e := range due {
		q.leased[e.ID] = now.Add(lease)
	}
	return due, nil
}

func (q *MemoryOutboxQueue) Ack(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.entries, id)
	delete(q.leased, id)
	return nil
}

func (q *MemoryOutboxQueue) Reschedule(ctx context.Context, entry *models.OutboxEntry) error {
	return q.Enqueue(ctx, entry)
}

func (q *MemoryOutboxQueue) MarkFailed(ctx context.Context, entry *models.OutboxEntry) error {
	entry.Status = models.OutboxFailed
	return q.Enqueue(ctx, entry)
}

func (q *MemoryOutboxQueue) Requeue(_ context.Context, id string, now time.Time) (*models.OutboxEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return nil, utils.ErrOutboxNotFound
	}
	if e.Status != models.OutboxFailed {
		return nil, utils.ErrSyncEntryNotFailed
	}
	e.Status = models.OutboxPending
	e.Attempts = 0
	e.NextAttemptAt = now
	cp := *e
	return &cp, nil
}

func (q *MemoryOutboxQueue) Get(_ context.Context, id string) (*models.OutboxEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return nil, utils.ErrOutboxNotFound
	}
	cp := *e
	return &cp, nil
}

func (q *MemoryOutboxQueue) List(_ context.Context) ([]models.OutboxEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := make([]models.OutboxEntry, 0, len(q.entries))
	for _, e := range q.entries {
		entries = append(entries, *e)
	}
	sortEntries(entries)
	return entries, nil
}

func (q *MemoryOutboxQueue) Stats(_ context.Context) (int, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var pending, failed int
	for _, e := range q.entries {
		if e.Status == models.OutboxFailed {
			failed++
		} else {
			pending++
		}
	}
	return pending, failed, nil
}
