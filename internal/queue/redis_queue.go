package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

// RedisQueue is the durable backend shared by every worker process.
//
// Layout under the configured prefix:
//
//	<p>:job:<id>          hash  {data: job JSON, lane: 1..3}
//	<p>:ready:<priority>  zset  id scored by enqueue sequence (FIFO per class)
//	<p>:delayed           zset  id scored by ready time (unix ms)
//	<p>:active            zset  id scored by lease start (unix ms)
//	<p>:dead              list  job JSON, newest first, capped
//	<p>:seq               counter
//
// Every state transition is a single Lua script, so a job is always in
// exactly one of ready, delayed or active while its hash exists.
type RedisQueue struct {
	rdb          *redis.Client
	prefix       string
	pollInterval time.Duration
	deadCap      int
	now          func() time.Time
}

// RedisQueueOptions tunes a RedisQueue. Zero values select the defaults.
type RedisQueueOptions struct {
	Prefix        string
	PollInterval  time.Duration
	DeadLetterCap int
}

func NewRedisQueue(rdb *redis.Client, opts RedisQueueOptions) *RedisQueue {
	if opts.Prefix == "" {
		opts.Prefix = "notifications:queue"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.DeadLetterCap <= 0 {
		opts.DeadLetterCap = 1000
	}
	return &RedisQueue{
		rdb:          rdb,
		prefix:       opts.Prefix,
		pollInterval: opts.PollInterval,
		deadCap:      opts.DeadLetterCap,
		now:          time.Now,
	}
}

func (q *RedisQueue) jobKey(id string) string { return q.prefix + ":job:" + id }
func (q *RedisQueue) jobPrefix() string       { return q.prefix + ":job:" }
func (q *RedisQueue) delayedKey() string      { return q.prefix + ":delayed" }
func (q *RedisQueue) activeKey() string       { return q.prefix + ":active" }
func (q *RedisQueue) deadKey() string         { return q.prefix + ":dead" }
func (q *RedisQueue) seqKey() string          { return q.prefix + ":seq" }

func (q *RedisQueue) readyKey(p domain.Priority) string {
	return q.prefix + ":ready:" + string(p)
}

// readyKeys are ordered by lane number: urgent=1, high=2, normal=3.
func (q *RedisQueue) readyKeys() []string {
	keys := make([]string, len(domain.Priorities))
	for i, p := range domain.Priorities {
		keys[i] = q.readyKey(p)
	}
	return keys
}

func lane(p domain.Priority) int { return p.Rank() + 1 }

func millis(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

// Enqueue stores the job and appends it to its priority lane.
// A job whose hash already exists is left untouched.
func (q *RedisQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	if !job.Priority.IsValid() {
		return fmt.Errorf("unknown priority %q", job.Priority)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	err = enqueueScript.Run(ctx, q.rdb,
		[]string{q.jobKey(job.ID), q.readyKey(job.Priority), q.seqKey()},
		job.ID, data, lane(job.Priority),
	).Err()
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue promotes due retries, then leases the head of the highest
// non-empty lane. When nothing is ready it polls every pollInterval.
func (q *RedisQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	keys := append(q.readyKeys(), q.delayedKey(), q.activeKey(), q.seqKey())
	for {
		res, err := dequeueScript.Run(ctx, q.rdb, keys, millis(q.now()), q.jobPrefix()).Text()
		switch {
		case err == nil:
			var job domain.Job
			if err := json.Unmarshal([]byte(res), &job); err != nil {
				return nil, fmt.Errorf("decode job: %w", err)
			}
			return &job, nil
		case errors.Is(err, redis.Nil):
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, fmt.Errorf("dequeue job: %w", err)
		}

		timer := time.NewTimer(q.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (q *RedisQueue) Ack(ctx context.Context, job *domain.Job) error {
	keys := append([]string{q.jobKey(job.ID), q.activeKey(), q.delayedKey()}, q.readyKeys()...)
	err := ackScript.Run(ctx, q.rdb, keys, job.ID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("ack job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Retry(ctx context.Context, job *domain.Job, delay time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	err = retryScript.Run(ctx, q.rdb,
		[]string{q.jobKey(job.ID), q.activeKey(), q.delayedKey()},
		job.ID, data, millis(q.now().Add(delay)),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("retry job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Fail(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	keys := append([]string{q.jobKey(job.ID), q.deadKey(), q.activeKey(), q.delayedKey()}, q.readyKeys()...)
	err = failScript.Run(ctx, q.rdb, keys, job.ID, data, q.deadCap).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// RequeueExpired returns jobs leased before now-leaseTimeout to their lane.
// A worker that crashed mid-attempt leaves its lease behind; this is what
// turns that crash into a second attempt instead of a lost job.
func (q *RedisQueue) RequeueExpired(ctx context.Context, leaseTimeout time.Duration) (int, error) {
	keys := append([]string{q.activeKey(), q.seqKey()}, q.readyKeys()...)
	n, err := requeueScript.Run(ctx, q.rdb, keys, millis(q.now().Add(-leaseTimeout)), q.jobPrefix()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("requeue expired leases: %w", err)
	}
	return n, nil
}

func (q *RedisQueue) Depths(ctx context.Context) (Depths, error) {
	pipe := q.rdb.Pipeline()
	ready := make(map[domain.Priority]*redis.IntCmd, len(domain.Priorities))
	for _, p := range domain.Priorities {
		ready[p] = pipe.ZCard(ctx, q.readyKey(p))
	}
	delayed := pipe.ZCard(ctx, q.delayedKey())
	active := pipe.ZCard(ctx, q.activeKey())
	dead := pipe.LLen(ctx, q.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Depths{}, fmt.Errorf("queue depths: %w", err)
	}

	d := Depths{
		Ready:   make(map[domain.Priority]int, len(ready)),
		Delayed: int(delayed.Val()),
		Active:  int(active.Val()),
		Dead:    int(dead.Val()),
	}
	for p, cmd := range ready {
		d.Ready[p] = int(cmd.Val())
	}
	return d, nil
}

// Close is a no-op: the Redis client is owned and closed by the caller.
func (q *RedisQueue) Close() error { return nil }

var _ Queue = (*RedisQueue)(nil)
