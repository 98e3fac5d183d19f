package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisQueue is a reliable queue on Redis lists: job ids move from a pending
// list to a processing list with BLMOVE, each delivery takes a lease key with
// the visibility timeout as its TTL, and a background reaper returns jobs
// whose lease expired to the pending list. Job bodies live in their own keys
// so redeliveries reuse the identical payload and id.
//
// Key layout (prefix "queue:chat"):
//
//	queue:chat:pending        LIST of job ids, LPUSH/BLMOVE-RIGHT
//	queue:chat:processing     LIST of in-flight job ids
//	queue:chat:dead           LIST of dead-lettered job ids
//	queue:chat:job:{id}       STRING, JSON job body
//	queue:chat:attempts:{id}  STRING counter of deliveries
//	queue:chat:lease:{id}     STRING consumer id, EX = visibility timeout
type RedisQueue struct {
	client     *redis.Client
	prefix     string
	visibility time.Duration
	maxAttempt int
	block      time.Duration
	deadTTL    time.Duration
	consumerID string

	// suspected holds processing ids seen once without a lease. A fresh
	// delivery briefly has no lease between BLMOVE and the lease Set, so
	// the reaper only requeues ids still lease-less on a second scan.
	mu        sync.Mutex
	suspected map[string]struct{}

	reapCancel context.CancelFunc
	reapDone   chan struct{}
	closeOnce  sync.Once
}

// RedisQueueOptions tunes a RedisQueue.
type RedisQueueOptions struct {
	// Prefix namespaces all keys; defaults to "queue:chat".
	Prefix string
	// Visibility is the lease duration before an unacked delivery is
	// returned to pending. Must be longer than the worst-case job.
	Visibility time.Duration
	// MaxAttempts caps deliveries per job before dead-lettering.
	MaxAttempts int
	// Block bounds each BLMOVE poll so Dequeue honors context cancellation.
	Block time.Duration
	// DeadTTL bounds how long dead-lettered job bodies stay inspectable
	// before Redis expires them.
	DeadTTL time.Duration
}

// withDefaults fills unset options with production defaults.
func (o RedisQueueOptions) withDefaults() RedisQueueOptions {
	o.Prefix = strings.TrimSpace(o.Prefix)
	if o.Prefix == "" {
		o.Prefix = "queue:chat"
	}
	if o.Visibility <= 0 {
		o.Visibility = time.Minute
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.Block <= 0 {
		o.Block = 5 * time.Second
	}
	if o.DeadTTL <= 0 {
		o.DeadTTL = 7 * 24 * time.Hour
	}
	return o
}

// NewRedisQueue constructs a RedisQueue and starts its lease reaper.
func NewRedisQueue(client *redis.Client, opts RedisQueueOptions) *RedisQueue {
	opts = opts.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	q := &RedisQueue{
		client:     client,
		prefix:     opts.Prefix,
		visibility: opts.Visibility,
		maxAttempt: opts.MaxAttempts,
		block:      opts.Block,
		deadTTL:    opts.DeadTTL,
		consumerID: uuid.NewString(),
		suspected:  make(map[string]struct{}),
		reapCancel: cancel,
		reapDone:   make(chan struct{}),
	}
	go q.reapLoop(ctx)
	return q
}

func (q *RedisQueue) pendingKey() string    { return q.prefix + ":pending" }
func (q *RedisQueue) processingKey() string { return q.prefix + ":processing" }
func (q *RedisQueue) deadKey() string       { return q.prefix + ":dead" }
func (q *RedisQueue) jobKey(id string) string {
	return q.prefix + ":job:" + id
}
func (q *RedisQueue) attemptsKey(id string) string {
	return q.prefix + ":attempts:" + id
}
func (q *RedisQueue) leaseKey(id string) string {
	return q.prefix + ":lease:" + id
}

// Enqueue durably records the payload. The job body is written before the id
// becomes visible on the pending list, so a consumer can never observe an id
// without a body unless the job was already completed.
func (q *RedisQueue) Enqueue(ctx context.Context, p Payload) (string, error) {
	job := Job{
		ID:         uuid.NewString(),
		Payload:    p,
		EnqueuedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	if err := q.client.Set(ctx, q.jobKey(job.ID), raw, 0).Err(); err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, q.pendingKey(), job.ID).Err(); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Dequeue blocks until a job is available or ctx is done. Each delivery moves
// the id onto the processing list, takes a lease, and bumps the attempt
// counter.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := q.client.BLMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT", q.block).Result()
		if errors.Is(err, redis.Nil) {
			continue // poll expired, re-check ctx
		}
		if err != nil {
			return nil, err
		}

		job, err := q.claim(ctx, id)
		if err != nil {
			return nil, err
		}
		if job == nil {
			// Body missing (completed elsewhere); drop the orphan id.
			q.client.LRem(ctx, q.processingKey(), 1, id)
			continue
		}
		return job, nil
	}
}

// claim takes the lease and loads the job body for a freshly moved id.
func (q *RedisQueue) claim(ctx context.Context, id string) (*Job, error) {
	if err := q.client.Set(ctx, q.leaseKey(id), q.consumerID, q.visibility).Err(); err != nil {
		return nil, err
	}
	attempts, err := q.client.Incr(ctx, q.attemptsKey(id)).Result()
	if err != nil {
		return nil, err
	}
	raw, err := q.client.Get(ctx, q.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		q.client.Del(ctx, q.leaseKey(id), q.attemptsKey(id))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	job.Attempts = int(attempts)
	return &job, nil
}

// Ack drops the job entirely: processing entry, body, lease, and counter.
func (q *RedisQueue) Ack(ctx context.Context, jobID string) error {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, jobID)
	pipe.Del(ctx, q.jobKey(jobID), q.leaseKey(jobID), q.attemptsKey(jobID))
	_, err := pipe.Exec(ctx)
	q.forget(jobID)
	return err
}

// Nack releases the lease and either re-queues the job (retryable, attempts
// remaining) or parks it on the dead-letter list. The body is kept either way
// so the id stays stable across retries and dead jobs stay inspectable. Dead
// job state carries a TTL so an unattended dead list cannot grow keys forever.
func (q *RedisQueue) Nack(ctx context.Context, jobID string, retryable bool) error {
	attempts, err := q.client.Get(ctx, q.attemptsKey(jobID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, jobID)
	pipe.Del(ctx, q.leaseKey(jobID))
	if retryable && attempts < int64(q.maxAttempt) {
		pipe.LPush(ctx, q.pendingKey(), jobID)
	} else {
		pipe.LPush(ctx, q.deadKey(), jobID)
		pipe.Expire(ctx, q.jobKey(jobID), q.deadTTL)
		pipe.Expire(ctx, q.attemptsKey(jobID), q.deadTTL)
	}
	_, err = pipe.Exec(ctx)
	q.forget(jobID)
	return err
}

// Close stops the lease reaper. Pending and in-flight jobs remain in Redis.
func (q *RedisQueue) Close() error {
	q.closeOnce.Do(func() {
		q.reapCancel()
		<-q.reapDone
	})
	return nil
}

// reapLoop periodically scans the processing list and returns jobs with
// expired leases to the pending list. Scanning at half the visibility timeout
// bounds the extra redelivery delay after a consumer crash.
func (q *RedisQueue) reapLoop(ctx context.Context) {
	defer close(q.reapDone)
	interval := q.visibility / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := q.reapExpired(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("queue: lease reap failed")
			}
		}
	}
}

// reapExpired requeues processing ids whose lease stayed absent across two
// consecutive scans. The first lease-less sighting only marks the id: a
// consumer that just BLMOVE'd it may not have written its lease yet, and
// requeueing in that window would double-deliver.
func (q *RedisQueue) reapExpired(ctx context.Context) error {
	ids, err := q.client.LRange(ctx, q.processingKey(), 0, -1).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		n, err := q.client.Exists(ctx, q.leaseKey(id)).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			q.forget(id)
			continue
		}
		if !q.suspect(id) {
			continue // grace scan, recheck next tick
		}
		// Lease gone across two scans: the consumer died. LRem guards
		// against racing another reaper; only the remover requeues.
		removed, err := q.client.LRem(ctx, q.processingKey(), 1, id).Result()
		if err != nil {
			return err
		}
		q.forget(id)
		if removed > 0 {
			if err := q.client.LPush(ctx, q.pendingKey(), id).Err(); err != nil {
				return err
			}
			log.Info().Str("job_id", id).Msg("queue: requeued expired lease")
		}
	}
	return nil
}

// suspect records a lease-less sighting of id and reports whether it had
// already been recorded, meaning the grace scan has passed.
func (q *RedisQueue) suspect(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, seen := q.suspected[id]; seen {
		return true
	}
	q.suspected[id] = struct{}{}
	return false
}

// forget clears id's lease-less marker.
func (q *RedisQueue) forget(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.suspected, id)
}
