package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue implements Queue with process-local state and the same
// at-least-once semantics as RedisQueue: deliveries hold a lease, unacked
// leases expire and the job returns to pending, and exhausted jobs
// dead-letter. It provides no durability across restarts and exists for tests
// and single-node development.
type MemoryQueue struct {
	mu         sync.Mutex
	jobs       map[string]*Job
	attempts   map[string]int
	pending    []string
	inflight   map[string]*time.Timer
	dead       []string
	visibility time.Duration
	maxAttempt int
	notify     chan struct{}
	closeCh    chan struct{}
	closed     bool
}

// NewMemoryQueue constructs a MemoryQueue. Zero values fall back to a one
// minute visibility timeout and three attempts.
func NewMemoryQueue(visibility time.Duration, maxAttempts int) *MemoryQueue {
	if visibility <= 0 {
		visibility = time.Minute
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &MemoryQueue{
		jobs:       make(map[string]*Job),
		attempts:   make(map[string]int),
		inflight:   make(map[string]*time.Timer),
		visibility: visibility,
		maxAttempt: maxAttempts,
		notify:     make(chan struct{}, 1),
		closeCh:    make(chan struct{}),
	}
}

// Enqueue records the payload and wakes one blocked consumer.
func (q *MemoryQueue) Enqueue(_ context.Context, p Payload) (string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrClosed
	}
	job := &Job{ID: uuid.NewString(), Payload: p, EnqueuedAt: time.Now().UTC()}
	q.jobs[job.ID] = job
	q.pending = append(q.pending, job.ID)
	q.mu.Unlock()

	q.wake()
	return job.ID, nil
}

// Dequeue blocks until a job is available, ctx is done, or the queue closes.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}
		if len(q.pending) > 0 {
			id := q.pending[0]
			q.pending = q.pending[1:]
			job := q.jobs[id]
			if job == nil {
				q.mu.Unlock()
				continue
			}
			q.attempts[id]++
			delivered := *job
			delivered.Attempts = q.attempts[id]
			q.inflight[id] = time.AfterFunc(q.visibility, func() { q.expire(id) })
			q.mu.Unlock()
			return &delivered, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.closeCh:
			return nil, ErrClosed
		case <-q.notify:
		}
	}
}

// Ack completes the job and discards its state.
func (q *MemoryQueue) Ack(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.inflight[jobID]; ok {
		t.Stop()
		delete(q.inflight, jobID)
	}
	delete(q.jobs, jobID)
	delete(q.attempts, jobID)
	return nil
}

// Nack releases the delivery: retryable jobs with attempts remaining return
// to pending, everything else dead-letters.
func (q *MemoryQueue) Nack(_ context.Context, jobID string, retryable bool) error {
	q.mu.Lock()
	if t, ok := q.inflight[jobID]; ok {
		t.Stop()
		delete(q.inflight, jobID)
	}
	if _, ok := q.jobs[jobID]; !ok {
		q.mu.Unlock()
		return nil
	}
	if retryable && q.attempts[jobID] < q.maxAttempt {
		q.pending = append(q.pending, jobID)
		q.mu.Unlock()
		q.wake()
		return nil
	}
	q.dead = append(q.dead, jobID)
	q.mu.Unlock()
	return nil
}

// Close unblocks consumers and rejects further operations.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.closeCh)
		for id, t := range q.inflight {
			t.Stop()
			delete(q.inflight, id)
		}
	}
	q.mu.Unlock()
	return nil
}

// DeadLetters returns the ids currently parked on the dead-letter list.
func (q *MemoryQueue) DeadLetters() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.dead))
	copy(out, q.dead)
	return out
}

// ExpireLease force-expires a delivery's lease, simulating a consumer crash.
// Test helper; production redelivery runs off the visibility timer.
func (q *MemoryQueue) ExpireLease(jobID string) {
	q.expire(jobID)
}

// expire returns an unacked delivery to the pending list.
func (q *MemoryQueue) expire(jobID string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	t, ok := q.inflight[jobID]
	if !ok {
		q.mu.Unlock()
		return
	}
	t.Stop()
	delete(q.inflight, jobID)
	if _, live := q.jobs[jobID]; live {
		q.pending = append(q.pending, jobID)
	}
	q.mu.Unlock()
	q.wake()
}

// wake nudges one blocked Dequeue without ever blocking the caller.
func (q *MemoryQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
