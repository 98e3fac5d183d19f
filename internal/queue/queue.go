// Package queue implements the durable, at-least-once job queue that decouples
// message ingestion from AI-response generation. Producers enqueue a snapshot
// of (chatroom, user, content) and receive a job id; consumers block on
// Dequeue and must Ack or Nack every delivery.
//
// Delivery semantics are at-least-once: a consumer that crashes after Dequeue
// but before Ack holds a lease that expires after the visibility timeout, at
// which point the job becomes visible to other consumers again. Job ids are
// stable across redeliveries. Jobs that exhaust their attempt budget are
// parked on a dead-letter list instead of being retried forever.
//
// Two implementations exist: RedisQueue (production, survives process
// restarts) and MemoryQueue (tests and single-node development, identical
// semantics, no durability).
package queue

import (
	"context"
	"errors"
	"time"
)

// Payload is the unit of work snapshotted at enqueue time.
type Payload struct {
	ChatroomID string `json:"chatroom_id"`
	UserID     string `json:"user_id"`
	Content    string `json:"content"`
}

// Job is a delivered unit of work. Attempts counts deliveries of this job,
// including the current one.
type Job struct {
	ID         string    `json:"id"`
	Payload    Payload   `json:"payload"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ErrClosed is returned by blocking operations after Close.
var ErrClosed = errors.New("queue closed")

// Queue is the contract between the send-message path and the worker pool.
//
// Implementations must be safe for concurrent use; Dequeue may be called from
// many goroutines and no two consumers will receive the same delivery while
// its lease is live.
type Queue interface {
	// Enqueue durably records the payload and returns the new job's id.
	// Once Enqueue returns, the job survives a crash of the producer.
	Enqueue(ctx context.Context, p Payload) (string, error)
	// Dequeue blocks until a job is available, the context is cancelled, or
	// the queue is closed. The returned job is leased to the caller for the
	// visibility timeout.
	Dequeue(ctx context.Context) (*Job, error)
	// Ack marks the job completed and drops it from the queue.
	Ack(ctx context.Context, jobID string) error
	// Nack returns the job to the queue for redelivery when retryable and
	// the attempt budget allows; otherwise the job is dead-lettered.
	Nack(ctx context.Context, jobID string, retryable bool) error
	// Close releases background resources. Pending jobs remain durable in
	// implementations that persist them.
	Close() error
}
