// Package worker implements the AI response worker pool: long-lived consumers
// that drain the job queue, call the external generation provider, and append
// the reply as an assistant message in the job's chatroom.
//
// The pool runs independently of request handling (its own process via
// cmd/worker) and coordinates with producers only through the durable queue.
// Mutual exclusion between workers comes from the queue's lease mechanism,
// not from any application-level locking.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"chatroom-backend/internal/ai"
	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/domain"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/repo"
)

// Placeholder replies persisted when generation cannot succeed. The job is
// acked in both cases; retrying would either storm the provider (quota) or
// fail identically (permanent).
const (
	quotaFallbackReply    = "The AI service is temporarily unavailable (quota exceeded). Please try again later."
	permanentFailureReply = "The AI service could not process this message."
)

var (
	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_jobs_processed_total",
			Help: "Total AI-response jobs processed, by outcome.",
		},
		[]string{"outcome"}, // completed|quota|permanent|retried|failed
	)
	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_job_duration_seconds",
			Help:    "Time spent processing one AI-response job.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(jobsProcessed, jobDuration)
}

// Worker drains the job queue with a pool of concurrent consumers.
type Worker struct {
	DB       *gorm.DB
	Queue    queue.Queue
	Provider ai.Provider
	Cache    cache.ChatroomCache

	// Concurrency is the pool size; values < 1 are coerced to 1.
	Concurrency int

	// MaxGenerateRetries bounds in-process retries of transient provider
	// failures before the delivery is nacked back to the queue.
	MaxGenerateRetries uint64
}

// Run blocks draining the queue until ctx is cancelled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	n := w.Concurrency
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			w.consume(ctx)
		}()
	}
	wg.Wait()
}

// consume is one worker's dequeue loop.
func (w *Worker) consume(ctx context.Context) {
	for {
		job, err := w.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, queue.ErrClosed) {
				return
			}
			log.Error().Err(err).Msg("worker: dequeue failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		w.process(ctx, job)
	}
}

// process handles a single delivery end to end: generate, persist, settle.
func (w *Worker) process(ctx context.Context, job *queue.Job) {
	tr := otel.Tracer("worker")
	ctx, span := tr.Start(ctx, "ProcessJob",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("chatroom.id", job.Payload.ChatroomID),
			attribute.Int("job.attempts", job.Attempts),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() { jobDuration.Observe(time.Since(start).Seconds()) }()

	reply, err := w.generate(ctx, job.Payload.Content)
	switch {
	case err == nil:
		if perr := w.persistReply(ctx, job, reply); perr != nil {
			// Store unavailable: transient, let the queue redeliver.
			log.Error().Err(perr).Str("job_id", job.ID).Msg("worker: persist failed")
			w.nack(ctx, job, "retried")
			return
		}
		w.ack(ctx, job, "completed")

	case errors.Is(err, ai.ErrQuotaExceeded):
		// Completed-with-placeholder to avoid retry storms against an
		// exhausted quota.
		if perr := w.persistReply(ctx, job, quotaFallbackReply); perr != nil {
			log.Error().Err(perr).Str("job_id", job.ID).Msg("worker: persist failed")
			w.nack(ctx, job, "retried")
			return
		}
		w.ack(ctx, job, "quota")

	case errors.Is(err, ai.ErrMalformedRequest):
		if perr := w.persistReply(ctx, job, permanentFailureReply); perr != nil {
			log.Error().Err(perr).Str("job_id", job.ID).Msg("worker: persist failed")
			w.nack(ctx, job, "retried")
			return
		}
		w.ack(ctx, job, "permanent")

	default:
		// Transient even after in-process retries; the queue applies the
		// attempt budget and dead-letters when it is spent.
		log.Warn().Err(err).Str("job_id", job.ID).Int("attempts", job.Attempts).Msg("worker: generation failed, requeueing")
		w.nack(ctx, job, "retried")
	}
}

// generate calls the provider with a short exponential backoff around
// transient failures. Quota and malformed errors abort immediately.
func (w *Worker) generate(ctx context.Context, prompt string) (string, error) {
	retries := w.MaxGenerateRetries
	if retries == 0 {
		retries = 2
	}

	var reply string
	op := func() error {
		out, err := w.Provider.Generate(ctx, prompt)
		if err != nil {
			if errors.Is(err, ai.ErrQuotaExceeded) || errors.Is(err, ai.ErrMalformedRequest) {
				return backoff.Permanent(err)
			}
			return err
		}
		reply = out
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return "", perm.Err
		}
		return "", err
	}
	return reply, nil
}

// persistReply appends the assistant message and bumps the room's UpdatedAt
// in one transaction, then invalidates the owner's listing cache. The
// triggering user message is already durable, so ordering within the room is
// guaranteed by construction.
func (w *Worker) persistReply(ctx context.Context, job *queue.Job, content string) error {
	err := w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(tx, job.Payload.ChatroomID, job.Payload.UserID, domain.RoleAssistant, content)
		if err != nil {
			return err
		}
		return repo.TouchChatroom(ctx, tx, job.Payload.ChatroomID, m.CreatedAt)
	})
	if err != nil {
		return err
	}
	if w.Cache != nil {
		if cerr := w.Cache.Invalidate(ctx, job.Payload.UserID); cerr != nil {
			log.Warn().Err(cerr).Str("user_id", job.Payload.UserID).Msg("worker: cache invalidation failed")
		}
	}
	return nil
}

func (w *Worker) ack(ctx context.Context, job *queue.Job, outcome string) {
	if err := w.Queue.Ack(ctx, job.ID); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("worker: ack failed")
		return
	}
	jobsProcessed.WithLabelValues(outcome).Inc()
	log.Info().Str("job_id", job.ID).Str("outcome", outcome).Msg("worker: job settled")
}

func (w *Worker) nack(ctx context.Context, job *queue.Job, outcome string) {
	if err := w.Queue.Nack(ctx, job.ID, true); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("worker: nack failed")
		return
	}
	jobsProcessed.WithLabelValues(outcome).Inc()
}
