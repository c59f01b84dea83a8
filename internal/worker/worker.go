package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/queue"
	"github.com/ricirt/meeting-notifier/internal/ratelimiter"
)

// Failure reasons reported to the OnFailed hook.
const (
	ReasonExhausted     = "exhausted"
	ReasonUndeliverable = "undeliverable"
)

// dequeueErrorPause is how long a worker waits after a queue backend error
// before polling again.
const dequeueErrorPause = time.Second

// Dispatcher delivers one attempt of a job.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *domain.Job) error
}

// Recorder writes the terminal outcome of a job back to its record.
type Recorder interface {
	Delivered(ctx context.Context, job *domain.Job) error
	Failed(ctx context.Context, job *domain.Job, reason string) error
}

// Worker is a single goroutine that continuously pulls jobs from the queue,
// applies per-channel rate limiting, dispatches, records the outcome and
// hands the job back to the queue as acked, retried or failed.
type Worker struct {
	id             int
	q              queue.Queue
	dispatcher     Dispatcher
	recorder       Recorder
	limiter        *ratelimiter.ChannelLimiters
	policy         queue.RetryPolicy
	attemptTimeout time.Duration
	logger         *zap.Logger

	// Metric callbacks injected by the pool; the worker never imports prometheus.
	hooks MetricHooks
}

// NewWorker constructs a worker. Nil hooks are replaced by no-ops.
func NewWorker(
	id int,
	q queue.Queue,
	dispatcher Dispatcher,
	recorder Recorder,
	limiter *ratelimiter.ChannelLimiters,
	policy queue.RetryPolicy,
	attemptTimeout time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Worker {
	return &Worker{
		id: id, q: q, dispatcher: dispatcher, recorder: recorder,
		limiter: limiter, policy: policy, attemptTimeout: attemptTimeout,
		logger: logger, hooks: hooks.withDefaults(),
	}
}

// Run blocks until ctx is cancelled or the queue is closed, processing one
// job per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Int("id", w.id))
	for {
		job, err := w.q.Dequeue(ctx)
		switch {
		case err == nil:
			w.process(ctx, job)
		case ctx.Err() != nil || errors.Is(err, domain.ErrQueueClosed):
			w.logger.Info("worker stopping", zap.Int("id", w.id))
			return
		default:
			w.logger.Error("dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(dequeueErrorPause):
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, job *domain.Job) {
	log := w.logger.With(
		zap.String("job_id", job.ID),
		zap.String("notification_id", job.NotificationID),
		zap.String("channel", string(job.Channel)),
		zap.String("type", string(job.Type)),
		zap.Int("attempt", job.Attempt),
	)

	// Queue bookkeeping must finish even when the worker is shutting down,
	// otherwise a completed send would be redelivered.
	settleCtx := context.WithoutCancel(ctx)

	// Block here until the per-channel rate limiter grants a token.
	if err := w.limiter.Wait(ctx, job.Channel); err != nil {
		// Shutting down before the attempt started: hand the job back untouched.
		if err := w.q.Retry(settleCtx, job, 0); err != nil {
			log.Error("failed to return job to queue", zap.Error(err))
		}
		return
	}

	start := time.Now()
	attemptCtx := ctx
	if w.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, w.attemptTimeout)
		defer cancel()
	}
	err := w.dispatcher.Dispatch(attemptCtx, job)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		w.delivered(settleCtx, log, job, elapsed)
	case ctx.Err() != nil:
		// Interrupted by shutdown; the attempt does not count.
		if err := w.q.Retry(settleCtx, job, 0); err != nil {
			log.Error("failed to return job to queue", zap.Error(err))
		}
	case errors.Is(err, domain.ErrUndeliverable):
		log.Warn("notification undeliverable", zap.Error(err))
		w.failed(settleCtx, log, job, err.Error(), ReasonUndeliverable)
	case w.policy.Exhausted(job):
		log.Warn("delivery attempts exhausted", zap.Error(err))
		w.failed(settleCtx, log, job, err.Error(), ReasonExhausted)
	default:
		w.retry(settleCtx, log, job, err)
	}
}

func (w *Worker) delivered(ctx context.Context, log *zap.Logger, job *domain.Job, elapsed time.Duration) {
	if err := w.recorder.Delivered(ctx, job); err != nil {
		// The record stays pending and the recovery worker enqueues it again.
		log.Error("failed to record delivery", zap.Error(err))
	}
	if err := w.q.Ack(ctx, job); err != nil {
		log.Error("failed to ack job", zap.Error(err))
	}
	w.hooks.OnDelivered(job.Channel, elapsed)
	log.Info("notification delivered", zap.Duration("latency", elapsed))
}

func (w *Worker) failed(ctx context.Context, log *zap.Logger, job *domain.Job, reason, label string) {
	job.LastError = reason
	if err := w.recorder.Failed(ctx, job, reason); err != nil {
		log.Error("failed to record failure", zap.Error(err))
	}
	if err := w.q.Fail(ctx, job); err != nil {
		log.Error("failed to dead-letter job", zap.Error(err))
	}
	w.hooks.OnFailed(job.Channel, label)
}

// retry schedules the next attempt with exponential backoff:
//
//	attempt 1 failed → base      (default 2 s)
//	attempt 2 failed → 2 * base  (default 4 s)
//	attempt N failed → base * 2^(N-1)
func (w *Worker) retry(ctx context.Context, log *zap.Logger, job *domain.Job, sendErr error) {
	delay := w.policy.Delay(job)
	job.Attempt++
	job.LastError = sendErr.Error()

	if err := w.q.Retry(ctx, job, delay); err != nil {
		log.Error("failed to schedule retry", zap.Error(err))
		return
	}
	w.hooks.OnRetried(job.Channel)
	log.Warn("delivery attempt failed, retrying",
		zap.Error(sendErr),
		zap.Duration("delay", delay),
		zap.Int("next_attempt", job.Attempt),
	)
}
