package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/queue"
	"github.com/ricirt/meeting-notifier/internal/repository"
)

// stalePendingBatch caps how many stuck records one sweep re-enqueues.
const stalePendingBatch = 500

// leaseRequeuer is implemented by queues that lease jobs to workers.
type leaseRequeuer interface {
	RequeueExpired(ctx context.Context, leaseTimeout time.Duration) (int, error)
}

// RecoveryWorker periodically repairs work that fell through the cracks:
//   - jobs leased by a worker that died are returned to the queue;
//   - records still pending after the grace period are enqueued again
//     (enqueue is idempotent on the record id, so live jobs are untouched);
//   - queue depths are published to the metrics hook.
type RecoveryWorker struct {
	repo         repository.NotificationRepository
	q            queue.Queue
	interval     time.Duration
	grace        time.Duration
	leaseTimeout time.Duration
	maxAttempts  int
	onDepths     func(queue.Depths)
	logger       *zap.Logger
}

func NewRecoveryWorker(
	repo repository.NotificationRepository,
	q queue.Queue,
	interval, grace, leaseTimeout time.Duration,
	maxAttempts int,
	onDepths func(queue.Depths),
	logger *zap.Logger,
) *RecoveryWorker {
	if onDepths == nil {
		onDepths = func(queue.Depths) {}
	}
	return &RecoveryWorker{
		repo: repo, q: q, interval: interval, grace: grace,
		leaseTimeout: leaseTimeout, maxAttempts: maxAttempts,
		onDepths: onDepths, logger: logger,
	}
}

// Run ticks every interval until ctx is cancelled.
func (rw *RecoveryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.logger.Info("recovery worker started", zap.Duration("interval", rw.interval))

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("recovery worker stopping")
			return
		case <-ticker.C:
			rw.Sweep(ctx)
		}
	}
}

// Sweep runs one recovery pass.
func (rw *RecoveryWorker) Sweep(ctx context.Context) {
	if lr, ok := rw.q.(leaseRequeuer); ok && rw.leaseTimeout > 0 {
		n, err := lr.RequeueExpired(ctx, rw.leaseTimeout)
		if err != nil {
			rw.logger.Error("requeue expired leases", zap.Error(err))
		} else if n > 0 {
			rw.logger.Warn("requeued jobs with expired leases", zap.Int("count", n))
		}
	}

	rw.requeueStale(ctx)

	depths, err := rw.q.Depths(ctx)
	if err != nil {
		rw.logger.Error("read queue depths", zap.Error(err))
		return
	}
	rw.onDepths(depths)
}

func (rw *RecoveryWorker) requeueStale(ctx context.Context) {
	notifications, err := rw.repo.FindStalePending(ctx, time.Now().UTC().Add(-rw.grace), stalePendingBatch)
	if err != nil {
		rw.logger.Error("find stale pending", zap.Error(err))
		return
	}

	for _, n := range notifications {
		if err := rw.q.Enqueue(ctx, domain.NewJob(n, rw.maxAttempts)); err != nil {
			rw.logger.Warn("could not re-enqueue pending notification",
				zap.String("id", n.ID), zap.Error(err))
		}
	}

	if len(notifications) > 0 {
		rw.logger.Info("re-enqueued stale pending notifications", zap.Int("count", len(notifications)))
	}
}
