package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/meeting-notifier/internal/config"
	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/queue"
	"github.com/ricirt/meeting-notifier/internal/ratelimiter"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnDelivered func(channel domain.Channel, latency time.Duration)
	OnFailed    func(channel domain.Channel, reason string)
	OnRetried   func(channel domain.Channel)
}

func (h MetricHooks) withDefaults() MetricHooks {
	if h.OnDelivered == nil {
		h.OnDelivered = func(domain.Channel, time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.Channel, string) {}
	}
	if h.OnRetried == nil {
		h.OnRetried = func(domain.Channel) {}
	}
	return h
}

// Pool manages the lifecycle of all workers.
// All workers share the same queue; the queue handles priority ordering.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates cfg.Workers identical workers. The channel distinction is
// handled by the rate limiter and the job's Channel field.
func NewPool(
	cfg *config.Config,
	q queue.Queue,
	dispatcher Dispatcher,
	recorder Recorder,
	limiter *ratelimiter.ChannelLimiters,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	policy := queue.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     queue.ExponentialBackoff(cfg.BackoffBase),
	}

	workers := make([]*Worker, cfg.Workers)
	for i := range workers {
		workers[i] = NewWorker(
			i, q, dispatcher, recorder, limiter, policy,
			cfg.AttemptTimeout,
			logger.With(zap.Int("worker_id", i)),
			hooks,
		)
	}

	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// The provided ctx is forwarded to every worker; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
// Call this after cancelling the context to ensure in-flight attempts finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}
