package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

// MemoryQueue dispatches jobs to one of three buffered channels based on
// priority. It is the single-process backend: nothing survives a restart.
//
// Buffer sizes reflect expected traffic ratios:
//
//	Urgent: 1 000  must never accumulate; a small buffer pushes back quickly
//	High:   2 000
//	Normal: 5 000  bulk of traffic
//
// Workers dequeue via a cascading select which guarantees urgent jobs are
// served before high, and high before normal, while still letting an idle
// worker sleep instead of spinning.
type MemoryQueue struct {
	urgent chan *domain.Job
	high   chan *domain.Job
	normal chan *domain.Job

	mu      sync.Mutex
	known   map[string]struct{}
	timers  map[string]*time.Timer
	active  int
	delayed int
	dead    int

	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryQueue() *MemoryQueue {
	return newMemoryQueue(1000, 2000, 5000)
}

// NewMemoryQueueWithCapacity gives every priority class the same buffer size.
func NewMemoryQueueWithCapacity(n int) *MemoryQueue {
	return newMemoryQueue(n, n, n)
}

func newMemoryQueue(urgent, high, normal int) *MemoryQueue {
	return &MemoryQueue{
		urgent: make(chan *domain.Job, urgent),
		high:   make(chan *domain.Job, high),
		normal: make(chan *domain.Job, normal),
		known:  make(map[string]struct{}),
		timers: make(map[string]*time.Timer),
		done:   make(chan struct{}),
	}
}

func (q *MemoryQueue) lane(p domain.Priority) (chan *domain.Job, error) {
	switch p {
	case domain.PriorityUrgent:
		return q.urgent, nil
	case domain.PriorityHigh:
		return q.high, nil
	case domain.PriorityNormal:
		return q.normal, nil
	}
	return nil, fmt.Errorf("unknown priority %q", p)
}

// Enqueue places a job on its priority channel.
// It is non-blocking: if the target channel is full, ErrQueueFull is returned
// immediately rather than blocking the caller (the HTTP handler).
func (q *MemoryQueue) Enqueue(_ context.Context, job *domain.Job) error {
	ch, err := q.lane(job.Priority)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isClosed() {
		return domain.ErrQueueClosed
	}
	if _, ok := q.known[job.ID]; ok {
		return nil
	}

	select {
	case ch <- job:
		q.known[job.ID] = struct{}{}
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until a job is available, ctx is cancelled or the queue is
// closed.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	job, err := q.next(ctx)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	q.active++
	q.mu.Unlock()
	return job, nil
}

func (q *MemoryQueue) next(ctx context.Context) (*domain.Job, error) {
	// Step 1: drain urgent before anything else.
	select {
	case job := <-q.urgent:
		return job, nil
	default:
	}

	// Step 2: urgent and high ahead of normal.
	select {
	case job := <-q.urgent:
		return job, nil
	case job := <-q.high:
		return job, nil
	default:
	}

	// Step 3: everything is empty; wait for whichever lane fills first.
	select {
	case job := <-q.urgent:
		return job, nil
	case job := <-q.high:
		return job, nil
	case job := <-q.normal:
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, domain.ErrQueueClosed
	}
}

func (q *MemoryQueue) Ack(_ context.Context, job *domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.known, job.ID)
	q.release()
	return nil
}

// Retry re-offers the job on its lane once delay has elapsed.
func (q *MemoryQueue) Retry(_ context.Context, job *domain.Job, delay time.Duration) error {
	ch, err := q.lane(job.Priority)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isClosed() {
		return domain.ErrQueueClosed
	}
	q.release()
	q.delayed++

	q.timers[job.ID] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, job.ID)
		q.delayed--
		q.mu.Unlock()

		select {
		case ch <- job:
		case <-q.done:
		}
	})
	return nil
}

func (q *MemoryQueue) Fail(_ context.Context, job *domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.known, job.ID)
	q.release()
	q.dead++
	return nil
}

func (q *MemoryQueue) Depths(_ context.Context) (Depths, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Depths{
		Ready: map[domain.Priority]int{
			domain.PriorityUrgent: len(q.urgent),
			domain.PriorityHigh:   len(q.high),
			domain.PriorityNormal: len(q.normal),
		},
		Delayed: q.delayed,
		Active:  q.active,
		Dead:    q.dead,
	}, nil
}

// Close stops pending retry timers and wakes blocked consumers.
// Jobs still buffered are dropped.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		for id, t := range q.timers {
			t.Stop()
			delete(q.timers, id)
		}
		close(q.done)
		q.mu.Unlock()
	})
	return nil
}

func (q *MemoryQueue) isClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// release must be called with mu held.
func (q *MemoryQueue) release() {
	if q.active > 0 {
		q.active--
	}
}

var _ Queue = (*MemoryQueue)(nil)
