// Package queue decouples intake from delivery. A Queue orders jobs by
// priority class (urgent, high, normal) and FIFO within a class, and lets the
// consumer decide per attempt whether a job is done, retried later or dead.
package queue

import (
	"context"
	"time"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

// Queue is the contract shared by the in-process and Redis-backed queues.
//
// Delivery is at-least-once: a job handed out by Dequeue stays owned by the
// queue until the consumer calls exactly one of Ack, Retry or Fail.
type Queue interface {
	// Enqueue adds a job. Enqueueing a job whose ID the queue already holds
	// is a no-op.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue blocks until a job is ready or ctx is done, in which case it
	// returns ctx.Err().
	Dequeue(ctx context.Context) (*domain.Job, error)

	// Ack forgets a successfully processed job.
	Ack(ctx context.Context, job *domain.Job) error

	// Retry makes the job ready again after delay. The caller is expected to
	// have advanced job.Attempt and set job.LastError.
	Retry(ctx context.Context, job *domain.Job, delay time.Duration) error

	// Fail moves the job to the dead-letter store; it is never retried.
	Fail(ctx context.Context, job *domain.Job) error

	// Depths reports how many jobs wait in each state.
	Depths(ctx context.Context) (Depths, error)

	Close() error
}

// Depths is a point-in-time snapshot of queue occupancy.
type Depths struct {
	Ready   map[domain.Priority]int `json:"ready"`
	Delayed int                     `json:"delayed"`
	Active  int                     `json:"active"`
	Dead    int                     `json:"dead"`
}

// Total is the number of jobs that will still be handed to a worker.
func (d Depths) Total() int {
	n := d.Delayed + d.Active
	for _, v := range d.Ready {
		n += v
	}
	return n
}
