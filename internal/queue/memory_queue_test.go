package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/queue"
)

func job(id string, p domain.Priority) *domain.Job {
	return &domain.Job{ID: id, NotificationID: id, UserID: "u1", Channel: domain.ChannelSMS, Priority: p, Attempt: 1}
}

func TestMemoryQueue_BasicEnqueueDequeue(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	if err := q.Enqueue(ctx, job("1", domain.PriorityNormal)); err != nil {
		t.Fatal(err)
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("expected job, got %v", err)
	}
	if got.ID != "1" {
		t.Fatalf("expected id=1, got %s", got.ID)
	}
}

// TestMemoryQueue_PriorityOrder enqueues normal, urgent, high on an idle
// queue and expects urgent, high, normal back.
func TestMemoryQueue_PriorityOrder(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	_ = q.Enqueue(ctx, job("normal", domain.PriorityNormal))
	_ = q.Enqueue(ctx, job("urgent", domain.PriorityUrgent))
	_ = q.Enqueue(ctx, job("high", domain.PriorityHigh))

	for _, want := range []string{"urgent", "high", "normal"} {
		got, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != want {
			t.Fatalf("expected %q, got %q", want, got.ID)
		}
	}
}

func TestMemoryQueue_FIFOWithinClass(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_ = q.Enqueue(ctx, job(id, domain.PriorityHigh))
	}
	for _, want := range []string{"a", "b", "c"} {
		got, _ := q.Dequeue(ctx)
		if got.ID != want {
			t.Fatalf("expected %q, got %q", want, got.ID)
		}
	}
}

func TestMemoryQueue_DuplicateIDIgnored(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	_ = q.Enqueue(ctx, job("dup", domain.PriorityNormal))
	_ = q.Enqueue(ctx, job("dup", domain.PriorityNormal))

	d, _ := q.Depths(ctx)
	if d.Ready[domain.PriorityNormal] != 1 {
		t.Fatalf("expected one ready job, got %d", d.Ready[domain.PriorityNormal])
	}
}

// TestMemoryQueue_ContextCancellation verifies Dequeue returns ctx.Err()
// when the context is cancelled while blocking.
func TestMemoryQueue_ContextCancellation(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after context cancellation")
	}
}

func TestMemoryQueue_CloseWakesConsumers(t *testing.T) {
	q := queue.NewMemoryQueue()

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		done <- err
	}()

	_ = q.Close()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrQueueClosed) {
			t.Fatalf("expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after Close")
	}

	if err := q.Enqueue(context.Background(), job("late", domain.PriorityNormal)); !errors.Is(err, domain.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed on enqueue after close, got %v", err)
	}
}

func TestMemoryQueue_ErrQueueFull(t *testing.T) {
	q := queue.NewMemoryQueueWithCapacity(1)
	ctx := context.Background()

	if err := q.Enqueue(ctx, job("a", domain.PriorityNormal)); err != nil {
		t.Fatalf("unexpected error on empty queue: %v", err)
	}
	if err := q.Enqueue(ctx, job("b", domain.PriorityNormal)); !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	// Other lanes have their own buffer.
	if err := q.Enqueue(ctx, job("c", domain.PriorityUrgent)); err != nil {
		t.Fatalf("unexpected error on urgent lane: %v", err)
	}
}

func TestMemoryQueue_RetryRedeliversAfterDelay(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_ = q.Enqueue(ctx, job("r", domain.PriorityNormal))
	first, _ := q.Dequeue(ctx)

	first.Attempt++
	start := time.Now()
	if err := q.Retry(ctx, first, 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	d, _ := q.Depths(ctx)
	if d.Delayed != 1 || d.Active != 0 {
		t.Fatalf("expected delayed=1 active=0, got %+v", d)
	}

	second, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second.Attempt != 2 {
		t.Fatalf("expected attempt 2, got %d", second.Attempt)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Fatal("job redelivered before its backoff elapsed")
	}
}

func TestMemoryQueue_FailCountsDead(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	_ = q.Enqueue(ctx, job("x", domain.PriorityNormal))
	j, _ := q.Dequeue(ctx)
	_ = q.Fail(ctx, j)

	d, _ := q.Depths(ctx)
	if d.Dead != 1 || d.Active != 0 {
		t.Fatalf("expected dead=1 active=0, got %+v", d)
	}

	// A failed job's id can be enqueued again.
	if err := q.Enqueue(ctx, job("x", domain.PriorityNormal)); err != nil {
		t.Fatal(err)
	}
	d, _ = q.Depths(ctx)
	if d.Ready[domain.PriorityNormal] != 1 {
		t.Fatalf("expected re-enqueued job to be ready, got %+v", d)
	}
}

// TestMemoryQueue_ConcurrentEnqueueDequeue verifies there are no races
// when multiple goroutines enqueue and dequeue simultaneously.
func TestMemoryQueue_ConcurrentEnqueueDequeue(t *testing.T) {
	q := queue.NewMemoryQueue()

	const producers = 5
	const itemsPerProducer = 100
	const total = producers * itemsPerProducer

	received := make(chan struct{}, total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var consumerDone sync.WaitGroup
	consumerDone.Add(1)
	go func() {
		defer consumerDone.Done()
		for {
			j, err := q.Dequeue(ctx)
			if err != nil {
				return
			}
			_ = q.Ack(ctx, j)
			received <- struct{}{}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for j := 0; j < itemsPerProducer; j++ {
				id := fmt.Sprintf("%d-%d", p, j)
				_ = q.Enqueue(ctx, job(id, domain.PriorityNormal))
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < total; i++ {
		select {
		case <-received:
		case <-ctx.Done():
			t.Fatalf("timeout: only received %d/%d items", i, total)
		}
	}
	cancel()
	consumerDone.Wait()
}

func TestMemoryQueue_Depths(t *testing.T) {
	q := queue.NewMemoryQueue()
	ctx := context.Background()

	_ = q.Enqueue(ctx, job("u", domain.PriorityUrgent))
	_ = q.Enqueue(ctx, job("h", domain.PriorityHigh))
	_ = q.Enqueue(ctx, job("n1", domain.PriorityNormal))
	_ = q.Enqueue(ctx, job("n2", domain.PriorityNormal))

	d, _ := q.Depths(ctx)
	if d.Ready[domain.PriorityUrgent] != 1 || d.Ready[domain.PriorityHigh] != 1 || d.Ready[domain.PriorityNormal] != 2 {
		t.Fatalf("unexpected depths: %+v", d)
	}
	if d.Total() != 4 {
		t.Fatalf("expected total 4, got %d", d.Total())
	}
}
