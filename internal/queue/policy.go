package queue

import (
	"time"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

// RetryPolicy decides how often and how late a failed job is tried again.
// Backoff receives the 1-based number of the attempt that just failed.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy is three attempts with exponential backoff from 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: ExponentialBackoff(2 * time.Second)}
}

// ExponentialBackoff returns base * 2^(attempt-1):
//
//	attempt 1 → base      (2s)
//	attempt 2 → 2 * base  (4s)
//	attempt 3 → 4 * base  (8s)
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		// Cap the shift so a misconfigured MaxAttempts cannot overflow.
		shift := attempt - 1
		if shift > 20 {
			shift = 20
		}
		return base * time.Duration(1<<shift)
	}
}

// Exhausted reports whether job has used up its attempts under p.
// A job-level MaxAttempts overrides the policy.
func (p RetryPolicy) Exhausted(job *domain.Job) bool {
	limit := p.MaxAttempts
	if job.MaxAttempts > 0 {
		limit = job.MaxAttempts
	}
	return job.Attempt >= limit
}

// Delay is the wait before the attempt following job.Attempt.
func (p RetryPolicy) Delay(job *domain.Job) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(job.Attempt)
}
