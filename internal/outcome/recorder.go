// Package outcome writes the result of a finished delivery back to the
// notification record.
package outcome

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/repository"
)

// Recorder settles a record exactly once. A second settle of the same record,
// which happens when the queue redelivers a job, is logged and ignored.
type Recorder struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewRecorder(repo repository.NotificationRepository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Delivered marks the job's record delivered. Jobs without a record are skipped.
func (r *Recorder) Delivered(ctx context.Context, job *domain.Job) error {
	if job.NotificationID == "" {
		return nil
	}
	return r.settled(job, r.repo.MarkDelivered(ctx, job.NotificationID, r.now(), job.Attempt))
}

// Failed marks the job's record failed with reason.
func (r *Recorder) Failed(ctx context.Context, job *domain.Job, reason string) error {
	if job.NotificationID == "" {
		return nil
	}
	return r.settled(job, r.repo.MarkFailed(ctx, job.NotificationID, reason, job.Attempt))
}

func (r *Recorder) settled(job *domain.Job, err error) error {
	if errors.Is(err, domain.ErrAlreadySettled) {
		r.logger.Info("notification already settled",
			zap.String("notification_id", job.NotificationID),
			zap.Int("attempt", job.Attempt))
		return nil
	}
	return err
}
