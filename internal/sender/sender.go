// Package sender delivers a rendered notification over one channel.
package sender

import (
	"context"
	"fmt"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

// Sender abstracts delivery over a single channel. Implementations wrap every
// transport failure with domain.ErrTransport so callers can retry it.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, c domain.Contact, job *domain.Job) error
}

func transportErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
}
