// Package dispatch routes a job to the sender for its channel.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/ricirt/meeting-notifier/internal/contact"
	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/sender"
)

// Dispatcher holds exactly one sender per channel.
type Dispatcher struct {
	senders  map[domain.Channel]sender.Sender
	contacts contact.Directory
}

// New fails if any channel in domain.Channels has no sender or has more
// than one.
func New(contacts contact.Directory, senders ...sender.Sender) (*Dispatcher, error) {
	d := &Dispatcher{
		senders:  make(map[domain.Channel]sender.Sender, len(senders)),
		contacts: contacts,
	}
	for _, s := range senders {
		ch := s.Channel()
		if _, dup := d.senders[ch]; dup {
			return nil, fmt.Errorf("duplicate sender for channel %q", ch)
		}
		d.senders[ch] = s
	}
	for _, ch := range domain.Channels {
		if _, ok := d.senders[ch]; !ok {
			return nil, fmt.Errorf("no sender registered for channel %q", ch)
		}
	}
	return d, nil
}

// Dispatch looks up the recipient's address for the job's channel and hands
// the job to that channel's sender. A recipient without an address yields
// an error wrapping domain.ErrUndeliverable; sender errors pass through.
func (d *Dispatcher) Dispatch(ctx context.Context, job *domain.Job) error {
	s, ok := d.senders[job.Channel]
	if !ok {
		return fmt.Errorf("%w: unsupported channel %q", domain.ErrUndeliverable, job.Channel)
	}

	c, err := d.contacts.Lookup(ctx, job.UserID, job.Channel)
	if errors.Is(err, domain.ErrUndeliverable) {
		return err
	}
	if err != nil {
		return fmt.Errorf("lookup contact: %w", err)
	}
	return s.Send(ctx, c, job)
}
