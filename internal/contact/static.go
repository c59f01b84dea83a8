package contact

import (
	"context"
	"fmt"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

// StaticDirectory is a fixed in-memory Directory keyed by user id. It applies
// the same per-channel rules as Store.
type StaticDirectory struct {
	contacts map[string]domain.Contact
}

func NewStaticDirectory(contacts ...domain.Contact) *StaticDirectory {
	d := &StaticDirectory{contacts: make(map[string]domain.Contact, len(contacts))}
	for _, c := range contacts {
		d.contacts[c.UserID] = c
	}
	return d
}

func (d *StaticDirectory) Lookup(_ context.Context, userID string, channel domain.Channel) (domain.Contact, error) {
	c, ok := d.contacts[userID]
	if channel == domain.ChannelInApp {
		return domain.Contact{UserID: userID}, nil
	}
	if !ok {
		return domain.Contact{UserID: userID}, fmt.Errorf("%w: user %s not found", domain.ErrUndeliverable, userID)
	}

	var missing bool
	switch channel {
	case domain.ChannelEmail:
		missing = c.Email == ""
	case domain.ChannelSMS:
		missing = c.Phone == ""
	case domain.ChannelPush:
		missing = c.PushToken == ""
	}
	if missing {
		return c, fmt.Errorf("%w: user %s has no %s address", domain.ErrUndeliverable, userID, channel)
	}
	return c, nil
}

var _ Directory = (*StaticDirectory)(nil)
