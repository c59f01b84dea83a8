package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

func TestSendRequest_Validate(t *testing.T) {
	valid := domain.SendRequest{
		UserID:   "u1",
		Type:     domain.TypeMeetingReady,
		Channel:  domain.ChannelEmail,
		Data:     domain.Payload{"meetingTitle": "Sync"},
		Priority: domain.PriorityNormal,
	}

	t.Run("valid request passes", func(t *testing.T) {
		r := valid
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		r := valid
		r.UserID = ""
		if err := r.Validate(); err != domain.ErrMissingUserID {
			t.Fatalf("expected ErrMissingUserID, got %v", err)
		}
	})

	t.Run("missing type", func(t *testing.T) {
		r := valid
		r.Type = ""
		if err := r.Validate(); err != domain.ErrMissingType {
			t.Fatalf("expected ErrMissingType, got %v", err)
		}
	})

	t.Run("missing channel", func(t *testing.T) {
		r := valid
		r.Channel = ""
		if err := r.Validate(); err != domain.ErrInvalidChannel {
			t.Fatalf("expected ErrInvalidChannel, got %v", err)
		}
	})

	t.Run("invalid channel", func(t *testing.T) {
		r := valid
		r.Channel = "fax"
		if err := r.Validate(); err != domain.ErrInvalidChannel {
			t.Fatalf("expected ErrInvalidChannel, got %v", err)
		}
	})

	t.Run("invalid priority", func(t *testing.T) {
		r := valid
		r.Priority = "low"
		if err := r.Validate(); err != domain.ErrInvalidPriority {
			t.Fatalf("expected ErrInvalidPriority, got %v", err)
		}
	})

	t.Run("empty priority defaults to normal", func(t *testing.T) {
		r := valid
		r.Priority = ""
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.Priority != domain.PriorityNormal {
			t.Fatalf("expected normal, got %q", r.Priority)
		}
	})

	t.Run("unknown type is accepted", func(t *testing.T) {
		r := valid
		r.Type = "somethingNew"
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("all channels accepted", func(t *testing.T) {
		for _, ch := range domain.Channels {
			r := valid
			r.Channel = ch
			if err := r.Validate(); err != nil {
				t.Fatalf("channel %q: expected no error, got %v", ch, err)
			}
		}
	})

	t.Run("validation errors match ErrValidation", func(t *testing.T) {
		r := valid
		r.UserID = ""
		if err := r.Validate(); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected errors.Is(err, ErrValidation), got %v", err)
		}
	})
}

func TestBulkRequest_Validate(t *testing.T) {
	valid := domain.BulkRequest{
		UserIDs: []string{"u1", "u2"},
		Type:    domain.TypeWeeklyDigest,
		Channel: domain.ChannelSMS,
	}

	t.Run("valid bulk passes and defaults priority", func(t *testing.T) {
		r := valid
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.Priority != domain.PriorityNormal {
			t.Fatalf("expected normal priority, got %q", r.Priority)
		}
	})

	t.Run("empty", func(t *testing.T) {
		r := valid
		r.UserIDs = nil
		if err := r.Validate(); err != domain.ErrBulkEmpty {
			t.Fatalf("expected ErrBulkEmpty, got %v", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		r := valid
		r.UserIDs = strings.Split(strings.Repeat("u,", domain.MaxBulkRecipients+1), ",")[:domain.MaxBulkRecipients+1]
		if err := r.Validate(); err != domain.ErrBulkTooLarge {
			t.Fatalf("expected ErrBulkTooLarge, got %v", err)
		}
	})

	t.Run("blank recipient", func(t *testing.T) {
		r := valid
		r.UserIDs = []string{"u1", ""}
		if err := r.Validate(); err != domain.ErrMissingUserID {
			t.Fatalf("expected ErrMissingUserID, got %v", err)
		}
	})

	t.Run("invalid channel", func(t *testing.T) {
		r := valid
		r.Channel = "pager"
		if err := r.Validate(); err != domain.ErrInvalidChannel {
			t.Fatalf("expected ErrInvalidChannel, got %v", err)
		}
	})
}

func TestPriority_Rank(t *testing.T) {
	if !(domain.PriorityUrgent.Rank() < domain.PriorityHigh.Rank() &&
		domain.PriorityHigh.Rank() < domain.PriorityNormal.Rank()) {
		t.Fatal("expected urgent < high < normal")
	}
}

func TestPayload_String(t *testing.T) {
	p := domain.Payload{"s": "x", "n": float64(3), "f": 1.5, "nil": nil}
	cases := map[string]string{"s": "x", "n": "3", "f": "1.5", "nil": "", "missing": ""}
	for key, want := range cases {
		if got := p.String(key); got != want {
			t.Fatalf("key %q: expected %q, got %q", key, want, got)
		}
	}
}
