package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/ratelimiter"
)

func TestChannelLimiters_Unlimited(t *testing.T) {
	l := ratelimiter.New(0)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		if err := l.Wait(ctx, domain.ChannelEmail); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestChannelLimiters_ChannelsAreIndependent(t *testing.T) {
	l := ratelimiter.New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The first token of each channel is available immediately.
	for _, ch := range domain.Channels {
		if err := l.Wait(ctx, ch); err != nil {
			t.Fatalf("%s: unexpected error: %v", ch, err)
		}
	}
	// A second email token would take a second, longer than the deadline.
	if err := l.Wait(ctx, domain.ChannelEmail); err == nil {
		t.Fatal("expected the limiter to block past the deadline")
	}
}

func TestChannelLimiters_CancelledContext(t *testing.T) {
	l := ratelimiter.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, "fax"); err == nil {
		t.Fatal("expected ctx error for an unknown channel")
	}
}
