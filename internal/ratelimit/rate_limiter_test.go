package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitConsumesAvailableTokenImmediately(t *testing.T) {
	l := New(2, time.Hour)
	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatal("expected immediate return while tokens available")
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	l := New(1, time.Hour) // one token, then refill far too slow to matter
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait should succeed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected context deadline error once the bucket is empty")
	}
}

func TestDisabledLimiterNeverBlocks(t *testing.T) {
	l := New(0, 0)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("disabled limiter must not block: %v", err)
	}
}
