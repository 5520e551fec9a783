package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryLimiter_WindowCounting(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "k", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d denied under limit", i)
		}
		if d.Remaining != 3-(i+1) {
			t.Fatalf("remaining = %d, want %d", d.Remaining, 3-(i+1))
		}
	}

	d, err := limiter.Allow(ctx, "k", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed {
		t.Fatal("request over limit allowed")
	}
	if !d.ResetAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("reset_at = %v, want %v", d.ResetAt, now.Add(time.Minute))
	}
}

func TestMemoryLimiter_WindowRollover(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := limiter.Allow(ctx, "k", 2, time.Minute); err != nil {
			t.Fatalf("allow: %v", err)
		}
	}
	if d, _ := limiter.Allow(ctx, "k", 2, time.Minute); d.Allowed {
		t.Fatal("over-limit request allowed")
	}

	now = now.Add(61 * time.Second)
	d, err := limiter.Allow(ctx, "k", 2, time.Minute)
	if err != nil {
		t.Fatalf("allow after rollover: %v", err)
	}
	if !d.Allowed || d.Remaining != 1 {
		t.Fatalf("after rollover: %+v", d)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryConfig{})
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "a", 1, time.Minute); err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d, _ := limiter.Allow(ctx, "a", 1, time.Minute); d.Allowed {
		t.Fatal("key a over limit allowed")
	}
	if d, _ := limiter.Allow(ctx, "b", 1, time.Minute); !d.Allowed {
		t.Fatal("key b denied by key a's bucket")
	}
}

func TestMemoryLimiter_ZeroLimitAlwaysAllows(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryConfig{})
	d, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !d.Allowed {
		t.Fatal("zero limit denied")
	}
}

func TestMemoryLimiter_CapacityEviction(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryConfig{Now: func() time.Time { return now }, MaxKeys: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := limiter.Allow(ctx, fmt.Sprintf("k%d", i), 1, time.Minute); err != nil {
			t.Fatalf("allow: %v", err)
		}
	}

	// Full, nothing expired: the next new key is an error.
	if _, err := limiter.Allow(ctx, "overflow", 1, time.Minute); err == nil {
		t.Fatal("expected capacity error")
	}

	// Once the old windows lapse, eviction frees room.
	now = now.Add(2 * time.Minute)
	if d, err := limiter.Allow(ctx, "overflow", 1, time.Minute); err != nil || !d.Allowed {
		t.Fatalf("after eviction: d=%+v err=%v", d, err)
	}
}
