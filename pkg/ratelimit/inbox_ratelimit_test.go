package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, window time.Duration, limit int64) *WindowLimiter {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewWindowLimiter(client, "ratelimit:test", window, limit)
}

func TestAllow_WithinLimit(t *testing.T) {
	limiter := newTestLimiter(t, time.Hour, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "owner-1")
		if err != nil {
			t.Fatalf("Allow() #%d error = %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("Allow() #%d = false, want true", i+1)
		}
	}

	// fourth event crosses the limit
	allowed, err := limiter.Allow(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Error("Allow() over limit = true, want false")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(t, time.Hour, 1)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "owner-1"); !allowed {
		t.Fatal("first event for owner-1 should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "owner-1"); allowed {
		t.Error("second event for owner-1 should be denied")
	}
	if allowed, _ := limiter.Allow(ctx, "owner-2"); !allowed {
		t.Error("owner-2 must not share owner-1's window")
	}
}

func TestAllow_WindowExpiry(t *testing.T) {
	limiter := newTestLimiter(t, 100*time.Millisecond, 1)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "owner-1"); !allowed {
		t.Fatal("first event should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "owner-1"); allowed {
		t.Fatal("event inside the window should be denied")
	}

	time.Sleep(150 * time.Millisecond)

	allowed, err := limiter.Allow(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Error("event after the window elapsed should be allowed again")
	}
}

func TestRemaining(t *testing.T) {
	limiter := newTestLimiter(t, time.Hour, 2)
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 2 {
		t.Errorf("Remaining() before any event = %d, want 2", remaining)
	}

	limiter.Allow(ctx, "owner-1")
	limiter.Allow(ctx, "owner-1")
	limiter.Allow(ctx, "owner-1") // denied, must not consume quota

	remaining, err = limiter.Remaining(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Errorf("Remaining() at the limit = %d, want 0", remaining)
	}
}
