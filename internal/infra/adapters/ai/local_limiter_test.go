package ai

import (
	"context"
	"testing"
	"time"
)

func TestLocalRateLimiterFixedWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalRateLimiter()
	l.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "k", 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d: allowed=%v err=%v, want allowed", i, ok, err)
		}
	}
	if ok, _ := l.Allow(ctx, "k", 3, time.Minute); ok {
		t.Fatal("request above limit was allowed inside the window")
	}

	// a new window resets the count
	now = now.Add(time.Minute)
	if ok, _ := l.Allow(ctx, "k", 3, time.Minute); !ok {
		t.Fatal("request denied after the window rolled over")
	}
}

func TestLocalRateLimiterKeysAreIndependent(t *testing.T) {
	l := NewLocalRateLimiter()
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "openai", 1, time.Minute); !ok {
		t.Fatal("first openai request denied")
	}
	if ok, _ := l.Allow(ctx, "openai", 1, time.Minute); ok {
		t.Fatal("second openai request allowed over limit")
	}
	if ok, _ := l.Allow(ctx, "gemini", 1, time.Minute); !ok {
		t.Fatal("gemini window affected by openai exhaustion")
	}
}
