package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/keyseek/harvest/models"
)

func TestLimiter_SpacesSameKey(t *testing.T) {
	l := New(50*time.Millisecond, 1)
	ctx := context.Background()

	if err := l.Wait(ctx, models.EngineGoogle); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	start := time.Now()
	if err := l.Wait(ctx, models.EngineGoogle); err != nil {
		t.Fatalf("second wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("second request to the same engine was not delayed: %s", elapsed)
	}
}

func TestLimiter_KeysIndependent(t *testing.T) {
	l := New(time.Second, 1)
	ctx := context.Background()

	if err := l.Wait(ctx, models.EngineGoogle); err != nil {
		t.Fatalf("google wait failed: %v", err)
	}

	start := time.Now()
	if err := l.Wait(ctx, models.EngineBing); err != nil {
		t.Fatalf("bing wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("a different engine key should not block: waited %s", elapsed)
	}
}

func TestLimiter_ZeroDelayDisabled(t *testing.T) {
	l := New(0, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := l.Wait(ctx, models.EngineBrave); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero delay should never block: waited %s", elapsed)
	}
}

func TestLimiter_ContextCancelled(t *testing.T) {
	l := New(time.Minute, 1)

	// Consume the initial burst token.
	if err := l.Wait(context.Background(), models.EngineYahoo); err != nil {
		t.Fatalf("initial wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, models.EngineYahoo); err == nil {
		t.Error("expected error when the context expires before the slot opens")
	}
}
