package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func allowed(l Limiter, key string) bool {
	ok, _ := l.Allow(key)
	return ok
}

func TestTokenBucketLimiter_BurstThenBlocksThenRefills(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Unix(0, 0))
	l := NewTokenBucketLimiter(clk, Config{Rate: 1, Burst: 2})

	if !allowed(l, "user:1") || !allowed(l, "user:1") {
		t.Fatalf("expected full burst to pass")
	}
	ok, wait := l.Allow("user:1")
	if ok {
		t.Fatalf("expected block when bucket empty")
	}
	if wait != time.Second {
		t.Fatalf("expected 1s wait, got %s", wait)
	}

	clk.Add(1 * time.Second)
	if !allowed(l, "user:1") {
		t.Fatalf("expected allow after refill")
	}
	if allowed(l, "user:1") {
		t.Fatalf("expected block (no tokens left)")
	}

	// refill is capped by burst
	clk.Add(10 * time.Second)
	if !allowed(l, "user:1") || !allowed(l, "user:1") {
		t.Fatalf("expected two tokens after long refill")
	}
	if allowed(l, "user:1") {
		t.Fatalf("expected block after consuming burst again")
	}
}

func TestTokenBucketLimiter_PartialRefillWait(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Unix(0, 0))
	l := NewTokenBucketLimiter(clk, Config{Rate: 2, Burst: 1})

	_ = allowed(l, "k")
	clk.Add(250 * time.Millisecond)
	ok, wait := l.Allow("k")
	if ok {
		t.Fatalf("expected block with half a token")
	}
	if wait != 250*time.Millisecond {
		t.Fatalf("expected 250ms wait, got %s", wait)
	}
}

func TestTokenBucketLimiter_IsPerKey(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Unix(0, 0))
	l := NewTokenBucketLimiter(clk, Config{Rate: 1, Burst: 1})

	if !allowed(l, "keyA") {
		t.Fatalf("expected allow keyA #1")
	}
	if allowed(l, "keyA") {
		t.Fatalf("expected block keyA #2")
	}
	if !allowed(l, "keyB") {
		t.Fatalf("expected allow keyB #1 (independent bucket)")
	}
}

func TestTokenBucketLimiter_MaxBucketsRejectsNewKeys(t *testing.T) {
	t.Parallel()

	l := NewTokenBucketLimiter(newFakeClock(time.Unix(0, 0)), Config{Rate: 1, Burst: 5, MaxBuckets: 1})

	if !allowed(l, "a") {
		t.Fatalf("expected first key to get a bucket")
	}
	if allowed(l, "b") {
		t.Fatalf("expected second key to be rejected")
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 bucket, got %d", l.Len())
	}
}

func TestTokenBucketLimiter_TTLCleanupRemovesIdleBuckets(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Unix(0, 0))
	l := NewTokenBucketLimiter(clk, Config{Rate: 10, Burst: 1, TTL: 2 * time.Second})

	_ = allowed(l, "A")
	_ = allowed(l, "B")
	if got := l.Len(); got != 2 {
		t.Fatalf("expected 2 buckets, got %d", got)
	}

	// sweeps run at most once a minute
	clk.Add(59 * time.Second)
	_ = allowed(l, "B")
	clk.Add(2 * time.Second)
	_ = allowed(l, "B")

	if _, ok := l.buckets["A"]; ok {
		t.Fatalf("expected bucket A to be cleaned up")
	}
	if _, ok := l.buckets["B"]; !ok {
		t.Fatalf("expected bucket B to remain")
	}
}
