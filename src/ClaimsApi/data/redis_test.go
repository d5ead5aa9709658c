package data

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeStore implements Store in memory with a manual clock, mimicking the
// INCR/EXPIRE/SETNX semantics the counters rely on.
type fakeStore struct {
	mu     sync.Mutex
	counts map[string]int64
	expiry map[string]time.Time
	now    time.Time
}

func newFakeStore(now time.Time) *fakeStore {
	return &fakeStore{
		counts: make(map[string]int64),
		expiry: make(map[string]time.Time),
		now:    now,
	}
}

func (f *fakeStore) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeStore) sweep() {
	for key, deadline := range f.expiry {
		if !f.now.Before(deadline) {
			delete(f.counts, key)
			delete(f.expiry, key)
		}
	}
}

func (f *fakeStore) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweep()
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeStore) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiry[key] = f.now.Add(ttl)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweep()
	if _, ok := f.counts[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.counts[key] = 1
	f.expiry[key] = f.now.Add(ttl)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweep()
	count, ok := f.counts[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(strconv.FormatInt(count, 10), nil)
}

func TestRateLimitWindow(t *testing.T) {
	store := newFakeStore(time.Unix(1_700_000_000, 0))
	ctx := context.Background()
	window := 60 * time.Second
	limit := 3

	for i := 1; i <= limit; i++ {
		allowed, remaining, err := RateLimit(ctx, store, "claimer:0xabc", limit, window)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if remaining != limit-i {
			t.Fatalf("request %d: remaining = %d, want %d", i, remaining, limit-i)
		}
	}

	allowed, remaining, err := RateLimit(ctx, store, "claimer:0xabc", limit, window)
	if err != nil {
		t.Fatalf("over-limit request: %v", err)
	}
	if allowed {
		t.Fatalf("request beyond the limit must be rejected")
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}

	// A different key is unaffected.
	if allowed, _, _ := RateLimit(ctx, store, "claimer:0xdef", limit, window); !allowed {
		t.Fatalf("independent key must not share the bucket")
	}

	// After the window the bucket resets.
	store.advance(window + time.Second)
	if allowed, _, _ := RateLimit(ctx, store, "claimer:0xabc", limit, window); !allowed {
		t.Fatalf("bucket must reset after the window")
	}
}

func TestDailyCounter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := newFakeStore(now)
	ctx := context.Background()

	count, err := DailyClaimsCount(ctx, store, 8453, now)
	if err != nil {
		t.Fatalf("read empty counter: %v", err)
	}
	if count != 0 {
		t.Fatalf("fresh day counter = %d, want 0", count)
	}

	for i := int64(1); i <= 3; i++ {
		got, err := IncrementDailyClaims(ctx, store, 8453, now)
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if got != i {
			t.Fatalf("increment returned %d, want %d", got, i)
		}
	}

	// Reads never advance the counter.
	count, err = DailyClaimsCount(ctx, store, 8453, now)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if count != 3 {
		t.Fatalf("counter = %d, want 3", count)
	}

	// Chains count independently.
	got, err := IncrementDailyClaims(ctx, store, 10, now)
	if err != nil {
		t.Fatalf("increment other chain: %v", err)
	}
	if got != 1 {
		t.Fatalf("other chain counter = %d, want 1", got)
	}

	// A new UTC day starts a new key.
	nextDay := now.Add(25 * time.Hour)
	got, err = IncrementDailyClaims(ctx, store, 8453, nextDay)
	if err != nil {
		t.Fatalf("increment next day: %v", err)
	}
	if got != 1 {
		t.Fatalf("next day counter = %d, want 1", got)
	}
}

func TestMarkTransactionProcessed(t *testing.T) {
	store := newFakeStore(time.Unix(1_700_000_000, 0))
	ctx := context.Background()
	hash := "0x6e8aa08a6e8aa08a6e8aa08a6e8aa08a6e8aa08a6e8aa08a6e8aa08a6e8aa08a"

	first, err := MarkTransactionProcessed(ctx, store, hash)
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if !first {
		t.Fatalf("first mark must report first=true")
	}

	first, err = MarkTransactionProcessed(ctx, store, hash)
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if first {
		t.Fatalf("second mark must report first=false")
	}
}

func TestDayNumber(t *testing.T) {
	// 2023-11-14T22:13:20Z is day 19675.
	got := DayNumber(time.Unix(1_700_000_000, 0))
	if got != 19675 {
		t.Fatalf("DayNumber = %d, want 19675", got)
	}
}
