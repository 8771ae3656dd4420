package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeStore struct {
	counts  map[string]int64
	expiry  map[string]time.Time
	now     time.Time
	incrErr error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts: make(map[string]int64),
		expiry: make(map[string]time.Time),
		now:    time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// IncrWithTTL mirrors the Redis semantics: the TTL is armed when the key is
// created and an expired key counts from one again.
func (f *fakeStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	if deadline, ok := f.expiry[key]; ok && !f.now.Before(deadline) {
		delete(f.counts, key)
		delete(f.expiry, key)
	}
	f.counts[key]++
	if f.counts[key] == 1 {
		f.expiry[key] = f.now.Add(ttl)
	}
	return f.counts[key], nil
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.counts, key)
		delete(f.expiry, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func (f *fakeStore) RateLimitKey(scope, key string) string {
	return fmt.Sprintf("rb:rate_limit:%s:%s", scope, key)
}

func newTestLimiter(t *testing.T, store Store) *Limiter {
	t.Helper()
	limiter, err := NewLimiter(store, map[string]Rule{
		ScopeLogin:          {Limit: 3, Window: time.Minute},
		ScopeForgotPassword: {Limit: 2, Window: 5 * time.Minute},
	}, nil)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return limiter
}

func TestLimiterConsumeWithinBudget(t *testing.T) {
	store := newFakeStore()
	limiter := newTestLimiter(t, store)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		result, err := limiter.Consume(ctx, ScopeLogin, "1.2.3.4:alice")
		if err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
		if !result.Allowed {
			t.Fatalf("attempt %d should be allowed", i)
		}
		if result.Count != int64(i) {
			t.Fatalf("expected count %d, got %d", i, result.Count)
		}
	}

	result, err := limiter.Consume(ctx, ScopeLogin, "1.2.3.4:alice")
	if err != nil {
		t.Fatalf("consume over budget: %v", err)
	}
	if result.Allowed {
		t.Fatal("fourth attempt should be denied")
	}
	if result.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", result.Remaining)
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	store := newFakeStore()
	limiter := newTestLimiter(t, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := limiter.Consume(ctx, ScopeLogin, "1.2.3.4:alice"); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}

	result, err := limiter.Consume(ctx, ScopeLogin, "5.6.7.8:alice")
	if err != nil {
		t.Fatalf("consume other key: %v", err)
	}
	if !result.Allowed || result.Count != 1 {
		t.Fatalf("other key should start fresh, got %+v", result)
	}
}

func TestLimiterWindowExpiryResetsCounter(t *testing.T) {
	store := newFakeStore()
	limiter := newTestLimiter(t, store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := limiter.Consume(ctx, ScopeLogin, "1.2.3.4:alice"); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}

	// Still inside the minute window: the budget stays exhausted.
	store.advance(30 * time.Second)
	result, err := limiter.Consume(ctx, ScopeLogin, "1.2.3.4:alice")
	if err != nil {
		t.Fatalf("consume mid-window: %v", err)
	}
	if result.Allowed {
		t.Fatal("attempt inside the window should still be denied")
	}

	store.advance(31 * time.Second)
	result, err = limiter.Consume(ctx, ScopeLogin, "1.2.3.4:alice")
	if err != nil {
		t.Fatalf("consume after expiry: %v", err)
	}
	if !result.Allowed || result.Count != 1 {
		t.Fatalf("expected fresh window after expiry, got %+v", result)
	}
	if result.Remaining != 2 {
		t.Fatalf("expected remaining 2 after expiry, got %d", result.Remaining)
	}
}

func TestLimiterClearResetsWindow(t *testing.T) {
	store := newFakeStore()
	limiter := newTestLimiter(t, store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := limiter.Consume(ctx, ScopeLogin, "k"); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}
	if err := limiter.Clear(ctx, ScopeLogin, "k"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	result, err := limiter.Consume(ctx, ScopeLogin, "k")
	if err != nil {
		t.Fatalf("consume after clear: %v", err)
	}
	if !result.Allowed || result.Count != 1 {
		t.Fatalf("expected fresh window after clear, got %+v", result)
	}
}

func TestLimiterUnknownScope(t *testing.T) {
	limiter := newTestLimiter(t, newFakeStore())

	if _, err := limiter.Consume(context.Background(), "bogus", "k"); err == nil {
		t.Fatal("expected unknown scope error")
	}
	if err := limiter.Clear(context.Background(), "bogus", "k"); err == nil {
		t.Fatal("expected unknown scope error")
	}
}

func TestLimiterStoreError(t *testing.T) {
	store := newFakeStore()
	store.incrErr = errors.New("redis down")
	limiter := newTestLimiter(t, store)

	if _, err := limiter.Consume(context.Background(), ScopeLogin, "k"); !errors.Is(err, store.incrErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestNewLimiterValidation(t *testing.T) {
	if _, err := NewLimiter(nil, map[string]Rule{ScopeLogin: {Limit: 1, Window: time.Second}}, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewLimiter(newFakeStore(), nil, nil); err == nil {
		t.Fatal("expected error for empty rules")
	}
	if _, err := NewLimiter(newFakeStore(), map[string]Rule{ScopeLogin: {Limit: 0, Window: time.Second}}, nil); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, err := NewLimiter(newFakeStore(), map[string]Rule{ScopeLogin: {Limit: 1}}, nil); err == nil {
		t.Fatal("expected error for zero window")
	}
}
