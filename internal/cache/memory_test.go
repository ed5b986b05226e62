package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestMemoryCache(t *testing.T, opts MemoryCacheOptions) (*MemoryCache, *time.Time) {
	t.Helper()
	c := NewMemoryCache(opts)
	t.Cleanup(func() { _ = c.Close() })

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache, _ := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 100})
	ctx := context.Background()

	if err := cache.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := cache.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", string(val))
	}

	has, err := cache.Has(ctx, "key1")
	if err != nil || !has {
		t.Errorf("Has(key1) = %v, %v; want true", has, err)
	}

	if err := cache.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "key1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss after delete, got %v", err)
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	cache, _ := newTestMemoryCache(t, MemoryCacheOptions{})
	ctx := context.Background()

	buf := []byte("abc")
	_ = cache.Set(ctx, "k", buf, 0)
	buf[0] = 'x'

	got, _ := cache.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value mutated: %q", got)
	}
	got[1] = 'y'
	again, _ := cache.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("returned value aliases storage: %q", again)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache, now := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Minute})
	ctx := context.Background()

	_ = cache.Set(ctx, "default", []byte("v"), 0)
	_ = cache.Set(ctx, "long", []byte("v"), time.Hour)

	*now = now.Add(2 * time.Minute)

	if _, err := cache.Get(ctx, "default"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected default TTL key to expire, got %v", err)
	}
	if _, err := cache.Get(ctx, "long"); err != nil {
		t.Errorf("expected long TTL key to survive, got %v", err)
	}
	if has, _ := cache.Has(ctx, "default"); has {
		t.Error("Has should report expired key as missing")
	}
}

func TestMemoryCache_DeleteByPrefixAndClear(t *testing.T) {
	cache, _ := newTestMemoryCache(t, MemoryCacheOptions{})
	ctx := context.Background()

	for _, k := range []string{"content:hero", "content:wings", "config:siteSettings"} {
		_ = cache.Set(ctx, k, []byte("v"), 0)
	}

	if err := cache.DeleteByPrefix(ctx, "content:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if has, _ := cache.Has(ctx, "content:hero"); has {
		t.Error("content:hero should be deleted")
	}
	if has, _ := cache.Has(ctx, "config:siteSettings"); !has {
		t.Error("config:siteSettings should remain")
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if s := cache.Stats(); s.Items != 0 || s.Size != 0 {
		t.Errorf("after Clear items=%d size=%d, want 0", s.Items, s.Size)
	}
}

func TestMemoryCache_MaxSizeEvictsSoonestExpiry(t *testing.T) {
	cache, _ := newTestMemoryCache(t, MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 2})
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "long", []byte("2"), 2*time.Hour)
	_ = cache.Set(ctx, "new", []byte("3"), 0)

	if has, _ := cache.Has(ctx, "short"); has {
		t.Error("entry closest to expiry should be evicted")
	}
	for _, k := range []string{"long", "new"} {
		if has, _ := cache.Has(ctx, k); !has {
			t.Errorf("%s should be present", k)
		}
	}

	// Overwriting an existing key never evicts.
	_ = cache.Set(ctx, "long", []byte("22"), 0)
	if s := cache.Stats(); s.Items != 2 {
		t.Errorf("items = %d, want 2", s.Items)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache, _ := newTestMemoryCache(t, MemoryCacheOptions{})
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("1234"), 0)
	_, _ = cache.Get(ctx, "a")
	_, _ = cache.Get(ctx, "a")
	_, _ = cache.Get(ctx, "missing")

	s := cache.Stats()
	if s.Backend != "memory" || s.Hits != 2 || s.Misses != 1 || s.Sets != 1 || s.Size != 4 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.HitRate < 66 || s.HitRate > 67 {
		t.Errorf("HitRate = %v, want ~66.7", s.HitRate)
	}

	cache.ResetStats()
	s = cache.Stats()
	if s.Hits != 0 || s.Misses != 0 || s.ResetAt == nil {
		t.Errorf("after reset: %+v", s)
	}
}

func TestMemoryCache_Closed(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{CleanupInterval: time.Millisecond})
	_ = cache.Close()
	_ = cache.Close()

	ctx := context.Background()
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after close = %v, want ErrCacheClosed", err)
	}
	if err := cache.Set(ctx, "k", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after close = %v, want ErrCacheClosed", err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 50})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (n*100+j)%80)
				_ = cache.Set(ctx, key, []byte("v"), 0)
				_, _ = cache.Get(ctx, key)
				if j%10 == 0 {
					_ = cache.Delete(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()
}
