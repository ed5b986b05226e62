package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("WINGS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: WINGS_TEST_REDIS_URL not set")
	}

	opts := DefaultRedisCacheOptions()
	opts.URL = url
	opts.Prefix = "wingsite-test:" + t.Name() + ":"
	opts.DefaultTTL = time.Minute

	cache, err := NewRedisCache(opts)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Clear(context.Background())
		_ = cache.Close()
	})
	return cache
}

func TestRedisCache_Basic(t *testing.T) {
	cache := skipIfNoRedis(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "hero", []byte(`{"title":"x"}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := cache.Get(ctx, "hero")
	if err != nil || string(got) != `{"title":"x"}` {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if has, _ := cache.Has(ctx, "hero"); !has {
		t.Error("expected hero to exist")
	}

	if err := cache.Delete(ctx, "hero"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "hero"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	cache := skipIfNoRedis(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("v"), 100*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	if _, err := cache.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected expiry, got %v", err)
	}
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	cache := skipIfNoRedis(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "content:a", []byte("1"), 0)
	_ = cache.Set(ctx, "content:b", []byte("2"), 0)
	_ = cache.Set(ctx, "config:c", []byte("3"), 0)

	if err := cache.DeleteByPrefix(ctx, "content:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if has, _ := cache.Has(ctx, "content:a"); has {
		t.Error("content:a should be deleted")
	}
	if has, _ := cache.Has(ctx, "config:c"); !has {
		t.Error("config:c should remain")
	}
	if s := cache.Stats(); s.Items != 1 || s.Backend != "redis" {
		t.Errorf("stats = %+v", s)
	}
}

func TestRedisCache_Close(t *testing.T) {
	cache := skipIfNoRedis(t)
	_ = cache.Close()
	if err := cache.Ping(context.Background()); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Ping after close = %v", err)
	}
}

func TestRedisCache_BadOptions(t *testing.T) {
	if _, err := NewRedisCache(RedisCacheOptions{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewRedisCache(RedisCacheOptions{URL: "not-a-url"}); err == nil {
		t.Error("expected error for invalid URL")
	}
}
