package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*CountCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func TestCountCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if _, ok := cache.GetCount(ctx, "segpreview:abc"); ok {
		t.Error("hit on empty cache")
	}

	cache.SetCount(ctx, "segpreview:abc", 42, time.Minute)
	n, ok := cache.GetCount(ctx, "segpreview:abc")
	if !ok || n != 42 {
		t.Errorf("GetCount = %d, %v; want 42, true", n, ok)
	}
}

func TestCountCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.SetCount(ctx, "segpreview:abc", 7, 30*time.Second)
	mr.FastForward(time.Minute)

	if _, ok := cache.GetCount(ctx, "segpreview:abc"); ok {
		t.Error("expired entry still served")
	}
}

func TestCountCacheToleratesGarbage(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Set("segpreview:abc", "not-a-number")

	if _, ok := cache.GetCount(context.Background(), "segpreview:abc"); ok {
		t.Error("non-numeric value treated as hit")
	}
}
