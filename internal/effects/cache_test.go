package effects

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SlpAus/battle-effects-backend/internal/aggregate"
	"github.com/SlpAus/battle-effects-backend/internal/catalog"
	"github.com/SlpAus/battle-effects-backend/internal/platform/database"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	database.UpdateStatus(true)
	t.Cleanup(func() { database.UpdateStatus(false) })
	return NewCache(rdb, time.Minute), mr
}

func cachedView(value string) View {
	v := NewView()
	v.Attack = []Entry{{Icon: "water", Key: "attack_water", Value: value}}
	return v
}

func TestCacheSetAndGet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, 1); ok {
		t.Fatal("expected a miss on an empty cache")
	}
	cache.Set(ctx, 1, cache.Version(ctx, 1), cachedView("5"))

	got, ok := cache.Get(ctx, 1)
	if !ok || len(got.Attack) != 1 || got.Attack[0].Value != "5" {
		t.Fatalf("unexpected cached view: %+v, %v", got, ok)
	}
	if ttl := mr.TTL(viewKey(1)); ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected a per-item ttl, got %v", ttl)
	}
}

func TestCacheDropsWriteAfterInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	// 读者在写者提交之前拿到版本和旧数据
	version := cache.Version(ctx, 1)
	cache.Invalidate(ctx, 1)
	cache.Set(ctx, 1, version, cachedView("old"))

	if view, ok := cache.Get(ctx, 1); ok {
		t.Fatalf("stale view must not be cached, got %+v", view)
	}

	cache.Set(ctx, 1, cache.Version(ctx, 1), cachedView("new"))
	if view, ok := cache.Get(ctx, 1); !ok || view.Attack[0].Value != "new" {
		t.Fatalf("expected the fresh view, got %+v, %v", view, ok)
	}
}

func TestCacheFlushKeepsVersions(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Invalidate(ctx, 1)
	cache.Set(ctx, 1, cache.Version(ctx, 1), cachedView("5"))
	cache.Set(ctx, 2, cache.Version(ctx, 2), cachedView("6"))

	if err := cache.Flush(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists(viewKey(1)) || mr.Exists(viewKey(2)) {
		t.Error("expected view keys to be flushed")
	}
	if v, err := mr.Get(versionKey(1)); err != nil || v != "1" {
		t.Errorf("expected version counter to survive, got %q, %v", v, err)
	}
}

func TestCacheUnhealthyIsNoop(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	database.UpdateStatus(false)

	if v := cache.Version(ctx, 1); v != "" {
		t.Errorf("expected no version while unhealthy, got %q", v)
	}
	cache.Set(ctx, 1, "0", cachedView("5"))
	if mr.Exists(viewKey(1)) {
		t.Error("nothing must be written while unhealthy")
	}

	var nilCache *Cache
	nilCache.Set(ctx, 1, "0", cachedView("5"))
	nilCache.Invalidate(ctx, 1)
	if _, ok := nilCache.Get(ctx, 1); ok {
		t.Error("nil cache must always miss")
	}
}

func TestCuratedViewIsRefreshedAfterCuration(t *testing.T) {
	env := newTestEnv(t)
	cache, _ := newTestCache(t)
	ctx := context.Background()
	service := NewService(env.db, env.service.store, env.subs, catalog.NewRepository(env.db), aggregate.New(nil), cache)

	edited := NewView()
	edited.Attack = []Entry{{Icon: "water", Value: "5"}}
	if _, err := service.Curate(ctx, "alice", 1, edited); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res, err := service.GetCuratedView(ctx, 1); err != nil || res.View.Attack[0].Value != "5" {
		t.Fatalf("unexpected first read: %+v, %v", res, err)
	}
	if _, ok := cache.Get(ctx, 1); !ok {
		t.Fatal("expected the curated view to be cached")
	}

	edited.Attack = []Entry{{Icon: "water", Key: "attack_water", Value: "7"}}
	if _, err := service.Curate(ctx, "alice", 1, edited); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := service.GetCuratedView(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateCurated || res.View.Attack[0].Value != "7" {
		t.Fatalf("expected the updated view after curation, got %+v", res)
	}
}
