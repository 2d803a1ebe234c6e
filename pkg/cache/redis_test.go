package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	if _, hit, err := c.Get(ctx, "solution:x"); err != nil || hit {
		t.Fatalf("empty Get = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, "solution:x", []byte("payload"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists(RedisNamespace + "solution:x") {
		t.Error("key should be stored under the namespace")
	}

	data, hit, err := c.Get(ctx, "solution:x")
	if err != nil || !hit || string(data) != "payload" {
		t.Fatalf("Get = %q, hit %v, err %v", data, hit, err)
	}

	if err := c.Delete(ctx, "solution:x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "solution:x"); hit {
		t.Error("Get after Delete should miss")
	}
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry should expire after its ttl")
	}
}

func TestRedisCacheClear(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	if err := mr.Set("foreign", "keep"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 250; i++ {
		if err := c.Set(ctx, Hash([]byte{byte(i)}), []byte("v"), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 1 || keys[0] != "foreign" {
		t.Errorf("keys after Clear = %v, want only the foreign key", keys)
	}
}

func TestRedisCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	_, err := newRedisCache(context.Background(), rdb, time.Millisecond)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "http://nope"); err == nil {
		t.Error("non-redis URL should fail")
	}
}

func TestObservedCache(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedis(t)
	o := NewObserved(c)

	key := NewDefaultKeyer().SolutionKey("abc", "backtrack")
	if _, hit, err := o.Get(ctx, key); hit || err != nil {
		t.Fatalf("Get = hit %v, err %v", hit, err)
	}
	if err := o.Set(ctx, key, []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := o.Get(ctx, key); !hit {
		t.Error("Observed should pass hits through")
	}
	if err := o.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := o.Get(ctx, key); hit {
		t.Error("Clear should reach the wrapped cache")
	}
	if err := NewObserved(nil).Clear(ctx); err != nil {
		t.Errorf("Clear on a null cache: %v", err)
	}
}
