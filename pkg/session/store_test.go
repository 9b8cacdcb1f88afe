package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-crmpanel/pkg/session"
)

func newRedisStore(t *testing.T, opts ...session.RedisOption) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return session.NewRedisStore(client, opts...), mr
}

func stores(t *testing.T) map[string]session.Store {
	t.Helper()
	redisStore, _ := newRedisStore(t)
	return map[string]session.Store{
		"memory": session.NewMemoryStore(),
		"redis":  redisStore,
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sid := session.NewID()

			if _, err := store.Get(ctx, sid, "menuState"); !errors.Is(err, session.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := store.Set(ctx, sid, "menuState", "closed"); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err := store.Get(ctx, sid, "menuState")
			if err != nil || got != "closed" {
				t.Fatalf("get = %q, %v", got, err)
			}
			if err := store.Delete(ctx, sid, "menuState"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Get(ctx, sid, "menuState"); !errors.Is(err, session.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}

			list, err := store.List(ctx, sid, "stack")
			if err != nil || len(list) != 0 {
				t.Fatalf("empty list = %v, %v", list, err)
			}
			want := []string{"/a/", "/b/", "/c/"}
			if err := store.SetList(ctx, sid, "stack", want); err != nil {
				t.Fatalf("set list: %v", err)
			}
			list, err = store.List(ctx, sid, "stack")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if diff := cmp.Diff(want, list); diff != "" {
				t.Fatalf("list mismatch (-want +got):\n%s", diff)
			}
			if err := store.SetList(ctx, sid, "stack", []string{"/a/"}); err != nil {
				t.Fatalf("shrink list: %v", err)
			}
			list, _ = store.List(ctx, sid, "stack")
			if diff := cmp.Diff([]string{"/a/"}, list); diff != "" {
				t.Fatalf("shrunk list mismatch (-want +got):\n%s", diff)
			}
			if err := store.SetList(ctx, sid, "stack", nil); err != nil {
				t.Fatalf("clear list: %v", err)
			}
			list, _ = store.List(ctx, sid, "stack")
			if len(list) != 0 {
				t.Fatalf("expected cleared list, got %v", list)
			}

			for i := int64(1); i <= 3; i++ {
				n, err := store.Incr(ctx, sid, "token")
				if err != nil || n != i {
					t.Fatalf("incr = %d, %v; want %d", n, err, i)
				}
			}

			other := session.NewID()
			if _, err := store.Get(ctx, other, "token"); !errors.Is(err, session.ErrNotFound) {
				t.Fatalf("sessions must be isolated, got %v", err)
			}
		})
	}
}

func TestMemoryStore_ConcurrentIncr(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Incr(ctx, "s", "token")
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "s", "token")
	if err != nil || got != "50" {
		t.Fatalf("token = %q, %v", got, err)
	}
}

func TestMemoryStore_ExpiresIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	store := session.NewMemoryStore(
		session.WithMemoryTTL(time.Minute),
		session.WithMemoryClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	if err := store.Set(ctx, "s", "menuState", "open"); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(30 * time.Second)
	if _, err := store.Get(ctx, "s", "menuState"); err != nil {
		t.Fatalf("session should still be live: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "s", "menuState"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expired session should be dropped")
	}
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	store, mr := newRedisStore(t, session.WithPrefix("test:"), session.WithTTL(time.Hour))
	ctx := context.Background()

	if err := store.Set(ctx, "abc", "menuState", "open"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetList(ctx, "abc", "stack", []string{"/x/"}); err != nil {
		t.Fatalf("set list: %v", err)
	}
	if !mr.Exists("test:abc:menuState") || !mr.Exists("test:abc:stack") {
		t.Fatalf("expected prefixed keys, got %v", mr.Keys())
	}
	if ttl := mr.TTL("test:abc:stack"); ttl != time.Hour {
		t.Fatalf("expected list ttl of 1h, got %v", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Get(ctx, "abc", "menuState"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestValidID(t *testing.T) {
	if !session.ValidID(session.NewID()) {
		t.Fatal("fresh id should be valid")
	}
	if session.ValidID("../../etc") {
		t.Fatal("garbage id should be invalid")
	}
}
