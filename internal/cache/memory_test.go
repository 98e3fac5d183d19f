package cache

import (
	"context"
	"testing"
	"time"

	"chatroom-backend/internal/domain"
)

func TestMemoryCache_MissThenHit(t *testing.T) {
	c := NewMemoryCache(5 * time.Minute)
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "u1"); err != nil || hit {
		t.Fatalf("expected clean miss, hit=%v err=%v", hit, err)
	}

	rooms := []domain.Chatroom{{ID: "r1", UserID: "u1", Name: "general"}}
	if err := c.Set(ctx, "u1", rooms); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, hit, err := c.Get(ctx, "u1")
	if err != nil || !hit {
		t.Fatalf("expected hit, hit=%v err=%v", hit, err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("unexpected cached rooms: %+v", got)
	}
}

func TestMemoryCache_EntriesExpire(t *testing.T) {
	c := NewMemoryCache(300 * time.Second)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return base }

	if err := c.Set(ctx, "u1", []domain.Chatroom{{ID: "r1"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	c.Now = func() time.Time { return base.Add(299 * time.Second) }
	if _, hit, _ := c.Get(ctx, "u1"); !hit {
		t.Fatal("entry should still be fresh before the TTL")
	}

	c.Now = func() time.Time { return base.Add(301 * time.Second) }
	if _, hit, _ := c.Get(ctx, "u1"); hit {
		t.Fatal("entry should expire after the TTL")
	}
}

func TestMemoryCache_Invalidate(t *testing.T) {
	c := NewMemoryCache(5 * time.Minute)
	ctx := context.Background()

	_ = c.Set(ctx, "u1", []domain.Chatroom{{ID: "r1"}})
	_ = c.Set(ctx, "u2", []domain.Chatroom{{ID: "r2"}})

	if err := c.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "u1"); hit {
		t.Fatal("u1 entry should be gone")
	}
	if _, hit, _ := c.Get(ctx, "u2"); !hit {
		t.Fatal("u2 entry should survive")
	}
}

func TestMemoryCache_SnapshotsAreIsolated(t *testing.T) {
	c := NewMemoryCache(5 * time.Minute)
	ctx := context.Background()

	rooms := []domain.Chatroom{{ID: "r1", Name: "before"}}
	_ = c.Set(ctx, "u1", rooms)
	rooms[0].Name = "mutated"

	got, _, _ := c.Get(ctx, "u1")
	if got[0].Name != "before" {
		t.Fatalf("cache leaked caller mutation: %+v", got)
	}

	got[0].Name = "mutated again"
	again, _, _ := c.Get(ctx, "u1")
	if again[0].Name != "before" {
		t.Fatalf("cache leaked reader mutation: %+v", again)
	}
}

func TestKey(t *testing.T) {
	if Key("u1") != "chatrooms:u1" {
		t.Fatalf("unexpected key: %s", Key("u1"))
	}
}
