package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("missing key should not hit")
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(value) != "v" {
		t.Fatalf("Get = %q, %v, %v", value, ok, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("deleted key should miss")
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if err := c.Set(ctx, "short", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "short"); !ok {
		t.Fatal("entry should be live before TTL")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("entry should expire after TTL")
	}
	// Lazy expiry evicts on read.
	if got := c.Len(); got != 0 {
		t.Errorf("Len after expired read = %d, want 0", got)
	}
}

func TestMemoryCacheRejectsEmptyKey(t *testing.T) {
	c := NewMemoryCache()
	err := c.Set(context.Background(), "", []byte("v"), 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindInvalidInput {
		t.Errorf("kind = %s", KindOf(err))
	}
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	src := []byte("abc")
	_ = c.Set(ctx, "k", src, 0)
	src[0] = 'z'

	value, _, _ := c.Get(ctx, "k")
	if string(value) != "abc" {
		t.Errorf("stored value mutated: %q", value)
	}
	value[0] = 'z'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("returned value aliased storage: %q", again)
	}
}

func TestMemoryCacheClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Len = %d, want 0", got)
	}
}
