package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemory("https://cdn.test")
	ctx := context.Background()

	url1, err := store.Put(ctx, "product/1-card.webp", []byte("v1"), "image/webp")
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	url2, err := store.Put(ctx, "product/1-card.webp", []byte("v2"), "image/webp")
	if err != nil {
		t.Fatalf("second put: %v", err)
	}

	if url1 != url2 {
		t.Fatalf("overwrite changed URL: %q vs %q", url1, url2)
	}
	if store.Len() != 1 {
		t.Fatalf("expected a single object, got %d", store.Len())
	}
	data, ct, ok := store.Get("product/1-card.webp")
	if !ok || string(data) != "v2" || ct != "image/webp" {
		t.Fatalf("unexpected object state: %q %q %v", data, ct, ok)
	}
}

func TestMemoryStoreListPrefix(t *testing.T) {
	store := NewMemory("")
	ctx := context.Background()

	for _, key := range []string{"product/1-a.webp", "product/1-b.webp", "hero/1-a.webp"} {
		if _, err := store.Put(ctx, key, []byte("x"), "image/webp"); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "product/", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(infos))
	}
	if infos[0].Key != "product/1-a.webp" || infos[1].Key != "product/1-b.webp" {
		t.Fatalf("unexpected order: %+v", infos)
	}

	capped, err := store.List(ctx, "", 1)
	if err != nil {
		t.Fatalf("list capped: %v", err)
	}
	if len(capped) != 1 {
		t.Fatalf("maxKeys not honored: %d", len(capped))
	}
}

func TestMemoryStorePutHook(t *testing.T) {
	store := NewMemory("")
	boom := errors.New("boom")
	store.PutHook = func(_ context.Context, key string) error {
		if key == "bad" {
			return boom
		}
		return nil
	}

	if _, err := store.Put(context.Background(), "bad", []byte("x"), "image/webp"); !errors.Is(err, boom) {
		t.Fatalf("hook error not surfaced: %v", err)
	}
	if _, err := store.Put(context.Background(), "good", []byte("x"), "image/webp"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryStoreRespectsContextCancel(t *testing.T) {
	store := NewMemory("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Put(ctx, "k", []byte("x"), "image/webp"); err == nil {
		t.Fatalf("expected context error")
	}
}
