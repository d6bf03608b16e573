package blobstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFSStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	ctx := context.Background()
	payload := []byte("data:image/png;base64,AAAA")

	id, err := store.Put(ctx, payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(id, IDPrefix) {
		t.Fatalf("id %q missing %q prefix", id, IDPrefix)
	}

	got, ok, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected blob to be found")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestFSStoreMissingKey(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	_, ok, err := store.Get(context.Background(), "img_unknown")
	if err != nil {
		t.Fatalf("Get returned error for missing key: %v", err)
	}
	if ok {
		t.Fatal("expected missing key")
	}
}

func TestFSStoreDeleteIsBestEffort(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Delete(ctx, "img_never_stored"); err != nil {
		t.Fatalf("Delete of absent key: %v", err)
	}

	id, err := store.Put(ctx, []byte("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, id); ok {
		t.Fatal("blob still present after delete")
	}
}

func TestFSStoreReopensRemovedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}

	id, err := store.Put(ctx, []byte("second"))
	if err != nil {
		t.Fatalf("Put after directory removal: %v", err)
	}
	if _, ok, _ := store.Get(ctx, id); !ok {
		t.Fatal("blob written after reopen not found")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.Put(ctx, []byte("abc"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != "abc" {
		t.Fatalf("got %q", got)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, id); ok {
		t.Fatal("blob still present after delete")
	}
}
