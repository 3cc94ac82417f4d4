package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// flakyStore fails content writes while failing is set.
type flakyStore struct {
	*MemoryStore
	mu      sync.Mutex
	failing bool
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *flakyStore) UpdateContent(ctx context.Context, id, content string, version int) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errors.New("backing offline")
	}
	return f.MemoryStore.UpdateContent(ctx, id, content, version)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()

	// Pre-populate backing store.
	if err := backing.Create(ctx, "doc1", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := backing.AppendRevision(ctx, "doc1", revision(1, "hello world")); err != nil {
		t.Fatal(err)
	}
	if err := backing.UpdateContent(ctx, "doc1", "hello world", 1); err != nil {
		t.Fatal(err)
	}

	cs := NewCachedStore(backing, time.Hour, nil) // long interval, no auto flush
	defer cs.Close()

	// Get should load from backing.
	info, err := cs.Get(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if info.Content != "hello world" || info.Version != 1 {
		t.Errorf("unexpected info: %+v", info)
	}

	// Revisions should also be available.
	revs, err := cs.GetRevisions(ctx, "doc1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 1 {
		t.Fatalf("got %d revisions, want 1", len(revs))
	}
}

func TestCachedStore_WriteBehind(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()

	cs := NewCachedStore(backing, 50*time.Millisecond, nil)
	defer cs.Close()

	// Create doc in cache.
	if err := cs.Create(ctx, "doc1", "hello"); err != nil {
		t.Fatal(err)
	}

	// Backing should NOT have it yet.
	if _, err := backing.Get(ctx, "doc1"); err == nil {
		t.Error("expected backing to not have doc yet")
	}

	// Wait for flush.
	time.Sleep(150 * time.Millisecond)

	info, err := backing.Get(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if info.Content != "hello" {
		t.Errorf("unexpected content: %q", info.Content)
	}
}

func TestCachedStore_RevisionFlushTracking(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()

	cs := NewCachedStore(backing, time.Hour, nil)
	defer cs.Close()

	if err := cs.Create(ctx, "doc1", ""); err != nil {
		t.Fatal(err)
	}
	for v := 1; v <= 3; v++ {
		if err := cs.AppendRevision(ctx, "doc1", revision(v, "x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := cs.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	revs, err := backing.GetRevisions(ctx, "doc1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 3 {
		t.Fatalf("after first flush: got %d revisions, want 3", len(revs))
	}

	// Append 2 more; only those may reach the backing store.
	for v := 4; v <= 5; v++ {
		if err := cs.AppendRevision(ctx, "doc1", revision(v, "y")); err != nil {
			t.Fatal(err)
		}
	}
	if err := cs.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	revs, err = backing.GetRevisions(ctx, "doc1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 5 {
		t.Fatalf("after second flush: got %d revisions, want 5", len(revs))
	}
}

func TestCachedStore_CloseFlushes(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()

	cs := NewCachedStore(backing, time.Hour, nil) // very long interval

	if err := cs.Create(ctx, "doc1", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := cs.AppendRevision(ctx, "doc1", revision(1, "hello world")); err != nil {
		t.Fatal(err)
	}
	if err := cs.UpdateContent(ctx, "doc1", "hello world", 1); err != nil {
		t.Fatal(err)
	}

	// Close triggers final flush.
	if err := cs.Close(); err != nil {
		t.Fatal(err)
	}

	info, err := backing.Get(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if info.Content != "hello world" || info.Version != 1 {
		t.Errorf("unexpected info: content=%q version=%d", info.Content, info.Version)
	}
	revs, err := backing.GetRevisions(ctx, "doc1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 1 {
		t.Fatalf("got %d revisions, want 1", len(revs))
	}
}

func TestCachedStore_PreLoadedDoc(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()

	// Pre-populate backing with a doc and 2 revisions.
	if err := backing.Create(ctx, "doc1", "ab"); err != nil {
		t.Fatal(err)
	}
	for v := 1; v <= 2; v++ {
		if err := backing.AppendRevision(ctx, "doc1", revision(v, "ab")); err != nil {
			t.Fatal(err)
		}
	}

	cs := NewCachedStore(backing, time.Hour, nil)

	// Load into cache via Get.
	if _, err := cs.Get(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if err := cs.AppendRevision(ctx, "doc1", revision(3, "abc")); err != nil {
		t.Fatal(err)
	}
	if err := cs.Close(); err != nil {
		t.Fatal(err)
	}

	// Backing should have exactly 3 revisions (no duplicates).
	revs, err := backing.GetRevisions(ctx, "doc1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 3 {
		t.Fatalf("got %d revisions, want 3", len(revs))
	}
}

func TestCachedStore_CreateExistingInBacking(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()
	backing.Create(ctx, "doc1", "kept")

	cs := NewCachedStore(backing, time.Hour, nil)
	defer cs.Close()

	if err := cs.Create(ctx, "doc1", "lost"); !errors.Is(err, ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}
}

func TestCachedStore_ListIncludesUnflushed(t *testing.T) {
	backing := NewMemoryStore()
	ctx := context.Background()

	backing.Create(ctx, "a", "")
	backing.Create(ctx, "b", "")

	cs := NewCachedStore(backing, time.Hour, nil)
	defer cs.Close()

	if err := cs.Create(ctx, "c", ""); err != nil {
		t.Fatal(err)
	}
	docs, err := cs.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 || docs[2].ID != "c" {
		t.Errorf("unexpected list: %+v", docs)
	}
}

func TestCachedStore_FailedFlushRetries(t *testing.T) {
	backing := &flakyStore{MemoryStore: NewMemoryStore()}
	ctx := context.Background()

	cs := NewCachedStore(backing, time.Hour, nil)
	defer cs.Close()

	if err := cs.Create(ctx, "doc1", ""); err != nil {
		t.Fatal(err)
	}
	if err := cs.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	backing.setFailing(true)
	if err := cs.UpdateContent(ctx, "doc1", "v1", 1); err != nil {
		t.Fatal(err)
	}
	if err := cs.Flush(ctx); err == nil {
		t.Fatal("expected flush error")
	}

	backing.setFailing(false)
	if err := cs.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	info, err := backing.Get(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if info.Content != "v1" || info.Version != 1 {
		t.Errorf("unexpected info after retry: %+v", info)
	}
}
