package store

import (
	"context"
	"testing"
	"time"

	"github.com/alimasry/go-composer/command"
	"github.com/alimasry/go-composer/doc"
	"github.com/alimasry/go-composer/editor"
)

func TestBridge_LoadMissing(t *testing.T) {
	b := NewBridge(NewMemoryStore(), "doc1")
	content, ok, err := b.Load(context.Background())
	if err != nil || ok || content != "" {
		t.Fatalf("Load = %q, %v, %v; want empty, false, nil", content, ok, err)
	}
}

func TestBridge_SaveAppendsRevisions(t *testing.T) {
	s := NewMemoryStore()
	b := NewBridge(s, "doc1")
	ctx := context.Background()

	for _, snapshot := range []string{"Hello", "Hello world"} {
		if err := b.Save(ctx, snapshot); err != nil {
			t.Fatalf("Save(%q): %v", snapshot, err)
		}
	}

	info, err := s.Get(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if info.Content != "Hello world" || info.Version != 2 {
		t.Errorf("unexpected info: %+v", info)
	}
	revs, err := s.GetRevisions(ctx, "doc1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 {
		t.Fatalf("got %d revisions, want 2", len(revs))
	}
	if last := revs[1]; last.Words != 2 || last.Characters != 11 || last.SavedAt.IsZero() {
		t.Errorf("unexpected revision: %+v", last)
	}

	content, ok, err := b.Load(ctx)
	if err != nil || !ok || content != "Hello world" {
		t.Errorf("Load = %q, %v, %v", content, ok, err)
	}
}

func TestBridge_RecoversFromPartialSave(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, "doc1", "")
	// Revision written, content never moved forward.
	if err := s.AppendRevision(ctx, "doc1", revision(1, "lost")); err != nil {
		t.Fatal(err)
	}

	if err := NewBridge(s, "doc1").Save(ctx, "kept"); err != nil {
		t.Fatal(err)
	}
	info, _ := s.Get(ctx, "doc1")
	if info.Content != "kept" || info.Version != 2 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestBridge_RejectsMalformedSnapshot(t *testing.T) {
	s := NewMemoryStore()
	if err := NewBridge(s, "doc1").Save(context.Background(), "```\nopen"); err == nil {
		t.Fatal("expected a parse error")
	}
	if revs, _ := s.GetRevisions(context.Background(), "doc1", 0); len(revs) != 0 {
		t.Errorf("malformed snapshot stored: %+v", revs)
	}
}

func TestSessionPersistsThroughBridge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	session, err := editor.Open(ctx, NewBridge(s, "notes"), editor.WithAutosaveInterval(-1))
	if err != nil {
		t.Fatal(err)
	}
	sel := doc.Caret(session.Document().End())
	if _, err := session.Execute(&sel, command.InsertText{Text: "Remember me"}); err != nil {
		t.Fatal(err)
	}
	if err := session.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := editor.Open(ctx, NewBridge(s, "notes"), editor.WithAutosaveInterval(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if got := reopened.Markdown(); got != "Remember me" {
		t.Errorf("reopened Markdown = %q", got)
	}
}
