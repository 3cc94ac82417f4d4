package store

import (
	"context"
	"errors"
	"time"

	"github.com/alimasry/go-composer/editor"
	"github.com/alimasry/go-composer/markdown"
)

var _ editor.Bridge = (*Bridge)(nil)

// Bridge connects an editor session to one document of a DocumentStore.
// Every save appends a revision and then moves the document content to it.
type Bridge struct {
	store DocumentStore
	id    string
	now   func() time.Time
}

func NewBridge(store DocumentStore, id string) *Bridge {
	return &Bridge{store: store, id: id, now: time.Now}
}

func (b *Bridge) ID() string { return b.id }

// Load returns the latest content. A missing document is not an error.
func (b *Bridge) Load(ctx context.Context) (string, bool, error) {
	info, err := b.store.Get(ctx, b.id)
	if IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return info.Content, true, nil
}

// Save stores snapshot as the next revision, creating the document on the
// first save.
func (b *Bridge) Save(ctx context.Context, snapshot string) error {
	d, err := markdown.Parse(ctx, snapshot)
	if err != nil {
		return err
	}
	stats := d.Stats()

	info, err := b.store.Get(ctx, b.id)
	switch {
	case IsNotFound(err):
		if err := b.store.Create(ctx, b.id, ""); err != nil && !errors.Is(err, ErrExists) {
			return err
		}
		info = &DocumentInfo{ID: b.id}
	case err != nil:
		return err
	}

	// A previous save may have appended its revision without moving the
	// content forward.
	ahead, err := b.store.GetRevisions(ctx, b.id, info.Version)
	if err != nil {
		return err
	}

	rev := Revision{
		Version:    info.Version + len(ahead) + 1,
		Content:    snapshot,
		Words:      stats.Words,
		Characters: stats.Characters,
		SavedAt:    b.now().UTC(),
	}
	if err := b.store.AppendRevision(ctx, b.id, rev); err != nil {
		return err
	}
	return b.store.UpdateContent(ctx, b.id, snapshot, rev.Version)
}
