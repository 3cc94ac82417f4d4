// Package store persists composer documents and the revisions saved for
// them.
package store

import (
	"context"
	"time"
)

// DocumentInfo holds document metadata and its latest Markdown content.
type DocumentInfo struct {
	ID        string
	Content   string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Revision is one saved snapshot. Versions start at 1 and increase by one
// per document.
type Revision struct {
	Version    int
	Content    string
	Words      int
	Characters int
	SavedAt    time.Time
}

// DocumentStore abstracts document persistence.
// Implementations: MemoryStore, BunStore (SQLite), FirestoreStore, and
// CachedStore in front of any of them.
type DocumentStore interface {
	Create(ctx context.Context, id, content string) error
	Get(ctx context.Context, id string) (*DocumentInfo, error)
	List(ctx context.Context) ([]DocumentInfo, error)
	UpdateContent(ctx context.Context, id, content string, version int) error
	// AppendRevision fails with ErrRevisionConflict unless rev.Version is
	// exactly one past the last stored revision.
	AppendRevision(ctx context.Context, id string, rev Revision) error
	// GetRevisions returns the revisions newer than fromVersion, oldest
	// first.
	GetRevisions(ctx context.Context, id string, fromVersion int) ([]Revision, error)
}
