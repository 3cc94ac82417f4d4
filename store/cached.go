package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alimasry/go-composer/logging"
)

// dirtyState tracks what needs flushing for a single document.
type dirtyState struct {
	contentGen  int  // bumped on every content write
	flushedGen  int  // contentGen last written to the backing store
	flushedRevs int  // number of revisions already in the backing store
	created     bool // created locally but not yet in the backing store
}

func (ds *dirtyState) contentDirty() bool { return ds.contentGen != ds.flushedGen }

// CachedStore wraps a backing DocumentStore with an in-memory cache.
// Reads and writes are served from the cache. Dirty documents are flushed
// to the backing store periodically in the background.
type CachedStore struct {
	cache         *MemoryStore
	backing       DocumentStore
	logger        logging.Logger
	flushMu       sync.Mutex // serializes flushes
	mu            sync.Mutex
	dirty         map[string]*dirtyState
	flushInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
	closeOnce     sync.Once
	closeErr      error
}

// NewCachedStore creates a CachedStore that flushes dirty documents to
// backing every flushInterval.
func NewCachedStore(backing DocumentStore, flushInterval time.Duration, logger logging.Logger) *CachedStore {
	cs := &CachedStore{
		cache:         NewMemoryStore(),
		backing:       backing,
		logger:        logging.OrNoOp(logger),
		dirty:         make(map[string]*dirtyState),
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go cs.flushLoop()
	return cs
}

func (cs *CachedStore) Create(ctx context.Context, id, content string) error {
	// The id may exist in the backing store without being cached.
	if _, err := cs.Get(ctx, id); err == nil {
		return exists(id)
	} else if !IsNotFound(err) {
		return err
	}
	if err := cs.cache.Create(ctx, id, content); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.dirty[id] = &dirtyState{contentGen: 1, created: true}
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) Get(ctx context.Context, id string) (*DocumentInfo, error) {
	info, err := cs.cache.Get(ctx, id)
	if err == nil || !IsNotFound(err) {
		return info, err
	}
	// Cache miss, load from backing store.
	if err := cs.loadFromBacking(ctx, id); err != nil {
		return nil, err
	}
	return cs.cache.Get(ctx, id)
}

// List merges the backing store listing with documents that exist only in
// the cache. Cached entries win.
func (cs *CachedStore) List(ctx context.Context) ([]DocumentInfo, error) {
	backed, err := cs.backing.List(ctx)
	if err != nil {
		return nil, err
	}
	cached, err := cs.cache.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]DocumentInfo, len(backed)+len(cached))
	for _, info := range backed {
		byID[info.ID] = info
	}
	for _, info := range cached {
		byID[info.ID] = info
	}
	result := make([]DocumentInfo, 0, len(byID))
	for _, info := range byID {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b DocumentInfo) int { return strings.Compare(a.ID, b.ID) })
	return result, nil
}

func (cs *CachedStore) UpdateContent(ctx context.Context, id, content string, version int) error {
	// Ensure doc is in cache.
	if _, err := cs.Get(ctx, id); err != nil {
		return err
	}
	if err := cs.cache.UpdateContent(ctx, id, content, version); err != nil {
		return err
	}
	cs.mu.Lock()
	cs.stateLocked(id).contentGen++
	cs.mu.Unlock()
	return nil
}

func (cs *CachedStore) AppendRevision(ctx context.Context, id string, rev Revision) error {
	// Ensure doc is in cache.
	if _, err := cs.Get(ctx, id); err != nil {
		return err
	}
	// Mark dirty before appending so a clean document records how many
	// revisions the backing store already has.
	cs.mu.Lock()
	cs.stateLocked(id)
	cs.mu.Unlock()
	return cs.cache.AppendRevision(ctx, id, rev)
}

func (cs *CachedStore) GetRevisions(ctx context.Context, id string, fromVersion int) ([]Revision, error) {
	// Ensure doc is in cache.
	if _, err := cs.Get(ctx, id); err != nil {
		return nil, err
	}
	return cs.cache.GetRevisions(ctx, id, fromVersion)
}

// stateLocked returns the dirty state of id, creating a clean one when the
// document has nothing pending. Callers hold cs.mu.
func (cs *CachedStore) stateLocked(id string) *dirtyState {
	ds := cs.dirty[id]
	if ds == nil {
		ds = &dirtyState{flushedRevs: cs.cache.revisionCount(id)}
		cs.dirty[id] = ds
	}
	return ds
}

// loadFromBacking copies a document and its revisions into the cache.
func (cs *CachedStore) loadFromBacking(ctx context.Context, id string) error {
	info, err := cs.backing.Get(ctx, id)
	if err != nil {
		return err
	}
	revs, err := cs.backing.GetRevisions(ctx, id, 0)
	if err != nil {
		return err
	}
	if cs.cache.load(*info, revs) {
		cs.logger.Debug("document cached", "document", id, "revisions", len(revs))
	}
	return nil
}

func (cs *CachedStore) flushLoop() {
	ticker := time.NewTicker(cs.flushInterval)
	defer ticker.Stop()
	defer close(cs.done)

	for {
		select {
		case <-ticker.C:
			_ = cs.Flush(context.Background())
		case <-cs.stop:
			cs.closeErr = cs.Flush(context.Background())
			return
		}
	}
}

// Flush writes all dirty documents to the backing store. Failed documents
// stay dirty and are retried on the next flush.
func (cs *CachedStore) Flush(ctx context.Context) error {
	cs.flushMu.Lock()
	defer cs.flushMu.Unlock()

	cs.mu.Lock()
	// Snapshot the dirty map and work on a copy.
	pending := make(map[string]dirtyState, len(cs.dirty))
	for id, ds := range cs.dirty {
		pending[id] = *ds
	}
	cs.mu.Unlock()

	var errs []error
	for id, ds := range pending {
		info, newRevs, total, ok := cs.cache.snapshot(id, ds.flushedRevs)
		if !ok {
			continue
		}

		// 1. Create doc in backing store if needed.
		if ds.created {
			if err := cs.backing.Create(ctx, id, info.Content); err != nil && !errors.Is(err, ErrExists) {
				cs.logger.Error("flush: create failed", "document", id, "error", err)
				errs = append(errs, err)
				continue
			}
			ds.created = false
		}

		// 2. Flush new revisions before content so the log never lags the
		// content it describes.
		for _, rev := range newRevs {
			if err := cs.backing.AppendRevision(ctx, id, rev); err != nil {
				cs.logger.Error("flush: revision failed", "document", id, "version", rev.Version, "error", err)
				errs = append(errs, err)
				break
			}
			ds.flushedRevs++
		}

		// 3. Flush content if dirty.
		if ds.contentDirty() {
			if err := cs.backing.UpdateContent(ctx, id, info.Content, info.Version); err != nil {
				cs.logger.Error("flush: content failed", "document", id, "error", err)
				errs = append(errs, err)
			} else {
				ds.flushedGen = ds.contentGen
			}
		}

		// Update the authoritative dirty state.
		cs.mu.Lock()
		if cur := cs.dirty[id]; cur != nil {
			cur.flushedRevs = ds.flushedRevs
			cur.created = ds.created
			cur.flushedGen = max(cur.flushedGen, ds.flushedGen)
			// Remove from dirty map if fully clean; writes may have
			// landed since the snapshot.
			if !cur.contentDirty() && !cur.created && cur.flushedRevs >= total &&
				cur.flushedRevs >= cs.cache.revisionCount(id) {
				delete(cs.dirty, id)
			}
		}
		cs.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Close signals the flush loop to perform a final flush, waits for it and
// returns its error.
func (cs *CachedStore) Close() error {
	cs.closeOnce.Do(func() {
		close(cs.stop)
		<-cs.done
	})
	return cs.closeErr
}
