package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

type docRecord struct {
	info      DocumentInfo
	revisions []Revision
}

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*docRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*docRecord)}
}

func (s *MemoryStore) Create(_ context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; ok {
		return exists(id)
	}
	now := time.Now().UTC()
	s.docs[id] = &docRecord{
		info: DocumentInfo{
			ID:        id,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[id]
	if !ok {
		return nil, notFound(id)
	}
	info := rec.info
	return &info, nil
}

// List returns all documents ordered by ID.
func (s *MemoryStore) List(_ context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]DocumentInfo, 0, len(s.docs))
	for _, rec := range s.docs {
		result = append(result, rec.info)
	}
	slices.SortFunc(result, func(a, b DocumentInfo) int { return strings.Compare(a.ID, b.ID) })
	return result, nil
}

func (s *MemoryStore) UpdateContent(_ context.Context, id, content string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.docs[id]
	if !ok {
		return notFound(id)
	}
	rec.info.Content = content
	rec.info.Version = version
	rec.info.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) AppendRevision(_ context.Context, id string, rev Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.docs[id]
	if !ok {
		return notFound(id)
	}
	if want := len(rec.revisions) + 1; rev.Version != want {
		return revisionConflict(id, rev.Version, want)
	}
	rec.revisions = append(rec.revisions, rev)
	return nil
}

func (s *MemoryStore) GetRevisions(_ context.Context, id string, fromVersion int) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[id]
	if !ok {
		return nil, notFound(id)
	}
	fromVersion = max(fromVersion, 0)
	if fromVersion >= len(rec.revisions) {
		return []Revision{}, nil
	}
	// Revision v sits at index v-1.
	return slices.Clone(rec.revisions[fromVersion:]), nil
}

// load installs a record unless the id is already present. It reports
// whether the record was installed.
func (s *MemoryStore) load(info DocumentInfo, revisions []Revision) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[info.ID]; ok {
		return false
	}
	s.docs[info.ID] = &docRecord{info: info, revisions: revisions}
	return true
}

// snapshot copies a record's info and the revisions from index from on.
func (s *MemoryStore) snapshot(id string, from int) (DocumentInfo, []Revision, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.docs[id]
	if !ok {
		return DocumentInfo{}, nil, 0, false
	}
	total := len(rec.revisions)
	var revs []Revision
	if from < total {
		revs = slices.Clone(rec.revisions[from:])
	}
	return rec.info, revs, total, true
}

func (s *MemoryStore) revisionCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.docs[id]; ok {
		return len(rec.revisions)
	}
	return 0
}
