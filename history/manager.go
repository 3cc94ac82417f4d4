// Package history keeps bounded undo/redo stacks of document snapshots.
package history

import (
	"github.com/alimasry/go-composer/doc"
	"github.com/alimasry/go-composer/logging"
)

// DefaultLimit is the undo depth used when none is configured.
const DefaultLimit = 100

// Entry is a snapshot with the sequence number it was recorded under.
type Entry struct {
	Seq uint64
	Doc *doc.Document
}

// Manager holds the undo and redo stacks. It is not safe for concurrent
// use; the owning session serializes access.
type Manager struct {
	undo   []Entry
	redo   []Entry
	seq    uint64
	limit  int
	logger logging.Logger
}

// NewManager creates a manager keeping at most limit undo entries. A
// non-positive limit selects DefaultLimit.
func NewManager(limit int, logger logging.Logger) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit, logger: logging.OrNoOp(logger)}
}

func (m *Manager) next(d *doc.Document) Entry {
	m.seq++
	return Entry{Seq: m.seq, Doc: d.Clone()}
}

// Record pushes the state before a mutation and clears the redo stack.
// The oldest entry is dropped once the limit is exceeded.
func (m *Manager) Record(prev *doc.Document) Entry {
	e := m.next(prev)
	m.undo = append(m.undo, e)
	if over := len(m.undo) - m.limit; over > 0 {
		m.undo = append(m.undo[:0], m.undo[over:]...)
		m.logger.Debug("history trimmed", "dropped", over, "limit", m.limit)
	}
	m.redo = m.redo[:0]
	return e
}

// Undo returns the previous state and pushes current onto the redo stack.
// It reports false when there is nothing to undo.
func (m *Manager) Undo(current *doc.Document) (*doc.Document, bool) {
	if len(m.undo) == 0 {
		return nil, false
	}
	e := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, m.next(current))
	return e.Doc.Clone(), true
}

// Redo is the inverse of Undo.
func (m *Manager) Redo(current *doc.Document) (*doc.Document, bool) {
	if len(m.redo) == 0 {
		return nil, false
	}
	e := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, m.next(current))
	return e.Doc.Clone(), true
}

func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (m *Manager) Depth() (undo, redo int) { return len(m.undo), len(m.redo) }

// Seq returns the last sequence number handed out.
func (m *Manager) Seq() uint64 { return m.seq }

// Reset drops both stacks.
func (m *Manager) Reset() {
	m.undo = nil
	m.redo = nil
}
