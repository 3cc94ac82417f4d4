// Package editor ties the document, command executor, history and
// persistence bridge into one editing session.
package editor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	goerrors "github.com/goliatone/go-errors"

	"github.com/alimasry/go-composer/command"
	"github.com/alimasry/go-composer/doc"
	"github.com/alimasry/go-composer/history"
	"github.com/alimasry/go-composer/logging"
	"github.com/alimasry/go-composer/markdown"
)

// DefaultAutosaveInterval is used when no interval is configured.
const DefaultAutosaveInterval = 2 * time.Second

// ErrClosed is returned by mutating calls on a closed session.
var ErrClosed = errors.New("editor: session closed")

// Bridge is the persistence sink of a session. Load is called once when the
// session opens; Save receives serialized snapshots.
type Bridge interface {
	Save(ctx context.Context, snapshot string) error
	Load(ctx context.Context) (snapshot string, ok bool, err error)
}

// Change is delivered to listeners after every successful mutation.
type Change struct {
	Stats doc.Stats
	// Seq increases with every change of the session's document.
	Seq uint64
}

type options struct {
	id               string
	provider         logging.Provider
	historyLimit     int
	autosaveInterval time.Duration
}

// Option configures a Session.
type Option func(*options)

func WithID(id string) Option { return func(o *options) { o.id = id } }

// WithLogging routes session, history, command and autosave logs through
// provider.
func WithLogging(provider logging.Provider) Option {
	return func(o *options) { o.provider = provider }
}

func WithHistoryLimit(limit int) Option { return func(o *options) { o.historyLimit = limit } }

// WithAutosaveInterval sets the autosave period. A negative interval turns
// the periodic save off; Close still saves.
func WithAutosaveInterval(d time.Duration) Option {
	return func(o *options) { o.autosaveInterval = d }
}

// Session owns a document. All methods are safe for concurrent use; the
// mutex guarantees autosave always serializes a consistent snapshot.
type Session struct {
	id     string
	logger logging.Logger

	mu        sync.Mutex
	doc       *doc.Document
	exec      *command.Executor
	history   *history.Manager
	version   uint64
	listeners []func(Change)
	closed    bool

	saver     *Autosaver
	closeOnce sync.Once
	closeErr  error
}

// New creates a session over an empty document without persistence.
func New(opts ...Option) *Session {
	s, _ := newSession(opts)
	return s
}

// Open creates a session seeded from bridge. A missing snapshot yields an
// empty document; a snapshot that does not parse is an error.
func Open(ctx context.Context, bridge Bridge, opts ...Option) (*Session, error) {
	s, o := newSession(opts)
	if bridge == nil {
		return s, nil
	}

	snapshot, ok, err := bridge.Load(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "editor: load snapshot")
	}
	if ok {
		d, err := markdown.Parse(ctx, snapshot)
		if err != nil {
			return nil, err
		}
		s.doc = d
	}
	s.logger.Info("session opened", "restored", ok, "words", s.doc.Stats().Words)

	autosaveLogger := logging.WithFields(logging.AutosaveLogger(o.provider), map[string]any{"session": o.id})
	s.saver = NewAutosaver(s, bridge, o.autosaveInterval, autosaveLogger)
	s.saver.Start()
	return s, nil
}

func newSession(opts []Option) (*Session, options) {
	o := options{autosaveInterval: DefaultAutosaveInterval}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}

	logger := logging.WithFields(logging.SessionLogger(o.provider), map[string]any{"session": o.id})
	return &Session{
		id:      o.id,
		logger:  logger,
		doc:     doc.New(),
		exec:    command.NewExecutor(logging.CommandLogger(o.provider)),
		history: history.NewManager(o.historyLimit, logging.HistoryLogger(o.provider)),
	}, o
}

func (s *Session) ID() string { return s.id }

// Document returns a copy of the current document.
func (s *Session) Document() *doc.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Execute runs cmd over sel. Successful mutations are recorded for undo and
// announced to listeners; failures leave the document untouched.
func (s *Session) Execute(sel *doc.Selection, cmd command.Command) (command.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return command.Result{}, ErrClosed
	}
	// The executor swaps in a new tree on success, so a shallow copy keeps
	// the previous state intact.
	before := *s.doc
	res, err := s.exec.Execute(s.doc, sel, cmd)
	if err != nil || !res.Changed {
		s.mu.Unlock()
		return res, err
	}
	s.history.Record(&before)
	change, listeners := s.changedLocked()
	s.mu.Unlock()

	notify(listeners, change)
	return res, nil
}

// Undo restores the previous state. It reports false when there is
// nothing to undo.
func (s *Session) Undo() bool { return s.step((*history.Manager).Undo) }

// Redo reapplies the last undone state.
func (s *Session) Redo() bool { return s.step((*history.Manager).Redo) }

func (s *Session) step(fn func(*history.Manager, *doc.Document) (*doc.Document, bool)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	next, ok := fn(s.history, s.doc)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.doc = next
	change, listeners := s.changedLocked()
	s.mu.Unlock()

	notify(listeners, change)
	return true
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// ActiveFormats reports the formats active over sel.
func (s *Session) ActiveFormats(sel *doc.Selection) command.ActiveFormats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return command.QueryActiveFormats(s.doc, sel)
}

// Markdown serializes the current document. When the metadata cannot be
// encoded the error is logged and the body is returned without it.
func (s *Session) Markdown() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, err := markdown.Serialize(s.doc)
	if err != nil {
		s.logger.Error("front matter dropped", "error", err)
	}
	return md
}

// LoadMarkdown replaces the document with the parsed text. Parsing happens
// outside the lock; on failure or cancellation the document is unchanged.
// The replacement can be undone.
func (s *Session) LoadMarkdown(ctx context.Context, text string) error {
	d, err := markdown.Parse(ctx, text)
	if err != nil {
		s.logger.Debug("markdown rejected", "error", err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if d.Equal(s.doc) {
		s.mu.Unlock()
		return nil
	}
	s.history.Record(s.doc)
	s.doc = d
	change, listeners := s.changedLocked()
	s.mu.Unlock()

	notify(listeners, change)
	return nil
}

// Stats returns the word and character counts of the current document.
func (s *Session) Stats() doc.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Stats()
}

// OnChange registers fn to run after every change. Listeners run outside
// the session lock, in registration order.
func (s *Session) OnChange(fn func(Change)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Snapshot returns the serialized document and the change sequence it
// corresponds to.
func (s *Session) Snapshot() (string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	md, err := markdown.Serialize(s.doc)
	return md, s.version, err
}

// Close stops autosave after a final save and rejects further edits. It
// returns the error of the final save, if any.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.saver != nil {
			s.closeErr = s.saver.Stop()
		}
		s.logger.Info("session closed")
	})
	return s.closeErr
}

func (s *Session) changedLocked() (Change, []func(Change)) {
	s.version++
	change := Change{Stats: s.doc.Stats(), Seq: s.version}
	return change, slices.Clone(s.listeners)
}

func notify(listeners []func(Change), change Change) {
	for _, fn := range listeners {
		fn(change)
	}
}
