package editor

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/alimasry/go-composer/logging"
)

// Snapshotter produces serialized snapshots tagged with a change sequence.
type Snapshotter interface {
	Snapshot() (content string, seq uint64, err error)
}

// Autosaver periodically hands snapshots to a Bridge. Saves are skipped
// when nothing changed since the last successful one. Failures are logged
// and retried on the next tick.
type Autosaver struct {
	source   Snapshotter
	bridge   Bridge
	interval time.Duration
	logger   logging.Logger

	// mu serializes saves and guards saved.
	mu    sync.Mutex
	saved uint64

	stop     chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	finalErr error
}

// NewAutosaver creates an autosaver. A zero interval selects
// DefaultAutosaveInterval, a negative one disables the ticker.
func NewAutosaver(source Snapshotter, bridge Bridge, interval time.Duration, logger logging.Logger) *Autosaver {
	if interval == 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{
		source:   source,
		bridge:   bridge,
		interval: interval,
		logger:   logging.OrNoOp(logger),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the save loop.
func (a *Autosaver) Start() {
	a.started = true
	go a.loop()
}

func (a *Autosaver) loop() {
	defer close(a.done)

	var tick <-chan time.Time
	if a.interval > 0 {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-tick:
			_ = a.SaveNow(context.Background())
		case <-a.stop:
			a.finalErr = a.SaveNow(context.Background())
			return
		}
	}
}

// SaveNow saves the current snapshot if it changed since the last
// successful save.
func (a *Autosaver) SaveNow(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	content, seq, err := a.source.Snapshot()
	if seq == a.saved {
		return nil
	}
	if err != nil {
		a.logger.Error("autosave skipped", "seq", seq, "error", err)
		return err
	}
	if err := a.bridge.Save(ctx, content); err != nil {
		a.logger.Error("autosave failed", "seq", seq, "error", err)
		return goerrors.Wrap(err, goerrors.CategoryExternal, "editor: save snapshot")
	}
	a.saved = seq
	a.logger.Debug("autosaved", "seq", seq, "bytes", len(content))
	return nil
}

// Saved returns the sequence of the last successful save.
func (a *Autosaver) Saved() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saved
}

// Stop ends the loop after a final save and returns that save's error.
func (a *Autosaver) Stop() error {
	a.stopOnce.Do(func() {
		if !a.started {
			a.finalErr = a.SaveNow(context.Background())
			return
		}
		close(a.stop)
		<-a.done
	})
	return a.finalErr
}
