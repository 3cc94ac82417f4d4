// Package command applies formatting commands to a document over an
// explicit selection and answers which formats are active.
package command

import (
	"errors"

	"github.com/alimasry/go-composer/doc"
	"github.com/alimasry/go-composer/logging"
)

// Command is a formatting or editing intent. The set of commands is closed:
// only the types in this package implement it.
type Command interface {
	Name() string
	Validate() error

	apply(d *doc.Document, sel doc.Selection) (Result, error)
}

// Result is the outcome of a successful command.
type Result struct {
	Selection doc.Selection
	// Changed is false when the document is untouched, for example when
	// a mark is toggled on a collapsed caret.
	Changed bool
}

// Executor runs commands. A failed command leaves the document untouched.
type Executor struct {
	logger logging.Logger
}

func NewExecutor(logger logging.Logger) *Executor {
	return &Executor{logger: logging.OrNoOp(logger)}
}

// Execute applies cmd to d over sel. The command runs against a copy that
// replaces d only on success, so errors never leave partial edits behind.
func (e *Executor) Execute(d *doc.Document, sel *doc.Selection, cmd Command) (Result, error) {
	if cmd == nil {
		return Result{}, invalidTarget("execute", errors.New("nil command"))
	}
	name := cmd.Name()
	if err := cmd.Validate(); err != nil {
		return keep(sel), invalidCommand(name, err)
	}
	if sel == nil {
		return Result{}, noSelection(name)
	}
	if err := d.Validate(*sel); err != nil {
		return keep(sel), invalidTarget(name, err)
	}

	work := d.Clone()
	res, err := cmd.apply(work, *sel)
	if err != nil {
		e.logger.Debug("command rejected", "command", name, "error", err)
		return keep(sel), invalidTarget(name, err)
	}
	res.Changed = res.Changed && !work.Equal(d)
	if res.Changed {
		d.Replace(work)
	}
	e.logger.Trace("command applied", "command", name, "changed", res.Changed)
	return res, nil
}

func keep(sel *doc.Selection) Result {
	if sel == nil {
		return Result{}
	}
	return Result{Selection: *sel}
}

// remapper records the selection as block ordinals and offsets so it can be
// resolved again after wrapping or unwrapping changes the paths.
func remapper(d *doc.Document, sel doc.Selection) func() doc.Selection {
	ab, ao, _ := d.BlockIndex(sel.Anchor)
	fb, fo, _ := d.BlockIndex(sel.Focus)
	return func() doc.Selection {
		return doc.Selection{Anchor: d.PositionAt(ab, ao), Focus: d.PositionAt(fb, fo)}
	}
}

// collapse deletes a non-collapsed selection and returns the caret left
// behind.
func collapse(d *doc.Document, sel doc.Selection) (doc.Position, error) {
	if sel.IsCollapsed() {
		return sel.Anchor, nil
	}
	return d.Delete(sel)
}
