package command

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrNoActiveSelection is returned when a command needs a selection
	// (or a non-collapsed one) and none is available.
	ErrNoActiveSelection = errors.New("no active selection")
	// ErrInvalidTarget is returned when the selection cannot host the
	// requested change.
	ErrInvalidTarget = errors.New("invalid target")
)

const (
	TextCodeNoActiveSelection = "NO_ACTIVE_SELECTION"
	TextCodeInvalidTarget     = "INVALID_TARGET"
	TextCodeInvalidCommand    = "INVALID_COMMAND"
)

func noSelection(name string) error {
	return goerrors.Wrap(ErrNoActiveSelection, goerrors.CategoryCommand, name+": no active selection").
		WithTextCode(TextCodeNoActiveSelection)
}

func invalidTarget(name string, cause error) error {
	if goerrors.IsWrapped(cause) {
		return cause
	}
	src := ErrInvalidTarget
	if cause != nil {
		src = fmt.Errorf("%w: %w", ErrInvalidTarget, cause)
	}
	return goerrors.Wrap(src, goerrors.CategoryCommand, name+": invalid target").
		WithTextCode(TextCodeInvalidTarget)
}

func invalidCommand(name string, cause error) error {
	return goerrors.FromOzzoValidation(cause, name+": invalid arguments").
		WithTextCode(TextCodeInvalidCommand)
}
