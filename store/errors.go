package store

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrExists           = errors.New("document already exists")
	ErrRevisionConflict = errors.New("revision conflict")
)

const (
	TextCodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	TextCodeDocumentExists   = "DOCUMENT_EXISTS"
	TextCodeRevisionConflict = "REVISION_CONFLICT"
)

func notFound(id string) error {
	return goerrors.Wrap(ErrNotFound, goerrors.CategoryNotFound, fmt.Sprintf("store: document %q not found", id)).
		WithTextCode(TextCodeDocumentNotFound)
}

func exists(id string) error {
	return goerrors.Wrap(ErrExists, goerrors.CategoryConflict, fmt.Sprintf("store: document %q already exists", id)).
		WithTextCode(TextCodeDocumentExists)
}

func revisionConflict(id string, got, want int) error {
	msg := fmt.Sprintf("store: document %q expects revision %d, got %d", id, want, got)
	return goerrors.Wrap(ErrRevisionConflict, goerrors.CategoryConflict, msg).
		WithTextCode(TextCodeRevisionConflict)
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
