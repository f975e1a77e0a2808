package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediabridge/mediabridge/internal/registry"
)

var (
	ErrRootNotFound = errors.New("bridge: root folder not found")
	ErrInvalidRoot  = errors.New("bridge: root needs exactly one of folder id, folder name or prefix")
)

// PathResolutionError marks a file whose local destination could not be
// derived. It fails that file only.
type PathResolutionError struct {
	FileID string
	Name   string
	Err    error
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("bridge: file %s (%q): %v", e.FileID, e.Name, e.Err)
}

func (e *PathResolutionError) Unwrap() error {
	return e.Err
}

// IsPersistError reports whether err carries a registry write failure. Such
// a failure ends the pass: nothing may be deleted on the strength of a mark
// that did not reach disk.
func IsPersistError(err error) bool {
	var persistErr *registry.PersistError
	return errors.As(err, &persistErr)
}

// aborts reports whether err must stop sibling processing.
func aborts(ctx context.Context, err error) bool {
	return IsPersistError(err) || ctx.Err() != nil
}
