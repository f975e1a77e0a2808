package registry

import "fmt"

// PersistError means the backing store could not record a mark. The
// in-memory registry is left as it was before the call.
type PersistError struct {
	Key Key
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("registry: persist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
