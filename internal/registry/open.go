package registry

import (
	"fmt"
	"path/filepath"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open builds a registry on the named backend. An empty path picks the
// backend's default file name inside dataDir.
func Open(backend, path, dataDir string) (*Registry, error) {
	var store Store
	switch backend {
	case "", BackendFile:
		if path == "" {
			path = filepath.Join(dataDir, DefaultFileName)
		}
		store = NewFileStore(path)
	case BackendSQLite:
		if path == "" {
			path = filepath.Join(dataDir, DefaultSQLiteFileName)
		}
		s, err := OpenSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("registry: unknown backend %q", backend)
	}

	reg, err := New(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return reg, nil
}
