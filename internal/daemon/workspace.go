package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/mediabridge/mediabridge/internal/utils"
)

const (
	logsDir  = "logs"
	lockFile = "mediabridge.lock"
)

var ErrWorkspaceLocked = errors.New("data dir locked by another process")

// Workspace is the data directory of one daemon. It holds the registry and
// the logs, and is owned by a single process at a time.
type Workspace struct {
	Root    string
	LogsDir string

	flock *flock.Flock
}

func NewWorkspace(dataDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", dataDir, err)
	}

	return &Workspace{
		Root:    root,
		LogsDir: filepath.Join(root, logsDir),
		flock:   flock.New(filepath.Join(root, lockFile)),
	}, nil
}

// Setup creates the directories and takes the lock.
func (w *Workspace) Setup() error {
	for _, dir := range []string{w.Root, w.LogsDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return w.Lock()
}

func (w *Workspace) Lock() error {
	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrWorkspaceLocked, w.Root)
	}
	return nil
}

func (w *Workspace) Unlock() error {
	// never remove a lock file another process holds
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock data dir: %w", err)
	}
	return os.Remove(w.flock.Path())
}
