package registry

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/mediabridge/mediabridge/internal/utils"
)

// DefaultFileName matches the registry file name used by earlier releases.
const DefaultFileName = "processed_registry.txt"

// FileStore keeps one encoded key per line in a plain text file. Every save
// rewrites the file through a temp file and rename, so a crash leaves either
// the old or the new set on disk, never a torn one.
type FileStore struct {
	path string
	lock *flock.Flock
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() ([]Key, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("registry file not found, starting empty", "path", s.path)
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	var keys []Key
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		key, err := DecodeKey(line)
		if err != nil {
			slog.Warn("registry skipping unreadable line", "path", s.path, "line", lineNo)
			continue
		}
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	return keys, nil
}

func (s *FileStore) Save(_ Key, all []Key) error {
	if err := utils.EnsureParent(s.path); err != nil {
		return err
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.lock.Path(), err)
	}
	defer s.lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	for _, key := range all {
		w.WriteString(key.Encode())
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return err
	}

	return syncDir(filepath.Dir(s.path))
}

func (s *FileStore) Close() error {
	if s.lock.Locked() {
		return s.lock.Unlock()
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// some filesystems do not support fsync on directories
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		slog.Debug("registry dir sync", "dir", dir, "error", err)
	}
	return nil
}
